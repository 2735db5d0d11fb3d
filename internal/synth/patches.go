package synth

import (
	"path/filepath"
	"strings"

	"forge/internal/types"
)

// qualityMarkers flags patch content resembling shortcuts a generated patch
// should not take — the supplemented, non-fatal quality-violation scan.
// Grounded on codenerd's internal/verification/verifier.go QualityViolation
// enum, narrowed to the markers detectable from patch content alone (no
// sandbox run available at this point in the pipeline).
var qualityMarkers = []struct {
	name    string
	marker  string
}{
	{"todo_left_in_generated_code", "TODO"},
	{"placeholder_not_implemented", "not implemented"},
	{"placeholder_panic", "panic(\"unimplemented\")"},
	{"empty_catch_swallow", "catch (Exception e) {}"},
}

// extractPatches implements §4.6.4/§4.6.5: validate each recorded write_file
// / edit_file call, enforce scope closure, drop duplicate creations, and
// return patches in invocation order alongside any quality warnings.
func extractPatches(transcript []recordedCall, scope Scope, state *types.AgentState) ([]types.Patch, []string) {
	var patches []types.Patch
	var quality []string
	created := make(map[string]bool)

	for _, rc := range transcript {
		call := rc.tool
		path := extractPath(call)
		if path == "" {
			continue
		}
		abs := resolveAbs(state.CodebasePath, path)
		if !scope.Allows(abs) {
			continue
		}

		switch call.Name {
		case "write_file":
			content, _ := call.Input["content"].(string)
			if content == "" {
				continue
			}
			if created[abs] {
				continue // no duplicate creation, §4.6.5
			}
			created[abs] = true
			p := types.NewPatch(types.ToolWriteFile, abs, "create "+filepath.Base(abs))
			p.Content = content
			patches = append(patches, p)
			quality = append(quality, scanQuality(abs, content)...)

		case "edit_file":
			oldStr, _ := call.Input["old_string"].(string)
			newStr, _ := call.Input["new_string"].(string)
			if oldStr == "" || newStr == "" {
				continue
			}
			p := types.NewPatch(types.ToolEditFile, abs, "edit "+filepath.Base(abs))
			p.OldString = oldStr
			p.NewString = newStr
			patches = append(patches, p)
			quality = append(quality, scanQuality(abs, newStr)...)
		}
	}

	patches = enforceCreationOrder(patches, state)
	return patches, quality
}

func resolveAbs(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(root, path))
}

func scanQuality(path, content string) []string {
	var warnings []string
	for _, m := range qualityMarkers {
		if strings.Contains(content, m.marker) {
			warnings = append(warnings, m.name+" in "+path)
		}
	}
	return warnings
}

// enforceCreationOrder implements §4.6.5's creation-ordering check: patches
// creating files whose layer appears earlier in creation_order should
// appear before those creating later-layer files. A violation is logged as
// a warning on the patch's description rather than reordered or rejected —
// downstream tools may tolerate out-of-order creation, per spec.
func enforceCreationOrder(patches []types.Patch, state *types.AgentState) []types.Patch {
	if state.FeatureSpec == nil || len(state.FeatureSpec.NewFilesPlanning.CreationOrder) == 0 {
		return patches
	}
	position := make(map[string]int, len(state.FeatureSpec.NewFilesPlanning.CreationOrder))
	for i, rel := range state.FeatureSpec.NewFilesPlanning.CreationOrder {
		position[resolveAbs(state.CodebasePath, rel)] = i
	}

	lastSeenPos := -1
	for i := range patches {
		p := &patches[i]
		if p.Tool != types.ToolWriteFile {
			continue
		}
		pos, ok := position[p.File]
		if !ok {
			continue
		}
		if pos < lastSeenPos {
			p.Description += " (warning: created out of creation_order sequence)"
		}
		lastSeenPos = pos
	}
	return patches
}
