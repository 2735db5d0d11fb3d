package synth

import (
	"path/filepath"
	"strings"

	"forge/internal/logging"
	"forge/internal/types"
)

// Scope is the allowed-files/allowed-dirs pair computed before any model
// call, per §4.6.1. All paths are absolute.
type Scope struct {
	Files    map[string]bool
	Dirs     map[string]bool
	Fallback bool
}

// conventionalSourceRoots is looked up by detected language when E is empty
// and a fallback scope must be derived; a language not listed here falls
// back to the codebase root.
var conventionalSourceRoots = map[string]string{
	"java":       "src/main/java",
	"python":     "app",
	"go":         ".",
	"rust":       "src",
	"typescript": "src",
	"javascript": "src",
}

// ComputeScope builds the allowed scope for state's feature spec, impact
// analysis, and structure assessment, expanding D with sibling files per
// §4.6.1's automatic expansion rule.
func ComputeScope(state *types.AgentState) Scope {
	log := logging.Get(logging.CategorySynthesis)
	root := state.CodebasePath

	files := make(map[string]bool)
	addFile := func(rel string) {
		if rel == "" {
			return
		}
		files[toAbs(root, rel)] = true
	}

	if state.FeatureSpec != nil {
		for _, f := range state.FeatureSpec.AffectedFiles {
			addFile(f)
		}
		for _, f := range state.FeatureSpec.NewFilesPlanning.SuggestedFiles {
			addFile(f.RelativePath)
		}
	}
	if state.ImpactAnalysis != nil {
		for _, f := range state.ImpactAnalysis.FilesToModify {
			addFile(f)
		}
	}

	dirs := make(map[string]bool)
	for f := range files {
		dirs[filepath.Dir(f)] = true
	}
	if state.StructureAssessment != nil {
		for _, layer := range state.StructureAssessment.RefactoringPlan.CreateLayers {
			dirs[toAbs(root, layer)] = true
		}
	}

	if len(files) == 0 {
		fallbackDir := conventionalSourceRoots["generic"]
		if state.ContextAnalysis != nil {
			if dir, ok := conventionalSourceRoots[state.ContextAnalysis.Language]; ok {
				fallbackDir = dir
			}
		}
		if fallbackDir == "" {
			fallbackDir = "."
		}
		abs := toAbs(root, fallbackDir)
		dirs[abs] = true
		log.Warn("scope computation found no affected files; falling back to conventional source root %s", abs)
		return Scope{Files: files, Dirs: dirs, Fallback: true}
	}

	return Scope{Files: files, Dirs: dirs}
}

func toAbs(root, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Clean(filepath.Join(root, rel))
}

// Allows implements the four-criterion allowability check shared by the
// output guardrail and the tool-call guardrail (§4.6.3 items 2 and 3):
// exact path match, suffix match against an allowed file, containment
// within an allowed directory, or sibling-in-same-dir.
func (s Scope) Allows(path string) bool {
	if path == "" {
		return false
	}
	clean := filepath.Clean(path)

	if s.Files[clean] {
		return true
	}
	for f := range s.Files {
		if pathSuffixMatch(clean, f) || pathSuffixMatch(f, clean) {
			return true
		}
	}
	for d := range s.Dirs {
		if withinDir(clean, d) {
			return true
		}
	}
	cleanDir := filepath.Dir(clean)
	for f := range s.Files {
		if filepath.Dir(f) == cleanDir {
			return true
		}
	}
	return false
}

// pathSuffixMatch reports whether b is a's final path component(s): either
// they are identical or a ends with a path separator followed by b. A bare
// string-suffix check would also match unrelated files sharing a name tail
// ("user.go" would wrongly match "otheruser.go"); requiring the separator
// boundary rules that out.
func pathSuffixMatch(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasSuffix(a, string(filepath.Separator)+b)
}

func withinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
