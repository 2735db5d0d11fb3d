// Package exec implements P5 Execute Changes: applying patches to the
// filesystem in dry-run or implement mode, and optionally driving a sandbox
// build/run verification. Grounded on codenerd's internal/tools/core/
// file_ops.go for the write/edit semantics and internal/verification/
// verifier.go for the retry-loop shape.
package exec

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"forge/internal/diffrender"
	"forge/internal/logging"
	"forge/internal/types"
)

// Run applies state.Patches according to state.Mode and returns the
// ExecutionResults. Dry-run mode never touches the filesystem. Implement
// mode applies patches in order and does not roll back on error (§4.7:
// best-effort semantics) — already-applied patches stay applied even if a
// later one fails.
func Run(ctx context.Context, state *types.AgentState, sandbox types.Sandbox, cfg SandboxRunConfig) *types.ExecutionResults {
	timer := logging.StartTimer(logging.CategoryExecution, "Run")
	defer timer.Stop()
	log := logging.Get(logging.CategoryExecution)

	results := &types.ExecutionResults{VerificationStatus: "skipped", QualityWarnings: state.QualityWarnings}

	if state.Mode == types.ModeDryRun {
		log.Info("dry run: rendering %d patches, no filesystem mutation", len(state.Patches))
		for _, p := range state.Patches {
			log.Info("%s", diffrender.Render(p))
		}
		results.VerificationStatus = "dry_run"
		return results
	}

	for _, p := range state.Patches {
		if err := applyPatch(state.CodebasePath, p); err != nil {
			results.Errors = append(results.Errors, p.File+": "+err.Error())
			continue
		}
		results.PatchesApplied = append(results.PatchesApplied, p.File)
	}

	if sandbox != nil && cfg.Enabled {
		sandboxResult := RunSandbox(ctx, sandbox, state.CodebasePath, cfg, log)
		results.Sandbox = sandboxResult
		if sandboxResult.RunSuccess {
			results.VerificationStatus = "verified"
		} else if sandboxResult.CriticalStop {
			results.VerificationStatus = "critical_error"
		} else {
			results.VerificationStatus = "build_failed"
		}
	} else {
		results.VerificationStatus = "unverified"
	}

	log.Info("execute changes: applied=%d errors=%d status=%s",
		len(results.PatchesApplied), len(results.Errors), results.VerificationStatus)
	return results
}

// applyPatch implements §4.7's per-tool implement-mode semantics, with the
// codebase-boundary check re-applied here as defense in depth (§4.7
// invariant: never applies a patch outside codebase_path).
func applyPatch(codebasePath string, p types.Patch) error {
	if !withinCodebase(codebasePath, p.File) {
		return errOutsideCodebase(p.File)
	}

	switch p.Tool {
	case types.ToolWriteFile:
		if err := os.MkdirAll(filepath.Dir(p.File), 0o755); err != nil {
			return err
		}
		return os.WriteFile(p.File, []byte(p.Content), 0o644)

	case types.ToolEditFile:
		data, err := os.ReadFile(p.File)
		if err != nil {
			return err
		}
		text := string(data)
		count := strings.Count(text, p.OldString)
		if count != 1 {
			return errNotUnique(p.OldString, count)
		}
		updated := strings.Replace(text, p.OldString, p.NewString, 1)
		return os.WriteFile(p.File, []byte(updated), 0o644)

	default:
		return errUnknownTool(p.Tool)
	}
}

func withinCodebase(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
