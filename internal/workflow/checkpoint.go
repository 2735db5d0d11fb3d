package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"forge/internal/types"
)

// checkpointPath is the per-workspace checkpoint file. Grounded on
// codenerd's orchestrator_lifecycle.go saveCampaign, which persists the
// whole campaign under <nerdDir>/campaigns/<id>.json; forge has exactly one
// run per workspace at a time, so it persists to a single fixed path
// instead of one-file-per-run.
func checkpointPath(workspace string) string {
	return filepath.Join(workspace, ".forge", "checkpoint.json")
}

// saveCheckpoint persists state after every phase completes, so a crashed
// or interrupted run can resume from the last completed phase.
func saveCheckpoint(workspace string, state *types.AgentState) error {
	dir := filepath.Join(workspace, ".forge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("workflow: create checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow: marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(checkpointPath(workspace), data, 0o644); err != nil {
		return fmt.Errorf("workflow: write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a previously-saved AgentState, if one exists.
// Returns (nil, false, nil) when there is nothing to resume.
func LoadCheckpoint(workspace string) (*types.AgentState, bool, error) {
	data, err := os.ReadFile(checkpointPath(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("workflow: read checkpoint: %w", err)
	}
	var state types.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("workflow: parse checkpoint: %w", err)
	}
	return &state, true, nil
}

// ClearCheckpoint removes the checkpoint file after a successful run.
func ClearCheckpoint(workspace string) {
	_ = os.Remove(checkpointPath(workspace))
}
