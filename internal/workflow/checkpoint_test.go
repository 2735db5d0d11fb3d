package workflow

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/types"
)

func TestCheckpoint_SaveLoadClearRoundTrip(t *testing.T) {
	dir := t.TempDir()

	_, resumed, err := LoadCheckpoint(dir)
	require.NoError(t, err)
	assert.False(t, resumed, "no checkpoint should exist yet")

	state := types.NewAgentState(dir, "add a widget", types.ModeDryRun)
	state.CurrentPhase = types.PhaseAnalyzeImpact
	state.AddError(types.PhaseAnalyzeContext, false, "a non-fatal warning")

	require.NoError(t, saveCheckpoint(dir, state))

	loaded, resumed, err := LoadCheckpoint(dir)
	require.NoError(t, err)
	require.True(t, resumed)
	if diff := cmp.Diff(state, loaded); diff != "" {
		t.Errorf("round-tripped state mismatch (-saved +loaded):\n%s", diff)
	}
	assert.Equal(t, types.PhaseAnalyzeImpact, loaded.CurrentPhase)
	require.Len(t, loaded.Errors, 1)
	assert.Equal(t, "a non-fatal warning", loaded.Errors[0].Message)

	ClearCheckpoint(dir)
	_, resumed, err = LoadCheckpoint(dir)
	require.NoError(t, err)
	assert.False(t, resumed, "checkpoint should be gone after ClearCheckpoint")
}

func TestCheckpoint_LoadCorruptFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveCheckpoint(dir, types.NewAgentState(dir, "x", types.ModeDryRun)))

	// Corrupt the file in place.
	require.NoError(t, os.WriteFile(checkpointPath(dir), []byte("{not valid json"), 0o644))

	_, _, err := LoadCheckpoint(dir)
	assert.Error(t, err)
}
