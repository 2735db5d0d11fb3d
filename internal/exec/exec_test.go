package exec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"forge/internal/types"
)

// TestMain ensures the errgroup-paired build/run-watcher goroutines in
// sandbox.go never outlive the test that started them.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun_DryRunNeverTouchesFilesystem(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0o644))

	state := types.NewAgentState(dir, "add a thing", types.ModeDryRun)
	state.Patches = []types.Patch{
		types.NewPatch(types.ToolWriteFile, target, "rewrite main"),
	}
	state.Patches[0].Content = "package main\n\nfunc main() {}\n"

	results := Run(t.Context(), state, nil, SandboxRunConfig{})

	assert.Equal(t, "dry_run", results.VerificationStatus)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data), "dry run must not mutate the filesystem")
}

func TestRun_ImplementModeAppliesWriteAndEditPatches(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.go")
	require.NoError(t, os.WriteFile(existing, []byte("package main\n\nvar x = 1\n"), 0o644))

	created := filepath.Join(dir, "new", "widget.go")

	state := types.NewAgentState(dir, "add a widget", types.ModeImplement)
	writePatch := types.NewPatch(types.ToolWriteFile, created, "create widget")
	writePatch.Content = "package widget\n"
	editPatch := types.NewPatch(types.ToolEditFile, existing, "bump x")
	editPatch.OldString = "var x = 1"
	editPatch.NewString = "var x = 2"
	state.Patches = []types.Patch{writePatch, editPatch}

	results := Run(t.Context(), state, nil, SandboxRunConfig{})

	assert.Equal(t, "unverified", results.VerificationStatus)
	assert.ElementsMatch(t, []string{created, existing}, results.PatchesApplied)

	createdData, err := os.ReadFile(created)
	require.NoError(t, err)
	assert.Equal(t, "package widget\n", string(createdData))

	editedData, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nvar x = 2\n", string(editedData))
}

func TestApplyPatch_RejectsPathOutsideCodebase(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(os.TempDir(), "definitely-outside-forge-test.go")
	p := types.NewPatch(types.ToolWriteFile, outside, "escape")
	p.Content = "package evil\n"

	err := applyPatch(dir, p)
	assert.Error(t, err)
}

func TestApplyPatch_EditRequiresUniqueMatch(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "dup.go")
	require.NoError(t, os.WriteFile(target, []byte("a\na\n"), 0o644))

	p := types.NewPatch(types.ToolEditFile, target, "ambiguous edit")
	p.OldString = "a"
	p.NewString = "b"

	err := applyPatch(dir, p)
	assert.Error(t, err)
}
