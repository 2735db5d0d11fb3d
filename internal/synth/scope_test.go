package synth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/types"
)

func TestComputeScope_FromAffectedFilesAndImpact(t *testing.T) {
	root := "/repo"
	state := types.NewAgentState(root, "add a widget", types.ModeDryRun)
	state.FeatureSpec = &types.FeatureSpec{
		AffectedFiles: []string{"src/widget.go"},
	}
	state.ImpactAnalysis = &types.ImpactAnalysis{
		FilesToModify: []string{"src/registry.go"},
	}

	scope := ComputeScope(state)

	require.False(t, scope.Fallback)
	assert.True(t, scope.Files[filepath.Join(root, "src/widget.go")])
	assert.True(t, scope.Files[filepath.Join(root, "src/registry.go")])
	assert.True(t, scope.Dirs[filepath.Join(root, "src")])
}

func TestComputeScope_FallsBackWhenNoFilesNamed(t *testing.T) {
	root := "/repo"
	state := types.NewAgentState(root, "add a widget", types.ModeDryRun)
	state.ContextAnalysis = &types.ContextAnalysis{Language: "go"}

	scope := ComputeScope(state)

	assert.True(t, scope.Fallback)
	assert.True(t, scope.Dirs[root])
}

func TestComputeScope_IncludesRefactoringCreateLayers(t *testing.T) {
	root := "/repo"
	state := types.NewAgentState(root, "add a widget", types.ModeDryRun)
	state.FeatureSpec = &types.FeatureSpec{AffectedFiles: []string{"src/widget.go"}}
	state.StructureAssessment = &types.StructureAssessment{
		RefactoringPlan: types.RefactoringPlan{CreateLayers: []string{"src/service"}},
	}

	scope := ComputeScope(state)

	assert.True(t, scope.Dirs[filepath.Join(root, "src/service")])
}

func TestScopeAllows_ExactFileMatch(t *testing.T) {
	scope := Scope{Files: map[string]bool{"/repo/src/widget.go": true}}
	assert.True(t, scope.Allows("/repo/src/widget.go"))
}

func TestScopeAllows_DoesNotMatchUnrelatedFileSharingNameSuffix(t *testing.T) {
	scope := Scope{Files: map[string]bool{"/repo/src/user.go": true}}
	assert.False(t, scope.Allows("/tmp/evil/otheruser.go"))
}

func TestScopeAllows_MatchesFileViaSeparatorBoundedSuffix(t *testing.T) {
	scope := Scope{Files: map[string]bool{"widget.go": true}}
	assert.True(t, scope.Allows("/repo/src/widget.go"))
}

func TestScopeAllows_MatchesFileWithinAllowedDir(t *testing.T) {
	scope := Scope{Dirs: map[string]bool{"/repo/src": true}}
	assert.True(t, scope.Allows("/repo/src/sub/new_file.go"))
	assert.False(t, scope.Allows("/repo/other/new_file.go"))
}

func TestScopeAllows_MatchesSiblingOfAllowedFile(t *testing.T) {
	scope := Scope{Files: map[string]bool{"/repo/src/widget.go": true}}
	assert.True(t, scope.Allows("/repo/src/widget_helper.go"))
}

func TestScopeAllows_EmptyPathIsRejected(t *testing.T) {
	scope := Scope{Files: map[string]bool{"/repo/src/widget.go": true}}
	assert.False(t, scope.Allows(""))
}
