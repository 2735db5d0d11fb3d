package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"forge/internal/config"
	"forge/internal/types"
)

func TestRoute_SequentialChain(t *testing.T) {
	cfg := config.DefaultConfig()
	state := types.NewAgentState("/repo", "add a widget", types.ModeDryRun)

	next := route("", state, cfg)
	assert.Equal(t, types.PhaseAnalyzeContext, next)

	next = route(types.PhaseAnalyzeContext, state, cfg)
	assert.Equal(t, types.PhaseDiscoverEntities, next)

	next = route(types.PhaseDiscoverEntities, state, cfg)
	assert.Equal(t, types.PhaseParseIntent, next)
}

func TestRoute_ParseIntentBranchesOnStructureConfig(t *testing.T) {
	t.Run("missing feature spec is a fatal routing error", func(t *testing.T) {
		cfg := config.DefaultConfig()
		state := types.NewAgentState("/repo", "add a widget", types.ModeDryRun)
		assert.Equal(t, types.PhaseError, route(types.PhaseParseIntent, state, cfg))
	})

	t.Run("structure validation enabled routes through it", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Structure.Enabled = true
		state := types.NewAgentState("/repo", "add a widget", types.ModeDryRun)
		state.FeatureSpec = &types.FeatureSpec{}
		assert.Equal(t, types.PhaseValidateStructure, route(types.PhaseParseIntent, state, cfg))
	})

	t.Run("structure validation disabled skips straight to impact analysis", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Structure.Enabled = false
		state := types.NewAgentState("/repo", "add a widget", types.ModeDryRun)
		state.FeatureSpec = &types.FeatureSpec{}
		assert.Equal(t, types.PhaseAnalyzeImpact, route(types.PhaseParseIntent, state, cfg))
	})
}

func TestRoute_TailOfPipeline(t *testing.T) {
	cfg := config.DefaultConfig()
	state := types.NewAgentState("/repo", "add a widget", types.ModeDryRun)
	state.FeatureSpec = &types.FeatureSpec{}

	assert.Equal(t, types.PhaseAnalyzeImpact, route(types.PhaseValidateStructure, state, cfg))
	assert.Equal(t, types.PhaseSynthesizeCode, route(types.PhaseAnalyzeImpact, state, cfg))
	assert.Equal(t, types.PhaseExecuteChanges, route(types.PhaseSynthesizeCode, state, cfg))
	assert.Equal(t, types.PhaseDone, route(types.PhaseExecuteChanges, state, cfg))
}

func TestRoute_FatalErrorShortCircuitsRegardlessOfPhase(t *testing.T) {
	cfg := config.DefaultConfig()
	state := types.NewAgentState("/repo", "add a widget", types.ModeDryRun)
	state.FeatureSpec = &types.FeatureSpec{}
	state.AddError(types.PhaseAnalyzeImpact, true, "boom")

	assert.Equal(t, types.PhaseError, route(types.PhaseDiscoverEntities, state, cfg))
	assert.Equal(t, types.PhaseError, route(types.PhaseSynthesizeCode, state, cfg))
}

func TestRoute_UnknownPhaseIsAnError(t *testing.T) {
	cfg := config.DefaultConfig()
	state := types.NewAgentState("/repo", "add a widget", types.ModeDryRun)
	assert.Equal(t, types.PhaseError, route(types.Phase("not_a_real_phase"), state, cfg))
}
