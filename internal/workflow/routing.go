// Package workflow wires the seven phases (discover, entities, intent,
// structure, impact, synth, exec) into the sequential pipeline §4.8
// describes, with pure routing functions between each pair of phases, a
// terminal error node, a checkpoint file for resume, and a progress event
// stream. Grounded on codenerd's internal/campaign.Orchestrator: a struct
// holding the shared components, a run loop over ordered phases, and an
// event channel fed as phases complete — adapted here from a task-DAG
// executor to a fixed seven-step pipeline with a routing function gating
// each edge, since forge's phases are not independently schedulable tasks.
package workflow

import (
	"forge/internal/config"
	"forge/internal/types"
)

// route is a pure routing function: it inspects state (and configuration)
// and decides the next phase, without mutating anything. Grounded on
// §4.8's three routing rules.
func route(from types.Phase, state *types.AgentState, cfg *config.Config) types.Phase {
	if state.HasFatalError() {
		return types.PhaseError
	}

	switch from {
	case "":
		return types.PhaseAnalyzeContext
	case types.PhaseAnalyzeContext:
		return types.PhaseDiscoverEntities
	case types.PhaseDiscoverEntities:
		return types.PhaseParseIntent
	case types.PhaseParseIntent:
		if state.FeatureSpec == nil {
			return types.PhaseError
		}
		if cfg.Structure.Enabled {
			return types.PhaseValidateStructure
		}
		return types.PhaseAnalyzeImpact
	case types.PhaseValidateStructure:
		return types.PhaseAnalyzeImpact
	case types.PhaseAnalyzeImpact:
		if state.FeatureSpec == nil {
			return types.PhaseError
		}
		return types.PhaseSynthesizeCode
	case types.PhaseSynthesizeCode:
		return types.PhaseExecuteChanges
	case types.PhaseExecuteChanges:
		return types.PhaseDone
	default:
		return types.PhaseError
	}
}
