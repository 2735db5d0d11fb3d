package workflow

import (
	"context"

	"forge/internal/config"
	"forge/internal/discover"
	"forge/internal/entities"
	execphase "forge/internal/exec"
	"forge/internal/impact"
	"forge/internal/intent"
	"forge/internal/logging"
	"forge/internal/structure"
	"forge/internal/synth"
	"forge/internal/types"
)

// Run drives state through all seven phases (skipping P2A when configured
// off), persisting a checkpoint after each completed phase and emitting a
// progress Event after each transition. It returns once the workflow
// reaches PhaseDone or PhaseError. events may be nil if the caller doesn't
// want progress notifications.
func Run(ctx context.Context, state *types.AgentState, cfg *config.Config, llm types.LLMClient, sandbox types.Sandbox, events chan<- Event) *types.AgentState {
	log := logging.Get(logging.CategoryWorkflow)

	for {
		next := route(state.CurrentPhase, state, cfg)

		if next == types.PhaseDone {
			state.CurrentPhase = types.PhaseDone
			emit(events, Event{Type: EventWorkflowDone, Message: "workflow complete"})
			ClearCheckpoint(state.CodebasePath)
			return state
		}
		if next == types.PhaseError {
			state.CurrentPhase = types.PhaseError
			emit(events, Event{Type: EventWorkflowError, Message: state.FirstErrorMessage()})
			_ = saveCheckpoint(state.CodebasePath, state)
			return state
		}

		if state.CurrentPhase == types.PhaseParseIntent && next == types.PhaseAnalyzeImpact {
			emit(events, Event{Type: EventPhaseSkipped, Phase: types.PhaseValidateStructure, Message: string(types.PhaseValidateStructure) + " skipped"})
		}
		state.CurrentPhase = next
		emit(events, Event{Type: EventPhaseStarted, Phase: next, Message: string(next) + " starting"})
		logging.Audit(state.RunID, logging.AuditPhaseStart, string(next), string(next)+" starting", nil)

		if err := ctx.Err(); err != nil {
			state.AddError(next, true, "workflow cancelled: %v", err)
			continue
		}

		runPhase(ctx, next, state, cfg, llm, sandbox, log)

		logging.Audit(state.RunID, logging.AuditPhaseComplete, string(next), string(next)+" complete", nil)
		emit(events, Event{Type: EventPhaseCompleted, Phase: next, Message: string(next) + " complete"})

		if err := saveCheckpoint(state.CodebasePath, state); err != nil {
			log.Warn("checkpoint save failed after %s: %v", next, err)
		}
	}
}

// runPhase executes a single phase in place, appending errors to state as
// needed. It never advances state.CurrentPhase itself — Run owns that. A
// panic inside a phase is recovered and recorded as a fatal error.
func runPhase(ctx context.Context, phase types.Phase, state *types.AgentState, cfg *config.Config, llm types.LLMClient, sandbox types.Sandbox, log *logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			state.AddError(phase, true, "panic in %s: %v", phase, r)
		}
	}()

	switch phase {
	case types.PhaseAnalyzeContext:
		state.ContextAnalysis = discover.Analyze(state.CodebasePath)
		if state.ContextAnalysis == nil {
			state.AddError(phase, true, "analyze context produced no result")
		}

	case types.PhaseDiscoverEntities:
		state.ExistingEntities = entities.Discover(state.CodebasePath)

	case types.PhaseParseIntent:
		intent.Parse(ctx, state, llm)
		if state.FeatureSpec == nil {
			state.AddError(phase, true, "parse intent produced no feature spec")
		}

	case types.PhaseValidateStructure:
		var topDirs []string
		if state.ContextAnalysis != nil {
			topDirs = state.ContextAnalysis.TopLevelDirs
		}
		state.StructureAssessment = structure.Assess(state.CodebasePath, state.Framework, topDirs)

	case types.PhaseAnalyzeImpact:
		state.ImpactAnalysis = impact.Analyze(ctx, state, llm)

	case types.PhaseSynthesizeCode:
		result := synth.Synthesize(ctx, state, llm, cfg)
		state.Patches = result.Patches
		state.QualityWarnings = result.QualityWarnings
		if len(state.Patches) == 0 && !state.HasFatalError() {
			state.AddError(phase, false, "synthesis produced no patches")
		}

	case types.PhaseExecuteChanges:
		sandboxCfg := execphase.SandboxRunConfig{
			Enabled:             cfg.Sandbox.Enabled && sandbox != nil,
			BuildTimeout:        cfg.Sandbox.BuildTimeout,
			RunTimeout:          cfg.Sandbox.RunTimeout,
			MaxIterations:       cfg.Sandbox.MaxIterations,
			BuildCommand:        buildCommandFor(state.Framework),
			RunCommand:          runCommandFor(state.Framework),
			AutoFixOnBuildError: cfg.Sandbox.AutoFixOnBuildError,
			LLM:                 llm,
		}
		state.ExecutionResults = execphase.Run(ctx, state, sandbox, sandboxCfg)

	default:
		log.Error("runPhase: unhandled phase %s", phase)
		state.AddError(phase, true, "unhandled phase %s", phase)
	}
}
