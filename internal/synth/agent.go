// Package synth implements P4 Synthesize Code: scope computation, prompt
// assembly, a scope-guarded LLM tool-calling loop, and patch extraction.
// Grounded on codenerd's internal/session/executor.go (the observe →
// compile-prompt → compile-config → generate-with-tools → execute-tools
// loop) and internal/tools/registry.go + internal/tools/core/file_ops.go
// (the read_file/write_file/edit_file/ls tool shapes).
package synth

import (
	"context"
	"fmt"
	"strings"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/types"
)

// maxIterations bounds the agent loop independent of any sandbox/build
// iteration cap — this is the P4 tool-call loop's own cap, distinct from
// P5's max_iterations (§4.7).
const maxIterations = 25

// Result is P4's output: the extracted patches plus any quality warnings
// noticed along the way (the supplemented quality-violation scan).
type Result struct {
	Patches         []types.Patch
	QualityWarnings []string
	ScopeFallback   bool
}

// Synthesize runs the P4 agent loop over state and returns the patches it
// produced. It never returns a Go error for agent/LLM failures — those are
// recorded into state.Errors per §4.6's failure semantics (partial success
// on timeout, a non-fatal error plus an empty patch list if nothing valid
// was produced).
func Synthesize(ctx context.Context, state *types.AgentState, llm types.LLMClient, cfg *config.Config) Result {
	timer := logging.StartTimer(logging.CategorySynthesis, "Synthesize")
	defer timer.Stop()
	log := logging.Get(logging.CategorySynthesis)

	scope := ComputeScope(state)
	if scope.Fallback && cfg.Guardrail.Mode == config.GuardrailStrict {
		state.AddError(types.PhaseSynthesizeCode, true, "scope computation fell back to the conventional source root under strict guardrail mode")
		return Result{ScopeFallback: true}
	}

	if llm == nil {
		state.AddError(types.PhaseSynthesizeCode, false, "no LLM client configured; synthesizing zero patches")
		return Result{ScopeFallback: scope.Fallback}
	}

	exhortation := "# Feature request\n" + state.FeatureRequest + "\n\n" + ScopeExhortation(scope)
	systemPrompt := "You are a scope-restricted code generation agent. Generate or modify only the files named in your instructions, using the available tools." +
		"\n\n" + exhortation
	userPrompt := BuildPrompt(state, scope)

	var transcript []recordedCall
	executor := newFSToolExecutor(state.CodebasePath, scope, &transcript)
	tools := toolDefinitions()

	terminated := false
loop:
	for i := 0; i < maxIterations; i++ {
		select {
		case <-ctx.Done():
			log.Warn("agent loop canceled after %d iterations: %v", i, ctx.Err())
			break loop
		default:
		}

		turnSystem := systemPrompt
		if cfg.Guardrail.Enabled {
			turnSystem = intentReminder(systemPrompt, exhortation)
		}
		resp, err := llm.CompleteWithTools(ctx, turnSystem, userPrompt, tools)
		if err != nil {
			state.AddError(types.PhaseSynthesizeCode, false, "agent loop LLM call failed at iteration %d: %v", i, err)
			break
		}

		if resp.Text != "" && cfg.Guardrail.Enabled {
			verdict := outputGuardrail(resp.Text, scope, cfg.Guardrail.Mode)
			if len(verdict.violations) > 0 {
				log.Warn(verdict.warning)
				if verdict.terminate {
					state.AddError(types.PhaseSynthesizeCode, false, "agent loop terminated: %s", verdict.warning)
					terminated = true
				}
			}
		}
		if terminated {
			break
		}

		if len(resp.ToolCalls) == 0 {
			break
		}

		var turnResults []string
		for _, call := range resp.ToolCalls {
			if isFileTargetingTool(call.Name) && cfg.Guardrail.Enabled {
				allow, message := toolCallGuardrail(call, state.CodebasePath, scope, cfg.Guardrail.Mode, log)
				if !allow {
					log.Warn("tool call guardrail rejected %s: %s", call.Name, message)
					turnResults = append(turnResults, fmt.Sprintf("%s: rejected by guardrail: %s", call.Name, message))
					continue
				}
			}
			path := extractPath(call)
			if isFileTargetingTool(call.Name) && path == "" {
				continue
			}
			result, err := executor.Execute(ctx, call)
			if err != nil {
				log.Warn("tool execution error for %s: %v", call.Name, err)
				turnResults = append(turnResults, fmt.Sprintf("%s: error: %v", call.Name, err))
				continue
			}
			turnResults = append(turnResults, fmt.Sprintf("%s(%s) result:\n%s", call.Name, path, result))
		}

		userPrompt = userPrompt + "\n\n" + strings.Join(turnResults, "\n\n") +
			"\n\n(continue or stop if the feature is complete)"
	}

	patches, quality := extractPatches(transcript, scope, state)
	if len(patches) == 0 {
		state.AddError(types.PhaseSynthesizeCode, false, "agent loop produced no valid patches")
	}
	log.Info("synthesize complete: patches=%d quality_warnings=%d", len(patches), len(quality))
	return Result{Patches: patches, QualityWarnings: quality, ScopeFallback: scope.Fallback}
}
