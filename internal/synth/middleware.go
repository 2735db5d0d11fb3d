package synth

import (
	"fmt"
	"regexp"
	"strings"

	"forge/internal/config"
	"forge/internal/logging"
	"forge/internal/types"
)

// pathMentionRe finds path-shaped tokens in free text: a run of path
// segments ending in a known source/config extension or a recognized
// config filename, per §4.6.3 item 2.
var pathMentionRe = regexp.MustCompile(`[\w./\\-]+\.(?:go|java|py|rs|ts|tsx|js|jsx|yaml|yml|json|toml|xml)\b|\b(?:pom\.xml|package\.json|go\.mod|Cargo\.toml|requirements\.txt)\b`)

// guardrailVerdict is the result of checking one model turn's text output
// against scope.
type guardrailVerdict struct {
	violations []string
	terminate  bool
	warning    string
}

// intentReminder implements §4.6.3 item 1: append the scope exhortation to
// every model turn's system prompt unless it is already present verbatim
// (the caller tracks that by reusing the same rendered string).
func intentReminder(systemPrompt, exhortation string) string {
	if strings.Contains(systemPrompt, exhortation) {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + exhortation
}

// outputGuardrail implements §4.6.3 item 2: scan a model turn's text for
// path mentions and classify each as allowed or a violation.
func outputGuardrail(text string, scope Scope, mode config.GuardrailMode) guardrailVerdict {
	mentions := dedupMentions(pathMentionRe.FindAllString(text, -1))
	var violations []string
	for _, m := range mentions {
		if !scope.Allows(m) {
			violations = append(violations, m)
		}
	}
	if len(violations) == 0 {
		return guardrailVerdict{}
	}
	if mode == config.GuardrailStrict {
		return guardrailVerdict{
			violations: violations,
			terminate:  true,
			warning:    "scope violation (strict): model referenced out-of-scope paths: " + strings.Join(violations, ", "),
		}
	}
	return guardrailVerdict{
		violations: violations,
		warning:    "scope violation (soft): model referenced out-of-scope paths: " + strings.Join(violations, ", "),
	}
}

func dedupMentions(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// toolCallGuardrail implements §4.6.3 item 3: normalize the tool's path
// argument to an absolute path (resolved against root, the codebase root)
// and re-check allowability against the resolved path, not the raw
// model-supplied string. It returns (allow, message): when allow is false
// in strict mode, message is a tool-error string meant to be returned to
// the agent as the tool's result so it may revise; in soft mode an
// out-of-scope path is allowed with an empty message and a logged warning.
// A call with no resolvable path argument is skipped in either mode: allow
// is false and message is empty.
func toolCallGuardrail(call types.ToolCall, root string, scope Scope, mode config.GuardrailMode, log *logging.Logger) (allow bool, message string) {
	if !isFileTargetingTool(call.Name) {
		return true, ""
	}
	path := extractPath(call)
	if path == "" {
		log.Warn("tool call %s had no resolvable path argument; skipping with a warning, not a failure", call.Name)
		return false, ""
	}
	abs := resolveAbs(root, path)
	if scope.Allows(abs) {
		return true, ""
	}
	if mode == config.GuardrailStrict {
		return false, fmt.Sprintf("tool call rejected: %s is outside the allowed scope for this run", path)
	}
	log.Warn("tool call %s targets out-of-scope path %s (soft mode: proceeding)", call.Name, path)
	return true, ""
}
