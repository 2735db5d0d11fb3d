// Package llmutil holds small helpers shared by every phase that drives an
// LLM toward structured JSON output. Grounded on codenerd's
// internal/campaign/decomposer.go, which strips Markdown code fences around
// a JSON response and applies the same "repair once" fallback this package
// exposes via Decode.
package llmutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"forge/internal/types"
)

// ExtractJSON strips a leading/trailing Markdown code fence (``` or
// ```json) from an LLM response, returning the raw JSON body. Models
// regularly wrap structured output in a fence even when told not to.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Decode asks llm to produce JSON matching v's shape via systemPrompt plus
// userPrompt, and unmarshals the (fence-stripped) response into v. On a
// parse failure it issues one repair request — quoting the bad output back
// to the model and asking it to return corrected, fence-free JSON — before
// giving up. Returns the raw response text from whichever attempt
// succeeded, or the last error.
func Decode(ctx context.Context, llm types.LLMClient, systemPrompt, userPrompt string, v any) (string, error) {
	raw, err := llm.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("llmutil: completion: %w", err)
	}
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), v); err == nil {
		return raw, nil
	}

	repairPrompt := fmt.Sprintf(
		"Your previous response was not valid JSON and could not be parsed:\n\n%s\n\nReturn ONLY the corrected JSON object, with no Markdown code fence and no commentary.",
		raw,
	)
	repaired, err := llm.CompleteWithSystem(ctx, systemPrompt, repairPrompt)
	if err != nil {
		return "", fmt.Errorf("llmutil: repair completion: %w", err)
	}
	if err := json.Unmarshal([]byte(ExtractJSON(repaired)), v); err != nil {
		return "", fmt.Errorf("llmutil: unparseable after repair: %w", err)
	}
	return repaired, nil
}
