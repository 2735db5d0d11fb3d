// Package impact implements P3 Analyze Impact: enriching the plan with
// architecture-level context drawn from a bounded sample of the repository
// plus an LLM pass, with a hard timeout and a degraded-not-fatal fallback.
// Grounded on codenerd's internal/campaign/intelligence_gatherer.go
// (LLM-driven repository analysis with a structured response and a timeout
// guard around the call).
package impact

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"forge/internal/llmutil"
	"forge/internal/logging"
	"forge/internal/types"
)

// defaultTimeout is §4.5's stated default; callers may override via ctx.
const defaultTimeout = 30 * time.Second

const maxSampleFiles = 15
const maxExcerptBytes = 1500

var patternMarkers = map[string]*regexp.Regexp{
	"repository_pattern": regexp.MustCompile(`(?i)\bRepository\b`),
	"dependency_injection": regexp.MustCompile(`(?i)(@Inject|@Autowired|constructor\([^)]*:\s*\w+Service)`),
	"factory_pattern":     regexp.MustCompile(`(?i)\bFactory\b`),
	"singleton_pattern":   regexp.MustCompile(`(?i)\bgetInstance\(\)|\bsingleton\b`),
	"observer_pattern":    regexp.MustCompile(`(?i)\bEventEmitter\b|\baddEventListener\b|\bsubscribe\(`),
}

type llmImpactResponse struct {
	Constraints          []string `json:"constraints"`
	TestingApproach      string   `json:"testing_approach"`
	ArchitectureInsights string   `json:"architecture_insights"`
}

// Analyze drives P3 over state and returns an ImpactAnalysis. It applies a
// hard timeout around the LLM call; on timeout or any LLM error it returns
// a degraded (not fatal) analysis with neutral/empty fields, matching
// §4.5's failure semantics.
func Analyze(ctx context.Context, state *types.AgentState, llm types.LLMClient) *types.ImpactAnalysis {
	timer := logging.StartTimer(logging.CategoryImpact, "Analyze")
	defer timer.Stop()
	log := logging.Get(logging.CategoryImpact)

	patterns := detectPatterns(state.CodebasePath, sampleFiles(state))
	filesToModify := unionFilesToModify(state)

	analysis := &types.ImpactAnalysis{
		PatternsToFollow: patterns,
		FilesToModify:    filesToModify,
	}

	if llm == nil {
		analysis.Degraded = true
		log.Warn("no LLM client configured; returning neutral impact analysis")
		return analysis
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var resp llmImpactResponse
	system := "You analyze a codebase's architecture-level conventions for an automated code-generation agent. " +
		`Reply with JSON of the shape {"constraints": [...], "testing_approach": "...", "architecture_insights": "..."}.`
	user := buildUserPrompt(state, patterns, filesToModify)

	done := make(chan error, 1)
	go func() {
		_, err := llmutil.Decode(timeoutCtx, llm, system, user, &resp)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Warn("impact analysis LLM call failed, degrading: %v", err)
			analysis.Degraded = true
			return analysis
		}
	case <-timeoutCtx.Done():
		log.Warn("impact analysis timed out after %s, degrading", defaultTimeout)
		analysis.Degraded = true
		return analysis
	}

	analysis.Constraints = resp.Constraints
	analysis.TestingApproach = resp.TestingApproach
	analysis.ArchitectureInsights = resp.ArchitectureInsights
	log.Info("impact analysis: patterns=%d files_to_modify=%d degraded=%t",
		len(patterns), len(filesToModify), analysis.Degraded)
	return analysis
}

func sampleFiles(state *types.AgentState) []string {
	if state.ContextAnalysis == nil {
		return nil
	}
	files := state.ContextAnalysis.RepresentativeFiles
	if len(files) > maxSampleFiles {
		files = files[:maxSampleFiles]
	}
	return files
}

func detectPatterns(root string, sample []string) []string {
	var found []string
	seen := make(map[string]bool)
	for _, rel := range sample {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		text := string(data)
		if len(text) > maxExcerptBytes {
			text = text[:maxExcerptBytes]
		}
		for name, re := range patternMarkers {
			if seen[name] {
				continue
			}
			if re.MatchString(text) {
				found = append(found, name)
				seen[name] = true
			}
		}
	}
	sort.Strings(found)
	return found
}

func unionFilesToModify(state *types.AgentState) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if state.FeatureSpec != nil {
		for _, f := range state.FeatureSpec.AffectedFiles {
			add(f)
		}
		for _, m := range state.FeatureSpec.Modifications {
			add(m.File)
		}
	}
	sort.Strings(out)
	return out
}

func buildUserPrompt(state *types.AgentState, patterns, filesToModify []string) string {
	var b strings.Builder
	b.WriteString("Feature request:\n" + state.FeatureRequest + "\n\n")
	if state.ContextAnalysis != nil {
		b.WriteString("Language: " + state.ContextAnalysis.Language + "\n")
		b.WriteString("Build system: " + state.ContextAnalysis.BuildSystem + "\n")
	}
	b.WriteString("Framework: " + state.Framework + "\n")
	b.WriteString("Detected patterns in use: " + strings.Join(patterns, ", ") + "\n")
	b.WriteString("Files slated for modification: " + strings.Join(filesToModify, ", ") + "\n")
	b.WriteString("\nDescribe constraints this codebase imposes on the change, its testing approach, and any architecture-level insight relevant to implementing the feature.")
	return b.String()
}
