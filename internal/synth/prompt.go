package synth

import (
	"sort"
	"strconv"
	"strings"

	"forge/internal/types"
)

// BuildPrompt assembles the single structured prompt described in §4.6.2:
// intent, framework conventions, the file-to-(path, layer, class, changes)
// mapping, design patterns, testing approach, constraints, and the
// generation-phase todo items, plus the scope exhortation the intent-
// reminder middleware re-sends on every turn.
func BuildPrompt(state *types.AgentState, scope Scope) string {
	var b strings.Builder

	b.WriteString("# Feature request\n")
	b.WriteString(state.FeatureRequest)
	b.WriteString("\n\n# Framework\n")
	b.WriteString(state.Framework)
	b.WriteString("\n\n")

	if spec := state.FeatureSpec; spec != nil {
		b.WriteString("# Intent summary\n")
		b.WriteString(spec.IntentSummary)
		b.WriteString("\n\n# Creation order\n")
		for i, f := range spec.NewFilesPlanning.CreationOrder {
			b.WriteString(strconv.Itoa(i+1) + ". " + f + "\n")
		}

		b.WriteString("\n# Files to generate or modify\n")
		for _, sf := range spec.NewFilesPlanning.SuggestedFiles {
			b.WriteString("- CREATE " + sf.RelativePath + " (layer=" + sf.Layer + ", class=" + sf.ClassName + ")\n")
			if len(sf.SOLIDPrinciples) > 0 {
				b.WriteString("  SOLID: " + strings.Join(sf.SOLIDPrinciples, ", ") + "\n")
			}
			if len(sf.FrameworkConventions) > 0 {
				b.WriteString("  Conventions: " + strings.Join(sf.FrameworkConventions, "; ") + "\n")
			}
		}
		for _, m := range spec.Modifications {
			b.WriteString("- MODIFY " + m.File + " (entity=" + m.Entity + ", action=" + string(m.Action) + ")\n")
			for _, d := range m.Details {
				b.WriteString("  " + d + "\n")
			}
		}

		b.WriteString("\n# Generation todo items\n")
		for _, t := range spec.TodoList {
			if t.Phase != types.TodoGeneration {
				continue
			}
			b.WriteString("- #" + strconv.Itoa(t.ID) + " " + t.Title + "\n")
		}
	}

	if ia := state.ImpactAnalysis; ia != nil {
		if len(ia.PatternsToFollow) > 0 {
			b.WriteString("\n# Design patterns observed in this codebase\n")
			b.WriteString(strings.Join(ia.PatternsToFollow, ", ") + "\n")
		}
		if ia.TestingApproach != "" {
			b.WriteString("\n# Testing approach\n")
			b.WriteString(ia.TestingApproach + "\n")
		}
		if len(ia.Constraints) > 0 {
			b.WriteString("\n# Constraints\n")
			for _, c := range ia.Constraints {
				b.WriteString("- " + c + "\n")
			}
		}
	}

	if sa := state.StructureAssessment; sa != nil && len(sa.RefactoringPlan.CreateLayers) > 0 {
		b.WriteString("\n# Layer directories to create before generating into them\n")
		b.WriteString(strings.Join(sa.RefactoringPlan.CreateLayers, ", ") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(ScopeExhortation(scope))
	return b.String()
}

// ScopeExhortation renders the full list of allowed files/directories for
// the intent-reminder middleware's pinned system message (§4.6.3 item 1).
// Synthesize puts the feature request in front of it and re-sends the result
// on every model turn so the model cannot drift off its scope across a long
// tool-call conversation.
func ScopeExhortation(scope Scope) string {
	var b strings.Builder
	b.WriteString("# Scope\n")
	b.WriteString("Use only the read_file, ls, write_file, edit_file, and write_todos tools, and only within this scope.\n")
	b.WriteString("Allowed files:\n")
	for _, f := range sortedKeys(scope.Files) {
		b.WriteString("- " + f + "\n")
	}
	b.WriteString("Allowed directories (and their immediate siblings):\n")
	for _, d := range sortedKeys(scope.Dirs) {
		b.WriteString("- " + d + "\n")
	}
	if scope.Fallback {
		b.WriteString("(fallback scope: no explicit affected files were identified; stay within the directories above)\n")
	}
	return b.String()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
