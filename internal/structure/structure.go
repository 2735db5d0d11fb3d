// Package structure implements P2A Validate Structure: scoring a
// repository's conformance to its detected framework's best-practice
// layering and surfacing a refactoring plan. Grounded on codenerd's
// internal/verification/verifier.go, whose QualityViolation taxonomy and
// severity-weighted scoring this package adapts from code-quality
// violations to structural/layering violations.
package structure

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"forge/internal/logging"
	"forge/internal/types"
)

// monolithicClassLineThreshold is the size heuristic for monolithic_class:
// a single file whose line count exceeds this is flagged, mirroring
// verifier.go's line-count-based corner-cutting heuristic.
const monolithicClassLineThreshold = 400

var controllerDirHint = regexp.MustCompile(`(?i)(controller|handler|view|router)s?`)

var sqlLikeRe = regexp.MustCompile(`(?i)\b(SELECT|INSERT INTO|UPDATE|DELETE FROM|CREATE TABLE)\b`)
var ormCallRe = regexp.MustCompile(`(?i)\b(session\.query|\.save\(|\.find\(|objects\.filter|Repository<|JpaRepository)\b`)

// Assess walks codebasePath with the framework's expected layer set and
// returns a StructureAssessment. It never returns an error: unreadable
// files are skipped and contribute nothing to the score, matching this
// phase's "does not block the workflow" routing effect (§4.4).
func Assess(codebasePath, framework string, topLevelDirs []string) *types.StructureAssessment {
	timer := logging.StartTimer(logging.CategoryStructure, "Assess")
	defer timer.Stop()
	log := logging.Get(logging.CategoryStructure)

	var violations []types.Violation

	expectedLayers := expectedLayerNames(framework)
	presentLayers := presentLayerDirs(topLevelDirs, codebasePath)
	for _, layer := range expectedLayers {
		if !presentLayers[layer] {
			violations = append(violations, types.Violation{
				Type:     types.ViolationMissingLayer,
				Severity: types.SeverityMedium,
				Layer:    layer,
				Message:  "expected layer directory for '" + layer + "' not found",
			})
		}
	}

	_ = filepath.Walk(codebasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(codebasePath, path)
		if skippable(rel) {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		violations = append(violations, fileViolations(rel, content)...)
		return nil
	})

	score := 100
	highCount := 0
	for _, v := range violations {
		score -= types.SeverityWeight(v.Severity)
		if v.Severity == types.SeverityHigh {
			highCount++
		}
	}
	if score < 0 {
		score = 0
	}

	assessment := &types.StructureAssessment{
		IsProductionReady: score >= 70 && highCount == 0,
		Score:             score,
		Violations:        violations,
		RefactoringPlan:   buildRefactoringPlan(violations, expectedLayers, presentLayers),
	}
	log.Info("structure assessment: score=%d violations=%d production_ready=%t",
		score, len(violations), assessment.IsProductionReady)
	return assessment
}

func skippable(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		switch part {
		case ".git", "node_modules", "vendor", ".forge", "dist", "build", "target":
			return true
		}
	}
	return false
}

func expectedLayerNames(framework string) []string {
	switch framework {
	case "spring_boot", "fastapi", "django", "express", "nestjs", "actix", "gin":
		return []string{"model", "service", "controller"}
	default:
		return []string{"model", "service"}
	}
}

func presentLayerDirs(topLevelDirs []string, root string) map[string]bool {
	present := make(map[string]bool)
	var walk func(dirs []string, prefix string, depth int)
	walk = func(dirs []string, prefix string, depth int) {
		if depth > 3 {
			return
		}
		for _, d := range dirs {
			lower := strings.ToLower(d)
			for _, layer := range []string{"model", "service", "controller", "repository", "dto"} {
				if strings.Contains(lower, layer) {
					present[layer] = true
				}
			}
			sub, err := os.ReadDir(filepath.Join(prefix, d))
			if err != nil {
				continue
			}
			var subdirs []string
			for _, e := range sub {
				if e.IsDir() {
					subdirs = append(subdirs, e.Name())
				}
			}
			walk(subdirs, filepath.Join(prefix, d), depth+1)
		}
	}
	walk(topLevelDirs, root, 0)
	return present
}

func fileViolations(rel string, content []byte) []types.Violation {
	var out []types.Violation
	lines := strings.Split(string(content), "\n")
	lower := strings.ToLower(rel)

	if controllerDirHint.MatchString(lower) {
		text := string(content)
		if sqlLikeRe.MatchString(text) || ormCallRe.MatchString(text) {
			out = append(out, types.Violation{
				Type:     types.ViolationDataStorageInController,
				Severity: types.SeverityHigh,
				File:     rel,
				Layer:    "controller",
				Message:  "controller/handler file appears to perform direct data access",
			})
		}
	}

	if strings.Contains(lower, "model") && strings.Contains(lower, "/model") {
		depth := strings.Count(rel, string(filepath.Separator))
		if depth > 2 {
			out = append(out, types.Violation{
				Type:     types.ViolationNestedModel,
				Severity: types.SeverityLow,
				File:     rel,
				Layer:    "model",
				Message:  "model file nested unusually deep for its layer",
			})
		}
	}

	if len(lines) > monolithicClassLineThreshold {
		out = append(out, types.Violation{
			Type:     types.ViolationMonolithicClass,
			Severity: types.SeverityMedium,
			File:     rel,
			Message:  "file exceeds the single-responsibility size heuristic",
		})
	}

	if isMisplacedByExtension(rel) {
		out = append(out, types.Violation{
			Type:     types.ViolationMisplacedFile,
			Severity: types.SeverityLow,
			File:     rel,
			Message:  "source file sits outside any recognized layer directory",
		})
	}

	return out
}

var knownLayerDirRe = regexp.MustCompile(`(?i)(model|service|controller|repository|dto|handler|view|router|schema)`)

func isMisplacedByExtension(rel string) bool {
	ext := filepath.Ext(rel)
	if ext != ".java" && ext != ".py" && ext != ".go" && ext != ".ts" && ext != ".rs" {
		return false
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	return !knownLayerDirRe.MatchString(dir)
}

func buildRefactoringPlan(violations []types.Violation, expectedLayers []string, present map[string]bool) types.RefactoringPlan {
	var plan types.RefactoringPlan
	for _, layer := range expectedLayers {
		if !present[layer] {
			plan.CreateLayers = append(plan.CreateLayers, layer)
		}
	}
	for _, v := range violations {
		switch v.Type {
		case types.ViolationMonolithicClass:
			plan.ExtractClasses = append(plan.ExtractClasses, types.ExtractClass{
				FromFile:  v.File,
				ClassName: deriveClassName(v.File),
				TargetFile: deriveSplitTarget(v.File),
			})
		case types.ViolationDataStorageInController:
			plan.MoveCode = append(plan.MoveCode, "extract data access from "+v.File+" into a repository/service layer")
		case types.ViolationMisplacedFile:
			plan.AddInterfaces = append(plan.AddInterfaces, "consider an interface boundary for "+v.File+" once it is relocated")
		}
	}
	return plan
}

func deriveClassName(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func deriveSplitTarget(rel string) string {
	dir := filepath.Dir(rel)
	base := deriveClassName(rel)
	return filepath.ToSlash(filepath.Join(dir, base+"Extracted"+filepath.Ext(rel)))
}
