// Package discover implements P1 Analyze Context: a bounded inventory of the
// target repository — framework and language detection, extension counts,
// and a small manifest excerpt sample. Grounded on codenerd's
// internal/world/fs.go (deny-list traversal, extension sampling) and
// internal/world/scanner_config.go.
package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"forge/internal/logging"
	"forge/internal/types"
)

// denyList mirrors codenerd's scanner_config.go deny-list: directories never
// worth descending into when sampling a repository.
var denyList = map[string]bool{
	".git":         true,
	".forge":       true,
	"node_modules": true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"vendor":       true,
	".idea":        true,
	".vscode":      true,
	"out":          true,
	"bin":          true,
}

// manifestFiles is checked in order; the first manifest found for a
// language drives build-system detection.
var manifestFiles = []string{
	"pom.xml", "build.gradle", "build.gradle.kts",
	"package.json",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml", "requirements.txt",
}

// maxRepresentativeFiles and maxManifestBytes bound the P1 sample so the
// phase completes in bounded time against arbitrarily large repositories.
const (
	maxRepresentativeFiles = 25
	maxManifestBytes       = 8192
	maxWalkedFiles          = 20000
)

// Analyze inventories the repository at codebasePath and returns a
// ContextAnalysis. It never returns a fatal error: IO problems degrade to a
// minimal context with FallbackUsed set, matching §4.1's failure semantics.
func Analyze(codebasePath string) *types.ContextAnalysis {
	timer := logging.StartTimer(logging.CategoryContext, "Analyze")
	defer timer.Stop()
	log := logging.Get(logging.CategoryContext)

	ca := &types.ContextAnalysis{
		ExtensionCounts:  make(map[string]int),
		ManifestExcerpts: make(map[string]string),
	}

	topDirs, err := topLevelDirs(codebasePath)
	if err != nil {
		log.Warn("list top-level dirs: %v", err)
		ca.FallbackUsed = true
	}
	ca.TopLevelDirs = topDirs

	var representative []string
	walkErr := filepath.Walk(codebasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn("walk %s: %v", path, err)
			return nil
		}
		if len(ca.ExtensionCounts) > 0 && countWalked(ca) > maxWalkedFiles {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(codebasePath, path)
		if info.IsDir() {
			if denyList[info.Name()] && rel != "." {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != "" {
			ca.ExtensionCounts[ext]++
		}
		if len(representative) < maxRepresentativeFiles && !info.IsDir() {
			representative = append(representative, rel)
		}
		for _, m := range manifestFiles {
			if info.Name() == m {
				readManifest(codebasePath, m, ca)
			}
		}
		return nil
	})
	if walkErr != nil {
		log.Warn("walk failed: %v", walkErr)
		ca.FallbackUsed = true
	}
	sort.Strings(representative)
	ca.RepresentativeFiles = representative

	ca.Language = dominantLanguage(ca.ExtensionCounts, ca.ManifestExcerpts)
	ca.BuildSystem = buildSystemFor(ca.ManifestExcerpts)
	ca.Framework = detectFramework(ca.ManifestExcerpts, representative, codebasePath)

	log.Info("context analysis: language=%s framework=%s build=%s files=%d",
		ca.Language, ca.Framework, ca.BuildSystem, len(representative))
	return ca
}

func countWalked(ca *types.ContextAnalysis) int {
	n := 0
	for _, c := range ca.ExtensionCounts {
		n += c
	}
	return n
}

func topLevelDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !denyList[e.Name()] {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

func readManifest(root, name string, ca *types.ContextAnalysis) {
	path := filepath.Join(root, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if len(data) > maxManifestBytes {
		data = data[:maxManifestBytes]
	}
	ca.ManifestExcerpts[name] = string(data)
}

var extLanguage = map[string]string{
	".go":   "go",
	".java": "java",
	".py":   "python",
	".rs":   "rust",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
}

func dominantLanguage(counts map[string]int, manifests map[string]string) string {
	best, bestCount := "", -1
	for ext, n := range counts {
		lang, ok := extLanguage[ext]
		if !ok {
			continue
		}
		if n > bestCount {
			best, bestCount = lang, n
		}
	}
	// Manifest fallback per §4.1: when no recognized source file was
	// counted, a Go module or Cargo manifest still pins the language.
	if best == "" || bestCount <= 0 {
		if _, ok := manifests["go.mod"]; ok {
			return "go"
		}
		if _, ok := manifests["Cargo.toml"]; ok {
			return "rust"
		}
		if _, ok := manifests["pyproject.toml"]; ok {
			return "python"
		}
		if _, ok := manifests["pom.xml"]; ok {
			return "java"
		}
	}
	return best
}

func buildSystemFor(manifests map[string]string) string {
	switch {
	case has(manifests, "pom.xml"):
		return "maven"
	case has(manifests, "build.gradle") || has(manifests, "build.gradle.kts"):
		return "gradle"
	case has(manifests, "package.json"):
		return "npm"
	case has(manifests, "go.mod"):
		return "go_modules"
	case has(manifests, "Cargo.toml"):
		return "cargo"
	case has(manifests, "pyproject.toml"):
		return "poetry_or_pep517"
	case has(manifests, "requirements.txt"):
		return "pip"
	default:
		return "unknown"
	}
}

func has(m map[string]string, key string) bool {
	_, ok := m[key]
	return ok
}

// frameworkPatterns is a small regex/substring table matching §6.6's
// reference detection rules. Detection fails soft to "generic".
var frameworkPatterns = []struct {
	name     string
	manifest string
	pattern  *regexp.Regexp
}{
	{"spring_boot", "pom.xml", regexp.MustCompile(`(?i)spring-boot`)},
	{"spring_boot", "build.gradle", regexp.MustCompile(`(?i)spring-boot`)},
	{"fastapi", "pyproject.toml", regexp.MustCompile(`(?i)fastapi`)},
	{"fastapi", "requirements.txt", regexp.MustCompile(`(?i)fastapi`)},
	{"django", "pyproject.toml", regexp.MustCompile(`(?i)django`)},
	{"django", "requirements.txt", regexp.MustCompile(`(?i)django`)},
	{"express", "package.json", regexp.MustCompile(`(?i)"express"`)},
	{"nestjs", "package.json", regexp.MustCompile(`(?i)@nestjs/core`)},
	{"actix", "Cargo.toml", regexp.MustCompile(`(?i)actix-web`)},
	{"gin", "go.mod", regexp.MustCompile(`(?i)gin-gonic/gin`)},
}

func detectFramework(manifests map[string]string, representative []string, root string) string {
	for _, fp := range frameworkPatterns {
		content, ok := manifests[fp.manifest]
		if !ok {
			continue
		}
		if fp.pattern.MatchString(content) {
			return fp.name
		}
	}
	// Fall back to a small import-line sample from representative files.
	for _, rel := range representative {
		if !strings.HasSuffix(rel, ".go") && !strings.HasSuffix(rel, ".py") && !strings.HasSuffix(rel, ".java") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		head := string(data)
		if len(head) > 2000 {
			head = head[:2000]
		}
		for _, fp := range frameworkPatterns {
			if fp.pattern.MatchString(head) {
				return fp.name
			}
		}
	}
	return "generic"
}
