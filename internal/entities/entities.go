// Package entities implements P1.5 Discover Entities: walking directories
// that look like they hold domain models and parsing language-level
// record/struct/class declarations out of them. Grounded on codenerd's
// internal/world/parser_factory.go (dispatch by extension) and
// internal/world/code_elements.go (element/field shape); the per-language
// parsers below are adapted from internal/world/go_parser.go and
// internal/world/python_parser.go.
package entities

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"forge/internal/logging"
	"forge/internal/types"
)

// entityDirHints are directory names that, per §4.2/§6.6, conventionally
// hold domain entities.
var entityDirHints = map[string]bool{
	"model":    true,
	"models":   true,
	"entity":   true,
	"entities": true,
	"domain":   true,
	"schema":   true,
	"schemas":  true,
}

// Parser extracts entities from a single file's content.
type Parser interface {
	// SupportedExtensions lists file extensions this parser handles.
	SupportedExtensions() []string
	// Parse returns the entities declared in content. Returning an error
	// means "skip this file" per §4.2's failure semantics — never fatal.
	Parse(path string, content []byte) ([]*types.Entity, error)
}

// Discover walks codebasePath, parsing files under entity-hint directories
// (plus any file whose extension matches a registered parser) and returns
// the deduplicated set of entities found. The result is a subset of
// actually-declared entities: false negatives (missed entities) are
// acceptable per §4.2's guarantee; they are simply treated as "create new"
// in P2.
func Discover(codebasePath string) *types.ExistingEntities {
	timer := logging.StartTimer(logging.CategoryEntities, "Discover")
	defer timer.Stop()
	log := logging.Get(logging.CategoryEntities)

	result := types.NewExistingEntities()
	parsers := defaultParsers()
	byExt := make(map[string]Parser, len(parsers))
	for _, p := range parsers {
		for _, ext := range p.SupportedExtensions() {
			byExt[ext] = p
		}
	}

	seen := make(map[string]bool) // declared name -> already kept
	var files []string
	_ = filepath.Walk(codebasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if name == "node_modules" || name == "vendor" || name == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(codebasePath, path)
		if inEntityHintDir(rel) || byExt[filepath.Ext(path)] != nil {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	for _, path := range files {
		ext := filepath.Ext(path)
		parser, ok := byExt[ext]
		if !ok {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("read %s: %v", path, err)
			continue
		}
		found, err := parser.Parse(path, content)
		if err != nil {
			log.Warn("parse %s: %v", path, err)
			continue
		}
		rel, _ := filepath.Rel(codebasePath, path)
		for _, e := range found {
			if seen[e.Name] {
				log.Debug("duplicate entity %s in %s, keeping first occurrence", e.Name, rel)
				continue
			}
			e.File = rel
			result.Entities[e.Name] = e
			seen[e.Name] = true
		}
	}

	log.Info("discovered %d entities across %d files", len(result.Entities), len(files))
	return result
}

func inEntityHintDir(relPath string) bool {
	for _, part := range strings.Split(filepath.Dir(relPath), string(filepath.Separator)) {
		if entityDirHints[strings.ToLower(part)] {
			return true
		}
	}
	return false
}

func defaultParsers() []Parser {
	return []Parser{
		NewGoParser(),
		NewPythonParser(),
		NewJavaParser(),
		NewRustParser(),
		NewTypeScriptParser(),
	}
}
