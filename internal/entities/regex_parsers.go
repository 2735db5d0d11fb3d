package entities

import (
	"regexp"
	"strings"

	"forge/internal/types"
)

// Regex-based entity parsers for languages not covered by a stdlib AST or a
// vendored Tree-sitter grammar in this module. §4.2 permits regex parsing
// as the baseline approach ("Parse with regex (tree-sitter optional as an
// accelerator)") and §6.6 gives the informal per-language patterns these
// implement directly.

// JavaParser extracts `class NAME { ... TYPE name; ... }` declarations.
type JavaParser struct{}

func NewJavaParser() *JavaParser { return &JavaParser{} }

func (p *JavaParser) SupportedExtensions() []string { return []string{".java"} }

var (
	javaClassRe = regexp.MustCompile(`(?m)^\s*(?:@\w+(?:\([^)]*\))?\s*)*(?:public\s+|private\s+)?(?:final\s+)?class\s+(\w+)`)
	javaFieldRe = regexp.MustCompile(`(?m)^\s*(?:private|public|protected)\s+(?:final\s+)?([\w<>\[\],.\s]+?)\s+(\w+)\s*;`)
)

func (p *JavaParser) Parse(path string, content []byte) ([]*types.Entity, error) {
	src := string(content)
	var out []*types.Entity
	matches := javaClassRe.FindAllStringSubmatchIndex(src, -1)
	for i, m := range matches {
		name := src[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(src)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := src[bodyStart:bodyEnd]
		entity := &types.Entity{Name: name}
		for _, fm := range javaFieldRe.FindAllStringSubmatch(body, -1) {
			typ := strings.TrimSpace(fm[1])
			entity.Fields = append(entity.Fields, types.EntityField{Name: fm[2], Type: typ})
		}
		out = append(out, entity)
	}
	return out, nil
}

// RustParser extracts `#[derive(..., Serialize, ...)] pub struct NAME { ... }`.
type RustParser struct{}

func NewRustParser() *RustParser { return &RustParser{} }

func (p *RustParser) SupportedExtensions() []string { return []string{".rs"} }

var (
	rustStructRe = regexp.MustCompile(`(?ms)#\[derive\([^)]*\)\]\s*pub struct (\w+)\s*\{([^}]*)\}`)
	rustFieldRe  = regexp.MustCompile(`(?m)^\s*pub\s+(\w+)\s*:\s*([\w<>:,.\s]+?),?\s*$`)
)

func (p *RustParser) Parse(path string, content []byte) ([]*types.Entity, error) {
	src := string(content)
	var out []*types.Entity
	for _, m := range rustStructRe.FindAllStringSubmatch(src, -1) {
		entity := &types.Entity{Name: m[1]}
		for _, fm := range rustFieldRe.FindAllStringSubmatch(m[2], -1) {
			entity.Fields = append(entity.Fields, types.EntityField{Name: fm[1], Type: strings.TrimSpace(fm[2])})
		}
		out = append(out, entity)
	}
	return out, nil
}

// TypeScriptParser extracts `export interface NAME { ... }` and
// `export class NAME { ... }` declarations with colon-annotated members;
// declarations without `export` are not matched.
type TypeScriptParser struct{}

func NewTypeScriptParser() *TypeScriptParser { return &TypeScriptParser{} }

func (p *TypeScriptParser) SupportedExtensions() []string { return []string{".ts", ".tsx"} }

var (
	tsTypeRe  = regexp.MustCompile(`(?m)^\s*export\s+(?:interface|class)\s+(\w+)`)
	tsFieldRe = regexp.MustCompile(`(?m)^\s*(?:readonly\s+)?(\w+)\??\s*:\s*([\w<>\[\]|.\s]+?)\s*;?\s*$`)
)

func (p *TypeScriptParser) Parse(path string, content []byte) ([]*types.Entity, error) {
	src := string(content)
	var out []*types.Entity
	matches := tsTypeRe.FindAllStringSubmatchIndex(src, -1)
	for i, m := range matches {
		name := src[m[2]:m[3]]
		openBrace := strings.Index(src[m[1]:], "{")
		if openBrace < 0 {
			continue
		}
		bodyStart := m[1] + openBrace + 1
		bodyEnd := len(src)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		closeBrace := strings.Index(src[bodyStart:bodyEnd], "}")
		if closeBrace >= 0 {
			bodyEnd = bodyStart + closeBrace
		}
		body := src[bodyStart:bodyEnd]
		entity := &types.Entity{Name: name}
		for _, fm := range tsFieldRe.FindAllStringSubmatch(body, -1) {
			entity.Fields = append(entity.Fields, types.EntityField{Name: fm[1], Type: strings.TrimSpace(fm[2])})
		}
		out = append(out, entity)
	}
	return out, nil
}
