package entities

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"forge/internal/types"
)

// GoParser extracts struct declarations and their fields, exported or not
// and with or without json tags, using the standard library's go/ast —
// codenerd uses the same stdlib parser for Go rather than tree-sitter, since Go already ships a
// precise first-party AST; tree-sitter is reserved here for languages
// without one in the module dependency graph (Python).
type GoParser struct{}

func NewGoParser() *GoParser { return &GoParser{} }

func (p *GoParser) SupportedExtensions() []string { return []string{".go"} }

func (p *GoParser) Parse(path string, content []byte) ([]*types.Entity, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("go parse: %w", err)
	}

	var out []*types.Entity
	for _, decl := range node.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}
			entity := &types.Entity{Name: typeSpec.Name.Name}
			for _, field := range structType.Fields.List {
				typeStr := exprString(field.Type)
				if len(field.Names) == 0 {
					// Embedded field: name equals the type's identifier.
					entity.Fields = append(entity.Fields, types.EntityField{Name: typeStr, Type: typeStr})
					continue
				}
				for _, name := range field.Names {
					entity.Fields = append(entity.Fields, types.EntityField{Name: name.Name, Type: typeStr})
				}
			}
			out = append(out, entity)
		}
	}
	return out, nil
}

// exprString renders a type expression back to source text without needing
// a full printer — sufficient for the field-type strings FeatureSpec needs.
func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	default:
		return "any"
	}
}
