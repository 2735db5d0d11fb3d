package entities

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"forge/internal/types"
)

// PythonParser extracts class declarations and their annotated attributes
// using Tree-sitter, adapted from codenerd's internal/world/python_parser.go.
type PythonParser struct {
	parser *sitter.Parser
}

func NewPythonParser() *PythonParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: p}
}

func (p *PythonParser) SupportedExtensions() []string { return []string{".py", ".pyw"} }

func (p *PythonParser) Parse(path string, content []byte) ([]*types.Entity, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("python parse: %w", err)
	}
	defer tree.Close()

	var out []*types.Entity
	root := tree.RootNode()
	walkPythonClasses(root, content, &out)
	return out, nil
}

// walkPythonClasses finds class_definition nodes and pulls their declared
// name plus any `name: Type` annotated attributes in the class body —
// matching §6.6's "class NAME(base): / NAME: TYPE" pattern for Python.
func walkPythonClasses(node *sitter.Node, src []byte, out *[]*types.Entity) {
	if node == nil {
		return
	}
	if node.Type() == "class_definition" {
		nameNode := node.ChildByFieldName("name")
		if nameNode != nil {
			entity := &types.Entity{Name: nameNode.Content(src)}
			body := node.ChildByFieldName("body")
			if body != nil {
				collectPythonFields(body, src, entity)
			}
			*out = append(*out, entity)
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkPythonClasses(node.Child(i), src, out)
	}
}

func collectPythonFields(body *sitter.Node, src []byte, entity *types.Entity) {
	for i := 0; i < int(body.ChildCount()); i++ {
		stmt := body.Child(i)
		if stmt.Type() != "expression_statement" {
			continue
		}
		for j := 0; j < int(stmt.ChildCount()); j++ {
			expr := stmt.Child(j)
			if expr.Type() != "assignment" {
				continue
			}
			leftNode := expr.ChildByFieldName("left")
			typeNode := expr.ChildByFieldName("type")
			if leftNode == nil || typeNode == nil {
				continue
			}
			name := strings.TrimSpace(leftNode.Content(src))
			typ := strings.TrimSpace(typeNode.Content(src))
			if name == "" || typ == "" {
				continue
			}
			entity.Fields = append(entity.Fields, types.EntityField{Name: name, Type: typ})
		}
	}
}
