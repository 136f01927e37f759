package syntax

import (
	"context"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser turns full source text into a Module. Implementations must be safe
// for concurrent use.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*Module, error)
}

// PythonParser parses Python source with tree-sitter.
type PythonParser struct {
	language *sitter.Language
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{
		language: sitter.NewLanguage(python.Language()),
	}
}

// Parse parses src in full. A tree containing error or missing nodes is
// reported as a *ParseError; no partial module is returned in that case.
func (p *PythonParser) Parse(ctx context.Context, src []byte) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// tree-sitter parsers are not safe for concurrent use, so each call gets its own
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set python language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root)
	}

	mod := &Module{}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		mod.Statements = append(mod.Statements, convertStatement(child, src))
	}
	return mod, nil
}

// convertStatement maps one module-level node to a Statement.
func convertStatement(node *sitter.Node, src []byte) Statement {
	span := Span{Start: int(node.StartByte()), End: int(node.EndByte())}

	switch node.Kind() {
	case "decorated_definition":
		// The statement span covers the decorators, like the definition itself.
		def := node.ChildByFieldName("definition")
		if def == nil {
			return Statement{Kind: StmtOther, Span: span}
		}
		stmt := convertStatement(def, src)
		stmt.Span = span
		return stmt

	case "function_definition":
		return Statement{Kind: StmtFunctionDef, Span: span, Name: fieldText(node, "name", src)}

	case "class_definition":
		return Statement{Kind: StmtClassDef, Span: span, Name: fieldText(node, "name", src)}

	case "expression_statement":
		return convertExpressionStatement(node, span, src)

	case "for_statement":
		return Statement{
			Kind:    StmtFor,
			Span:    span,
			Targets: []Target{toTarget(node.ChildByFieldName("left"), src)},
		}

	case "import_statement":
		stmt := Statement{Kind: StmtImport, Span: span}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if name := importedName(node.NamedChild(i), src); name != "" {
				stmt.Modules = append(stmt.Modules, name)
			}
		}
		return stmt

	case "import_from_statement":
		return Statement{
			Kind: StmtImportFrom,
			Span: span,
			From: sourceModule(node.ChildByFieldName("module_name"), src),
		}

	case "future_import_statement":
		return Statement{Kind: StmtImportFrom, Span: span, From: "__future__"}
	}

	return Statement{Kind: StmtOther, Span: span}
}

// convertExpressionStatement recognises plain and annotated assignments.
func convertExpressionStatement(node *sitter.Node, span Span, src []byte) Statement {
	if node.NamedChildCount() == 0 {
		return Statement{Kind: StmtOther, Span: span}
	}
	assign := node.NamedChild(0)
	if assign == nil || assign.Kind() != "assignment" {
		return Statement{Kind: StmtOther, Span: span}
	}

	if assign.ChildByFieldName("type") != nil {
		return Statement{
			Kind:    StmtAnnAssign,
			Span:    span,
			Targets: []Target{toTarget(assign.ChildByFieldName("left"), src)},
		}
	}

	// a = b = 1 nests as assignment(a, assignment(b, 1))
	stmt := Statement{Kind: StmtAssign, Span: span}
	for n := assign; n != nil && n.Kind() == "assignment"; n = n.ChildByFieldName("right") {
		stmt.Targets = append(stmt.Targets, toTarget(n.ChildByFieldName("left"), src))
	}
	return stmt
}

// importedName returns the module name of a dotted_name or aliased_import.
func importedName(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "dotted_name":
		return node.Utf8Text(src)
	case "aliased_import":
		return fieldText(node, "name", src)
	}
	return ""
}

// sourceModule returns the module of an import-from without its leading dots.
func sourceModule(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "dotted_name":
		return node.Utf8Text(src)
	case "relative_import":
		if name := findChildByType(node, "dotted_name"); name != nil {
			return name.Utf8Text(src)
		}
	}
	return ""
}

func toTarget(node *sitter.Node, src []byte) Target {
	if node == nil {
		return Target{}
	}
	return Target{
		Identifier: node.Kind() == "identifier",
		Text:       node.Utf8Text(src),
	}
}

// fieldText extracts the text of a named field, or "" when absent.
func fieldText(node *sitter.Node, field string, src []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Utf8Text(src)
}

// firstError finds the first error or missing node in document order.
func firstError(root *sitter.Node) *ParseError {
	var found *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})

	if found == nil {
		return &ParseError{Kind: "syntax error"}
	}
	kind := "syntax error"
	if found.IsMissing() {
		kind = "missing " + found.Kind()
	}
	pos := found.StartPosition()
	return &ParseError{Row: int(pos.Row), Column: int(pos.Column), Kind: kind}
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

var _ Parser = (*PythonParser)(nil)
