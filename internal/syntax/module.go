// Package syntax adapts the tree-sitter Python grammar into a small,
// Go-native view of a module's top-level statements.
//
// The tree-sitter tree lives in cgo memory and must be closed; the adapter
// converts what the extractor needs into plain Go values and closes the tree
// before returning, so a Module can be shared freely between goroutines.
package syntax

import (
	"errors"
	"fmt"
)

// ErrParseFailure indicates the text does not conform to the grammar.
var ErrParseFailure = errors.New("parse failure")

// ParseError describes where parsing failed. It wraps ErrParseFailure.
type ParseError struct {
	Row    int // zero-based line of the first error node
	Column int // zero-based byte column of the first error node
	Kind   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s at line %d, byte column %d", ErrParseFailure, e.Kind, e.Row, e.Column)
}

func (e *ParseError) Unwrap() error {
	return ErrParseFailure
}

// StatementKind classifies a top-level statement.
type StatementKind int

const (
	StmtOther StatementKind = iota
	StmtFunctionDef
	StmtClassDef
	StmtAssign
	StmtAnnAssign
	StmtFor
	StmtImport
	StmtImportFrom
)

func (k StatementKind) String() string {
	switch k {
	case StmtFunctionDef:
		return "function_definition"
	case StmtClassDef:
		return "class_definition"
	case StmtAssign:
		return "assignment"
	case StmtAnnAssign:
		return "annotated_assignment"
	case StmtFor:
		return "for"
	case StmtImport:
		return "import"
	case StmtImportFrom:
		return "import_from"
	default:
		return "other"
	}
}

// Target is an assignment or loop target.
type Target struct {
	// Identifier is true when the target is a bare name.
	Identifier bool
	Text       string
}

// Span is a half-open UTF-8 byte range into the parsed source.
type Span struct {
	Start int
	End   int
}

// Statement is one top-level statement.
type Statement struct {
	Kind StatementKind
	Span Span

	// Name is the declared name of a function or class.
	Name string
	// Targets holds assignment targets left to right, or the single
	// target of an annotated assignment or for-loop.
	Targets []Target
	// Modules lists imported module names in source order.
	Modules []string
	// From is the source module of an import-from; empty when the
	// statement is a bare relative import such as "from . import x".
	From string
}

// Module is the parsed top level of a source file.
type Module struct {
	Statements []Statement
}
