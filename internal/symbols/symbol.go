// Package symbols extracts top-level symbol records from a parsed module and
// keeps them in a name-keyed table.
package symbols

import (
	"go.lsp.dev/protocol"

	"github.com/mvp-joe/fluxion/internal/text"
)

// Kind is the category of a symbol.
type Kind int

const (
	KindFunction Kind = iota + 1
	KindClass
	KindVariable
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "Function"
	case KindClass:
		return "Class"
	case KindVariable:
		return "Variable"
	case KindModule:
		return "Module"
	default:
		return "Unknown"
	}
}

// LSP maps the kind onto the protocol's symbol kinds.
func (k Kind) LSP() protocol.SymbolKind {
	switch k {
	case KindFunction:
		return protocol.SymbolKindFunction
	case KindClass:
		return protocol.SymbolKindClass
	case KindModule:
		return protocol.SymbolKindModule
	default:
		return protocol.SymbolKindVariable
	}
}

// Symbol is a named, kinded and ranged top-level definition.
type Symbol struct {
	Name  string
	Kind  Kind
	Range text.Range
}

// Contains reports whether pos lies within the symbol's range. The start is
// inclusive and the end character exclusive on the end line.
func (s Symbol) Contains(pos text.Position) bool {
	start, end := s.Range.Start, s.Range.End
	if pos.Line < start.Line || pos.Line > end.Line {
		return false
	}
	if pos.Line == start.Line && pos.Character < start.Character {
		return false
	}
	if pos.Line == end.Line && pos.Character >= end.Character {
		return false
	}
	return true
}

// lessSpan orders symbols by span size (lines, then characters), then by
// start position, then by name.
func lessSpan(a, b Symbol) bool {
	al, bl := a.Range.End.Line-a.Range.Start.Line, b.Range.End.Line-b.Range.Start.Line
	if al != bl {
		return al < bl
	}
	if al == 0 {
		ac := a.Range.End.Character - a.Range.Start.Character
		bc := b.Range.End.Character - b.Range.Start.Character
		if ac != bc {
			return ac < bc
		}
	}
	if c := comparePosition(a.Range.Start, b.Range.Start); c != 0 {
		return c < 0
	}
	return a.Name < b.Name
}

func comparePosition(a, b text.Position) int {
	switch {
	case a.Line != b.Line:
		return a.Line - b.Line
	default:
		return a.Character - b.Character
	}
}
