// Package hover answers "what is at this position" for a document.
package hover

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/fluxion/internal/document"
	"github.com/mvp-joe/fluxion/internal/symbols"
	"github.com/mvp-joe/fluxion/internal/text"
)

// Description is the answer to a hover query: either the symbol containing
// the position or, when there is none, the raw character under the cursor.
type Description struct {
	URI      string
	Offset   int
	Position text.Position

	// Symbol is nil for a character fallback.
	Symbol *symbols.Symbol
	Char   rune
}

// Markdown renders the description for display.
func (d *Description) Markdown() string {
	var b strings.Builder
	if d.Symbol != nil {
		fmt.Fprintf(&b, "Symbol: `%s`\n", d.Symbol.Name)
		fmt.Fprintf(&b, "Kind: %s\n", d.Symbol.Kind)
		fmt.Fprintf(&b, "Location: %s %s", d.URI, d.Symbol.Range)
		return b.String()
	}
	fmt.Fprintf(&b, "Character: `%s`\n", printable(d.Char))
	fmt.Fprintf(&b, "Offset: %d\n", d.Offset)
	fmt.Fprintf(&b, "Line: %d\n", d.Position.Line)
	fmt.Fprintf(&b, "Character: %d\n", d.Position.Character)
	fmt.Fprintf(&b, "URI: %s", d.URI)
	return b.String()
}

func printable(r rune) string {
	switch r {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	}
	return string(r)
}

// Resolve describes what is at pos in doc. The position is converted to an
// offset and back, so comparisons use the document's own line index.
//
// Positions past the end of a line resolve into the following line, as the
// offset arithmetic dictates. A position past the end of the text, on a line
// that does not exist, or in an empty document returns text.ErrOutOfBounds.
func Resolve(doc *document.Document, pos text.Position) (*Description, error) {
	snap := doc.Snapshot()
	if snap.Len() == 0 {
		return nil, fmt.Errorf("%w: document is empty", text.ErrOutOfBounds)
	}

	offset, err := snap.PositionToOffset(pos)
	if err != nil {
		return nil, err
	}
	anchored := snap.OffsetToPosition(offset)

	desc := &Description{URI: doc.ID(), Offset: offset, Position: anchored}
	if sym, ok := snap.SymbolAt(anchored); ok {
		desc.Symbol = &sym
		return desc, nil
	}

	char, err := charUnder(snap, offset, anchored)
	if err != nil {
		return nil, err
	}
	desc.Char = char
	return desc, nil
}

// charUnder returns the character at offset. A cursor sitting on a line
// terminator or at the end of the text describes the character to its left
// on the same line.
func charUnder(snap *document.Snapshot, offset int, pos text.Position) (rune, error) {
	if offset < snap.Len() {
		r, err := snap.RuneAt(offset)
		if err != nil {
			return 0, err
		}
		if (r != '\n' && r != '\r') || pos.Character == 0 {
			return r, nil
		}
	} else if pos.Character == 0 {
		return 0, fmt.Errorf("%w: offset %d is at end of text", text.ErrOutOfBounds, offset)
	}
	return snap.RuneBefore(offset)
}
