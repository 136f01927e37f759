package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/mvp-joe/fluxion/internal/text"
)

// Test Plan for Table:
// - Insert overwrites by name; Get/Contains/Len reflect the latest record
// - All is ordered by start position
// - Contains uses an inclusive start and an exclusive end character on the end line
// - At picks the smallest containing span regardless of insertion order
// - Clone is independent and Equal compares records
// - Kind maps to protocol symbol kinds

func pos(line, char int) text.Position {
	return text.Position{Line: line, Character: char}
}

func TestTable_InsertOverwrites(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Insert(Symbol{Name: "x", Kind: KindVariable, Range: rng(0, 0, 0, 5)})
	tbl.Insert(Symbol{Name: "x", Kind: KindVariable, Range: rng(3, 0, 3, 5)})

	assert.Equal(t, 1, tbl.Len())
	assert.True(t, tbl.Contains("x"))
	assert.False(t, tbl.Contains("y"))

	x, ok := tbl.Get("x")
	require.True(t, ok)
	assert.Equal(t, 3, x.Range.Start.Line)
}

func TestTable_AllOrdered(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Insert(Symbol{Name: "c", Range: rng(5, 0, 5, 1)})
	tbl.Insert(Symbol{Name: "a", Range: rng(1, 0, 1, 1)})
	tbl.Insert(Symbol{Name: "b", Range: rng(1, 4, 1, 6)})

	var names []string
	for _, s := range tbl.All() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestSymbol_Contains(t *testing.T) {
	t.Parallel()

	multi := Symbol{Range: rng(0, 4, 2, 3)}
	single := Symbol{Range: rng(0, 0, 0, 5)}

	tests := []struct {
		name string
		sym  Symbol
		pos  text.Position
		want bool
	}{
		{"before start column", multi, pos(0, 3), false},
		{"at start", multi, pos(0, 4), true},
		{"middle line any column", multi, pos(1, 100), true},
		{"end line before end", multi, pos(2, 2), true},
		{"end line at end", multi, pos(2, 3), false},
		{"after end line", multi, pos(3, 0), false},
		{"single line inside", single, pos(0, 4), true},
		{"single line at end", single, pos(0, 5), false},
		{"single line other line", single, pos(1, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sym.Contains(tt.pos))
		})
	}
}

func TestTable_AtPrefersSmallestSpan(t *testing.T) {
	t.Parallel()

	outer := Symbol{Name: "outer", Kind: KindClass, Range: rng(0, 0, 10, 0)}
	inner := Symbol{Name: "inner", Kind: KindFunction, Range: rng(2, 0, 4, 0)}
	tiny := Symbol{Name: "tiny", Kind: KindVariable, Range: rng(3, 0, 3, 8)}

	for _, order := range [][]Symbol{{outer, inner, tiny}, {tiny, inner, outer}, {inner, tiny, outer}} {
		tbl := NewTable()
		for _, s := range order {
			tbl.Insert(s)
		}

		got, ok := tbl.At(pos(3, 2))
		require.True(t, ok)
		assert.Equal(t, "tiny", got.Name)

		got, ok = tbl.At(pos(2, 1))
		require.True(t, ok)
		assert.Equal(t, "inner", got.Name)

		got, ok = tbl.At(pos(8, 0))
		require.True(t, ok)
		assert.Equal(t, "outer", got.Name)

		_, ok = tbl.At(pos(11, 0))
		assert.False(t, ok)
	}
}

func TestTable_AtEqualSpansUsesName(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Insert(Symbol{Name: "zeta", Range: rng(0, 0, 0, 5)})
	tbl.Insert(Symbol{Name: "alpha", Range: rng(0, 0, 0, 5)})

	got, ok := tbl.At(pos(0, 1))
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Name)
}

func TestTable_CloneAndEqual(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Insert(Symbol{Name: "x", Kind: KindVariable, Range: rng(0, 0, 0, 5)})

	clone := tbl.Clone()
	assert.True(t, tbl.Equal(clone))

	clone.Insert(Symbol{Name: "y", Kind: KindVariable, Range: rng(1, 0, 1, 5)})
	assert.False(t, tbl.Equal(clone))
	assert.Equal(t, 1, tbl.Len())

	var nilTable *Table
	assert.False(t, tbl.Equal(nilTable))
}

func TestKind_LSP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, protocol.SymbolKindFunction, KindFunction.LSP())
	assert.Equal(t, protocol.SymbolKindClass, KindClass.LSP())
	assert.Equal(t, protocol.SymbolKindVariable, KindVariable.LSP())
	assert.Equal(t, protocol.SymbolKindModule, KindModule.LSP())
	assert.Equal(t, "Function", KindFunction.String())
}
