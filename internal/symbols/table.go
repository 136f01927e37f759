package symbols

import (
	"maps"
	"slices"

	"github.com/mvp-joe/fluxion/internal/text"
)

// Table maps a symbol name to the most recently inserted record of that name.
// It is not safe for concurrent mutation; documents own their table and
// readers receive clones.
type Table struct {
	symbols map[string]Symbol
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{symbols: make(map[string]Symbol)}
}

// Insert stores sym, replacing any earlier record with the same name.
func (t *Table) Insert(sym Symbol) {
	t.symbols[sym.Name] = sym
}

// Get returns the record for name.
func (t *Table) Get(name string) (Symbol, bool) {
	sym, ok := t.symbols[name]
	return sym, ok
}

// Contains reports whether a record named name exists.
func (t *Table) Contains(name string) bool {
	_, ok := t.symbols[name]
	return ok
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.symbols)
}

// All returns every record ordered by start position, then name.
func (t *Table) All() []Symbol {
	out := slices.Collect(maps.Values(t.symbols))
	slices.SortFunc(out, func(a, b Symbol) int {
		if c := comparePosition(a.Range.Start, b.Range.Start); c != 0 {
			return c
		}
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// At returns the symbol containing pos. When several records contain pos the
// one with the smallest span wins, then the earliest start, then the
// lexically smallest name, so the answer never depends on map order.
func (t *Table) At(pos text.Position) (Symbol, bool) {
	var (
		best  Symbol
		found bool
	)
	for _, sym := range t.symbols {
		if !sym.Contains(pos) {
			continue
		}
		if !found || lessSpan(sym, best) {
			best, found = sym, true
		}
	}
	return best, found
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	return &Table{symbols: maps.Clone(t.symbols)}
}

// Equal reports whether both tables hold the same records.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	return maps.Equal(t.symbols, other.symbols)
}
