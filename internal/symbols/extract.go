package symbols

import (
	"github.com/mvp-joe/fluxion/internal/syntax"
	"github.com/mvp-joe/fluxion/internal/text"
)

// UnknownModule names an import-from whose source module is absent, as in
// "from . import x".
const UnknownModule = "unknown"

// Extract produces at most one record per top-level statement of mod, in
// statement order. src must be the text mod was parsed from and idx its line
// index; statement byte spans are converted to positions through idx.
func Extract(mod *syntax.Module, idx *text.LineIndex, src []byte) []Symbol {
	if mod == nil {
		return nil
	}

	var out []Symbol
	for _, stmt := range mod.Statements {
		name, kind, ok := classify(stmt)
		if !ok {
			continue
		}
		out = append(out, Symbol{
			Name:  name,
			Kind:  kind,
			Range: spanRange(stmt.Span, idx, src),
		})
	}
	return out
}

// BuildTable extracts the symbols of mod and inserts them in statement order,
// so the last definition of a name wins.
func BuildTable(mod *syntax.Module, idx *text.LineIndex, src []byte) *Table {
	t := NewTable()
	for _, sym := range Extract(mod, idx, src) {
		t.Insert(sym)
	}
	return t
}

func classify(stmt syntax.Statement) (string, Kind, bool) {
	switch stmt.Kind {
	case syntax.StmtFunctionDef:
		return stmt.Name, KindFunction, stmt.Name != ""
	case syntax.StmtClassDef:
		return stmt.Name, KindClass, stmt.Name != ""
	case syntax.StmtAssign, syntax.StmtAnnAssign, syntax.StmtFor:
		// only the first target counts, and only when it is a bare name
		if len(stmt.Targets) == 0 || !stmt.Targets[0].Identifier {
			return "", 0, false
		}
		return stmt.Targets[0].Text, KindVariable, true
	case syntax.StmtImport:
		if len(stmt.Modules) == 0 {
			return "", 0, false
		}
		return stmt.Modules[0], KindModule, true
	case syntax.StmtImportFrom:
		if stmt.From == "" {
			return UnknownModule, KindModule, true
		}
		return stmt.From, KindModule, true
	}
	return "", 0, false
}

func spanRange(span syntax.Span, idx *text.LineIndex, src []byte) text.Range {
	return text.Range{
		Start: idx.OffsetToPosition(idx.ByteToOffset(src, span.Start)),
		End:   idx.OffsetToPosition(idx.ByteToOffset(src, span.End)),
	}
}
