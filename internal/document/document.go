// Package document holds the in-memory model of open files: text buffer,
// line index, syntax state and symbol table, replaced together on every edit.
package document

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mvp-joe/fluxion/internal/metrics"
	"github.com/mvp-joe/fluxion/internal/symbols"
	"github.com/mvp-joe/fluxion/internal/syntax"
	"github.com/mvp-joe/fluxion/internal/text"
)

// Edit is one change in a batch. A nil Range replaces the whole document.
type Edit struct {
	Range *text.Range
	Text  string
}

// Result summarizes a committed change.
type Result struct {
	Version int32
	Symbols int
	// ParseErr is set when the new text failed to parse; the previous
	// symbols were kept.
	ParseErr error
	Cached   bool
}

// SyntaxState is either Parsed or Failed.
type SyntaxState interface {
	syntaxState()
}

// Parsed is the state after a successful parse.
type Parsed struct {
	Module *syntax.Module
}

// Failed is the state after a failed parse. LastGood is the most recent
// module that did parse, or nil if none has.
type Failed struct {
	Err      error
	LastGood *syntax.Module
}

func (Parsed) syntaxState() {}
func (Failed) syntaxState() {}

// Snapshot is an immutable view of a document at one point in time.
type Snapshot struct {
	buf     *text.Buffer
	content string
	lines   *text.LineIndex
	syntax  SyntaxState
	symbols *symbols.Table
}

// Document is a single open file. Reads are safe at any time; ApplyEdits
// calls must be serialized by the caller (the Store does this per entry).
type Document struct {
	id       string
	analyzer *Analyzer
	version  atomic.Int32
	snap     atomic.Pointer[Snapshot]
}

// New builds a document from its initial text. A parse failure leaves the
// symbol table empty.
func New(ctx context.Context, id, content string, analyzer *Analyzer) *Document {
	d := &Document{id: id, analyzer: analyzer}
	snap, _ := d.analyze(ctx, text.NewBuffer(content), content, nil)
	d.snap.Store(snap)
	return d
}

// ApplyEdits applies edits in order and commits the new text, line index,
// syntax state and symbols as one unit. Ranged edits are resolved against the
// line index of the text produced by the edits before them.
//
// A malformed edit returns ErrMalformedEdit and nothing is committed. A parse
// failure is not an error: the edit is committed, Result.ParseErr is set and
// the previous symbols stay in place.
func (d *Document) ApplyEdits(ctx context.Context, edits []Edit) (Result, error) {
	cur := d.snap.Load()
	if len(edits) == 0 {
		return d.result(cur, false), nil
	}

	buf := cur.buf.Clone()
	lines := cur.lines
	for i, e := range edits {
		if e.Range == nil {
			buf.ReplaceAll(e.Text)
			lines = nil
			continue
		}
		if lines == nil {
			lines = text.BuildLineIndex(buf.String())
		}
		if err := applyRanged(buf, lines, *e.Range, e.Text); err != nil {
			metrics.Edits.WithLabelValues(metrics.OutcomeMalformed).Inc()
			return Result{}, fmt.Errorf("%w: edit %d of %d: %w", ErrMalformedEdit, i+1, len(edits), err)
		}
		lines = nil
	}

	next, cached := d.analyze(ctx, buf, buf.String(), cur)
	d.snap.Store(next)
	metrics.Edits.WithLabelValues(metrics.OutcomeOK).Inc()
	return d.result(next, cached), nil
}

func applyRanged(buf *text.Buffer, lines *text.LineIndex, r text.Range, newText string) error {
	start, err := lines.PositionToOffset(r.Start)
	if err != nil {
		return err
	}
	end, err := lines.PositionToOffset(r.End)
	if err != nil {
		return err
	}
	return buf.ReplaceRange(start, end, newText)
}

// analyze builds the snapshot for content. prev is the committed snapshot
// whose symbols survive a parse failure; nil on creation.
func (d *Document) analyze(ctx context.Context, buf *text.Buffer, content string, prev *Snapshot) (*Snapshot, bool) {
	an, cached := d.analyzer.Analyze(ctx, content)

	snap := &Snapshot{buf: buf, content: content, lines: an.Lines}
	if an.Err == nil {
		snap.syntax = Parsed{Module: an.Module}
		snap.symbols = an.Symbols
		return snap, cached
	}

	failed := Failed{Err: an.Err}
	snap.symbols = symbols.NewTable()
	if prev != nil {
		failed.LastGood = prev.lastGood()
		snap.symbols = prev.symbols
	}
	snap.syntax = failed
	return snap, cached
}

func (d *Document) result(s *Snapshot, cached bool) Result {
	r := Result{Version: d.Version(), Symbols: s.symbols.Len(), Cached: cached}
	if f, ok := s.syntax.(Failed); ok {
		r.ParseErr = f.Err
	}
	return r
}

// ID returns the document identity.
func (d *Document) ID() string { return d.id }

// Version returns the client version of the last committed change.
func (d *Document) Version() int32 { return d.version.Load() }

// SetVersion records the client version.
func (d *Document) SetVersion(v int32) { d.version.Store(v) }

// Snapshot returns the current committed state.
func (d *Document) Snapshot() *Snapshot { return d.snap.Load() }

// Text returns the full current text.
func (d *Document) Text() string { return d.Snapshot().content }

// Symbols returns a copy of the current symbol table.
func (d *Document) Symbols() *symbols.Table { return d.Snapshot().symbols.Clone() }

// LineOf returns the line containing offset.
func (d *Document) LineOf(offset int) int { return d.Snapshot().LineOf(offset) }

// PositionToOffset converts a position in the current text to an offset.
func (d *Document) PositionToOffset(pos text.Position) (int, error) {
	return d.Snapshot().PositionToOffset(pos)
}

// OffsetToPosition converts an offset in the current text to a position.
func (d *Document) OffsetToPosition(offset int) text.Position {
	return d.Snapshot().OffsetToPosition(offset)
}

func (s *Snapshot) lastGood() *syntax.Module {
	switch st := s.syntax.(type) {
	case Parsed:
		return st.Module
	case Failed:
		return st.LastGood
	}
	return nil
}

// Text returns the snapshot's full text.
func (s *Snapshot) Text() string { return s.content }

// Len returns the text length in UTF-16 code units.
func (s *Snapshot) Len() int { return s.buf.Len() }

// Syntax returns the parse state.
func (s *Snapshot) Syntax() SyntaxState { return s.syntax }

// Lines returns the line index.
func (s *Snapshot) Lines() *text.LineIndex { return s.lines }

// LineOf returns the line containing offset.
func (s *Snapshot) LineOf(offset int) int { return s.lines.OffsetToLine(offset) }

// PositionToOffset converts pos to an offset.
func (s *Snapshot) PositionToOffset(pos text.Position) (int, error) {
	return s.lines.PositionToOffset(pos)
}

// OffsetToPosition converts offset to a position.
func (s *Snapshot) OffsetToPosition(offset int) text.Position {
	return s.lines.OffsetToPosition(offset)
}

// RuneAt returns the character starting at offset.
func (s *Snapshot) RuneAt(offset int) (rune, error) { return s.buf.RuneAt(offset) }

// RuneBefore returns the character ending at offset.
func (s *Snapshot) RuneBefore(offset int) (rune, error) { return s.buf.RuneBefore(offset) }

// SymbolAt returns the symbol whose range contains pos.
func (s *Snapshot) SymbolAt(pos text.Position) (symbols.Symbol, bool) { return s.symbols.At(pos) }

// Symbols returns the symbols ordered by position.
func (s *Snapshot) Symbols() []symbols.Symbol { return s.symbols.All() }
