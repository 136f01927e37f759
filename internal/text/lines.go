package text

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// Position is a zero-based line/character pair. Character counts UTF-16
// code units from the start of the line.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a start/end pair of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// LineIndex maps line numbers to the offset of their first character.
//
// Lines end at "\n", "\r\n" or "\r". A trailing line without terminator is a
// line, and a text ending in a terminator has an empty last line so a cursor
// placed after the final newline stays addressable. starts[0] is always 0.
type LineIndex struct {
	starts     []int // code-unit offset of each line
	byteStarts []int // UTF-8 byte offset of each line
	length     int   // total code units
}

// BuildLineIndex scans text once and records every line start.
func BuildLineIndex(text string) *LineIndex {
	idx := &LineIndex{
		starts:     []int{0},
		byteStarts: []int{0},
	}
	units := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		units += runeUnits(r)
		switch r {
		case '\r':
			if i < len(text) && text[i] == '\n' {
				continue
			}
			idx.starts = append(idx.starts, units)
			idx.byteStarts = append(idx.byteStarts, i)
		case '\n':
			idx.starts = append(idx.starts, units)
			idx.byteStarts = append(idx.byteStarts, i)
		}
	}
	idx.length = units
	return idx
}

// LineCount returns the number of lines, at least 1.
func (idx *LineIndex) LineCount() int {
	return len(idx.starts)
}

// Len returns the length in code units of the text the index was built from.
func (idx *LineIndex) Len() int {
	return idx.length
}

// LineStart returns the offset of the first character of line.
func (idx *LineIndex) LineStart(line int) (int, error) {
	if line < 0 || line >= len(idx.starts) {
		return 0, fmt.Errorf("%w: line %d of %d", ErrOutOfBounds, line, len(idx.starts))
	}
	return idx.starts[line], nil
}

// Starts returns a copy of the line start offsets.
func (idx *LineIndex) Starts() []int {
	out := make([]int, len(idx.starts))
	copy(out, idx.starts)
	return out
}

// OffsetToLine returns the greatest line whose start is <= offset.
func (idx *LineIndex) OffsetToLine(offset int) int {
	i := sort.SearchInts(idx.starts, offset)
	if i < len(idx.starts) && idx.starts[i] == offset {
		return i
	}
	if i == 0 {
		return 0
	}
	return i - 1
}

// OffsetToColumn returns offset relative to the start of line.
func (idx *LineIndex) OffsetToColumn(offset, line int) int {
	return offset - idx.starts[line]
}

// OffsetToPosition converts a flat offset to a line/character pair.
func (idx *LineIndex) OffsetToPosition(offset int) Position {
	line := idx.OffsetToLine(offset)
	return Position{Line: line, Character: idx.OffsetToColumn(offset, line)}
}

// PositionToOffset returns starts[line] + character. The result must not
// exceed the text length; characters past the end of a line are not clamped.
func (idx *LineIndex) PositionToOffset(pos Position) (int, error) {
	start, err := idx.LineStart(pos.Line)
	if err != nil {
		return 0, err
	}
	if pos.Character < 0 {
		return 0, fmt.Errorf("%w: negative character %d", ErrOutOfBounds, pos.Character)
	}
	offset := start + pos.Character
	if offset > idx.length {
		return 0, fmt.Errorf("%w: position %s resolves to offset %d past length %d", ErrOutOfBounds, pos, offset, idx.length)
	}
	return offset, nil
}

// ByteToOffset converts a UTF-8 byte offset into src to a code-unit offset.
// src must be the text the index was built from.
func (idx *LineIndex) ByteToOffset(src []byte, byteOffset int) int {
	byteOffset = max(0, min(byteOffset, len(src)))
	line := sort.SearchInts(idx.byteStarts, byteOffset+1) - 1
	line = max(line, 0)
	units := 0
	for i := idx.byteStarts[line]; i < byteOffset; {
		r, size := utf8.DecodeRune(src[i:])
		i += size
		units += runeUnits(r)
	}
	return idx.starts[line] + units
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
