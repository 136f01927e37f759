// Package text holds the mutable text buffer of an open document and the
// line index that maps between flat offsets and line/character positions.
//
// All offsets in this package count UTF-16 code units, the default position
// encoding of the Language Server Protocol. A character offset handed in by
// the transport can therefore be used without conversion.
package text

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf16"
)

// ErrOutOfBounds indicates an offset or position outside the current text.
var ErrOutOfBounds = errors.New("offset out of bounds")

const (
	// maxChunk is the largest chunk the buffer keeps, in code units.
	maxChunk = 1024
	// fillChunk is the size used when (re)splitting, leaving room for inserts.
	fillChunk = maxChunk / 2
)

// Buffer is a chunked rope over UTF-16 code units.
//
// Chunks are never written in place once stored: every mutation builds new
// chunk slices. Clone is therefore a shallow copy of the chunk list and the
// clone can be edited without affecting the original.
type Buffer struct {
	chunks [][]uint16
	ends   []int // ends[i] is the offset one past the last unit of chunks[i]
	length int
}

// NewBuffer creates a buffer holding text.
func NewBuffer(text string) *Buffer {
	b := &Buffer{}
	b.ReplaceAll(text)
	return b
}

// Len returns the number of code units in the buffer.
func (b *Buffer) Len() int {
	return b.length
}

// ReplaceAll discards the current content and stores text instead.
func (b *Buffer) ReplaceAll(text string) {
	b.chunks = splitUnits(encode(text))
	b.reindex()
}

// ReplaceRange removes the half-open range [start, end) and inserts newText at start.
func (b *Buffer) ReplaceRange(start, end int, newText string) error {
	if start < 0 || end < start || end > b.length {
		return fmt.Errorf("%w: range [%d, %d) in buffer of length %d", ErrOutOfBounds, start, end, b.length)
	}
	b.remove(start, end)
	if newText != "" {
		b.insert(start, encode(newText))
	}
	return nil
}

// CharAt returns the code unit at offset.
func (b *Buffer) CharAt(offset int) (uint16, error) {
	if offset < 0 || offset >= b.length {
		return 0, fmt.Errorf("%w: offset %d in buffer of length %d", ErrOutOfBounds, offset, b.length)
	}
	ci, inner := b.locate(offset)
	return b.chunks[ci][inner], nil
}

// RuneAt decodes the character starting at offset. A high surrogate followed
// by its low half decodes to the full code point.
func (b *Buffer) RuneAt(offset int) (rune, error) {
	u, err := b.CharAt(offset)
	if err != nil {
		return 0, err
	}
	if utf16.IsSurrogate(rune(u)) && offset+1 < b.length {
		next, _ := b.CharAt(offset + 1)
		if r := utf16.DecodeRune(rune(u), rune(next)); r != '\uFFFD' {
			return r, nil
		}
	}
	return rune(u), nil
}

// RuneBefore decodes the character that ends at offset.
func (b *Buffer) RuneBefore(offset int) (rune, error) {
	if offset <= 0 || offset > b.length {
		return 0, fmt.Errorf("%w: no character before offset %d", ErrOutOfBounds, offset)
	}
	u, _ := b.CharAt(offset - 1)
	if utf16.IsSurrogate(rune(u)) && offset-2 >= 0 {
		prev, _ := b.CharAt(offset - 2)
		if r := utf16.DecodeRune(rune(prev), rune(u)); r != '\uFFFD' {
			return r, nil
		}
	}
	return rune(u), nil
}

// Slice materialises the half-open range [start, end).
func (b *Buffer) Slice(start, end int) (string, error) {
	if start < 0 || end < start || end > b.length {
		return "", fmt.Errorf("%w: range [%d, %d) in buffer of length %d", ErrOutOfBounds, start, end, b.length)
	}
	units := make([]uint16, 0, end-start)
	for ci := b.chunkIndex(start); ci < len(b.chunks) && start < end; ci++ {
		chunkStart := b.ends[ci] - len(b.chunks[ci])
		lo := start - chunkStart
		hi := min(end-chunkStart, len(b.chunks[ci]))
		units = append(units, b.chunks[ci][lo:hi]...)
		start = chunkStart + hi
	}
	return string(utf16.Decode(units)), nil
}

// String materialises the whole buffer.
func (b *Buffer) String() string {
	units := make([]uint16, 0, b.length)
	for _, c := range b.chunks {
		units = append(units, c...)
	}
	return string(utf16.Decode(units))
}

// Clone returns an independent buffer sharing the immutable chunk data.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{
		chunks: make([][]uint16, len(b.chunks)),
		ends:   make([]int, len(b.ends)),
		length: b.length,
	}
	copy(c.chunks, b.chunks)
	copy(c.ends, b.ends)
	return c
}

// chunkIndex returns the chunk holding offset. offset == Len maps to the last chunk.
func (b *Buffer) chunkIndex(offset int) int {
	i := sort.Search(len(b.ends), func(i int) bool { return b.ends[i] > offset })
	if i == len(b.ends) && i > 0 {
		return i - 1
	}
	return i
}

// locate returns the chunk index and the offset inside that chunk.
func (b *Buffer) locate(offset int) (int, int) {
	ci := b.chunkIndex(offset)
	return ci, offset - (b.ends[ci] - len(b.chunks[ci]))
}

func (b *Buffer) remove(start, end int) {
	if start == end {
		return
	}
	first, lo := b.locate(start)
	last, hi := b.locate(end - 1)
	hi++

	head := b.chunks[first][:lo]
	tail := b.chunks[last][hi:]
	joined := make([]uint16, 0, len(head)+len(tail))
	joined = append(joined, head...)
	joined = append(joined, tail...)

	replacement := splitUnits(joined)
	b.chunks = spliceChunks(b.chunks, first, last+1, replacement)
	b.mergeAround(first)
	b.reindex()
}

func (b *Buffer) insert(offset int, units []uint16) {
	if len(b.chunks) == 0 {
		b.chunks = splitUnits(units)
		b.reindex()
		return
	}
	ci, inner := b.locate(offset)
	old := b.chunks[ci]
	joined := make([]uint16, 0, len(old)+len(units))
	joined = append(joined, old[:inner]...)
	joined = append(joined, units...)
	joined = append(joined, old[inner:]...)

	b.chunks = spliceChunks(b.chunks, ci, ci+1, splitUnits(joined))
	b.reindex()
}

// mergeAround folds a small chunk at i into its left neighbour when both fit in one chunk.
func (b *Buffer) mergeAround(i int) {
	if i <= 0 || i >= len(b.chunks) {
		return
	}
	left, right := b.chunks[i-1], b.chunks[i]
	if len(left)+len(right) > fillChunk {
		return
	}
	merged := make([]uint16, 0, len(left)+len(right))
	merged = append(merged, left...)
	merged = append(merged, right...)
	b.chunks = spliceChunks(b.chunks, i-1, i+1, [][]uint16{merged})
}

func (b *Buffer) reindex() {
	b.ends = b.ends[:0]
	total := 0
	for _, c := range b.chunks {
		total += len(c)
		b.ends = append(b.ends, total)
	}
	b.length = total
}

// spliceChunks replaces chunks[from:to] with repl, returning a new slice.
func spliceChunks(chunks [][]uint16, from, to int, repl [][]uint16) [][]uint16 {
	out := make([][]uint16, 0, len(chunks)-(to-from)+len(repl))
	out = append(out, chunks[:from]...)
	out = append(out, repl...)
	out = append(out, chunks[to:]...)
	return out
}

// splitUnits cuts units into chunks no larger than maxChunk. Empty input yields no chunks.
func splitUnits(units []uint16) [][]uint16 {
	if len(units) == 0 {
		return nil
	}
	if len(units) <= maxChunk {
		return [][]uint16{units}
	}
	var chunks [][]uint16
	for len(units) > 0 {
		n := min(fillChunk, len(units))
		// Keep surrogate pairs in one chunk.
		if n < len(units) && utf16.IsSurrogate(rune(units[n-1])) && units[n-1] < 0xDC00 {
			n++
		}
		chunks = append(chunks, units[:n:n])
		units = units[n:]
	}
	return chunks
}

func encode(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
