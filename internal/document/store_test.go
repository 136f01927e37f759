package document

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mvp-joe/fluxion/internal/syntax"
)

// Test Plan for Store:
// - Open stores a document; reopening replaces it
// - Update/View/Change on unknown identities return ErrUnknownDocument
// - Change applies edits and records the version; malformed batches leave the version alone
// - Close removes the entry and later access fails
// - A held update on one document does not block another document
// - Concurrent readers never observe a half-applied edit
// - Open logs symbols at debug level and notes empty documents

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewAnalyzer(syntax.NewPythonParser(), nil, zap.NewNop()), zap.NewNop())
}

func TestStore_OpenAndReopen(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	res := s.Open(ctx, "a.py", "x = 1\n", 1)
	assert.Equal(t, int32(1), res.Version)
	assert.Equal(t, 1, res.Symbols)
	assert.Equal(t, 1, s.Len())

	s.Open(ctx, "a.py", "y = 2\nz = 3\n", 4)
	assert.Equal(t, 1, s.Len())

	err := s.View("a.py", func(doc *Document) error {
		assert.Equal(t, "y = 2\nz = 3\n", doc.Text())
		assert.Equal(t, int32(4), doc.Version())
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UnknownIdentity(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	err := s.View("missing.py", func(*Document) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownDocument)

	err = s.Update("missing.py", func(*Document) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownDocument)

	_, err = s.Change(context.Background(), "missing.py", 2, []Edit{{Text: "x"}})
	assert.ErrorIs(t, err, ErrUnknownDocument)

	assert.False(t, s.Close("missing.py"))
}

func TestStore_Change(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	s.Open(ctx, "a.py", "abcde", 1)

	res, err := s.Change(ctx, "a.py", 2, []Edit{{Range: rangeOf(0, 1, 0, 3), Text: "XY"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), res.Version)

	_, err = s.Change(ctx, "a.py", 3, []Edit{{Range: rangeOf(0, 4, 0, 2), Text: ""}})
	assert.ErrorIs(t, err, ErrMalformedEdit)

	err = s.View("a.py", func(doc *Document) error {
		assert.Equal(t, "aXYde", doc.Text())
		assert.Equal(t, int32(2), doc.Version())
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Close(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.Open(context.Background(), "a.py", "x = 1\n", 1)
	s.Open(context.Background(), "b.py", "y = 1\n", 1)
	assert.Equal(t, []string{"a.py", "b.py"}, s.IDs())

	assert.True(t, s.Close("a.py"))
	assert.False(t, s.Close("a.py"))
	assert.Equal(t, []string{"b.py"}, s.IDs())

	err := s.View("a.py", func(*Document) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownDocument)
}

func TestStore_DocumentsDoNotBlockEachOther(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	s.Open(ctx, "a.py", "x = 1\n", 1)
	s.Open(ctx, "b.py", "y = 1\n", 1)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Update("a.py", func(*Document) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	done := make(chan error, 1)
	go func() {
		_, err := s.Change(ctx, "b.py", 2, []Edit{{Text: "y = 2\n"}})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("update of b.py blocked behind a.py")
	}
}

func TestStore_ReadersSeeWholeEdits(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	s.Open(ctx, "a.py", "v0 = 0\n", 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 50; i++ {
			_, err := s.Change(ctx, "a.py", int32(i), []Edit{{Text: fmt.Sprintf("v%d = %d\n", i, i)}})
			assert.NoError(t, err)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				err := s.View("a.py", func(doc *Document) error {
					snap := doc.Snapshot()
					syms := snap.Symbols()
					if assert.Len(t, syms, 1) {
						// the single symbol is named after the text it came from
						assert.Equal(t, fmt.Sprintf("%s = %s\n", syms[0].Name, syms[0].Name[1:]), snap.Text())
					}
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestStore_OpenLogsSymbols(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	s := NewStore(NewAnalyzer(syntax.NewPythonParser(), nil, zap.NewNop()), zap.New(core))
	ctx := context.Background()

	s.Open(ctx, "a.py", "x = 1\ndef f():\n    pass\n", 1)
	assert.Equal(t, 2, logs.FilterMessage("symbol").Len())

	s.Open(ctx, "empty.py", "", 1)
	assert.Equal(t, 1, logs.FilterMessage("document has no symbols").Len())
}
