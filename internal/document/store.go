package document

import (
	"context"
	"fmt"
	"hash/maphash"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mvp-joe/fluxion/internal/metrics"
)

const shardCount = 32

// entry guards one document. closed is set when the entry leaves the store
// so callers that looked it up before Close see ErrUnknownDocument.
type entry struct {
	mu     sync.RWMutex
	doc    *Document
	closed bool
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Store maps document identities to documents. Each entry has its own lock:
// updates to one document never block operations on another, and readers of
// a document never observe a half-applied update.
type Store struct {
	seed     maphash.Seed
	shards   [shardCount]shard
	analyzer *Analyzer
	logger   *zap.Logger
}

// NewStore creates an empty store.
func NewStore(analyzer *Analyzer, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		seed:     maphash.MakeSeed(),
		analyzer: analyzer,
		logger:   logger,
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*entry)
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	return &s.shards[maphash.String(s.seed, id)%shardCount]
}

// Open creates or replaces the document for id with its full text.
func (s *Store) Open(ctx context.Context, id, content string, version int32) Result {
	// parse outside any lock
	doc := New(ctx, id, content, s.analyzer)
	doc.SetVersion(version)

	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	if !ok {
		sh.entries[id] = &entry{doc: doc}
		metrics.OpenDocuments.Inc()
	}
	sh.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.doc = doc
		e.mu.Unlock()
	}

	res := doc.result(doc.Snapshot(), false)
	s.logOpen(doc, res)
	return res
}

func (s *Store) logOpen(doc *Document, res Result) {
	fields := []zap.Field{
		zap.String("uri", doc.ID()),
		zap.Int32("version", res.Version),
		zap.Int("symbols", res.Symbols),
	}
	if res.ParseErr != nil {
		s.logger.Warn("document opened with parse errors", append(fields, zap.Error(res.ParseErr))...)
	} else {
		s.logger.Info("document opened", fields...)
	}
	if res.Symbols == 0 {
		s.logger.Debug("document has no symbols", zap.String("uri", doc.ID()))
		return
	}
	if ce := s.logger.Check(zap.DebugLevel, "symbol"); ce != nil {
		for _, sym := range doc.Snapshot().Symbols() {
			s.logger.Debug("symbol",
				zap.String("uri", doc.ID()),
				zap.String("name", sym.Name),
				zap.Stringer("kind", sym.Kind),
				zap.Stringer("range", sym.Range),
			)
		}
	}
}

func (s *Store) lookup(id string) (*entry, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	e, ok := sh.entries[id]
	sh.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return e, nil
}

// Update runs fn with exclusive access to the document for id.
func (s *Store) Update(id string, fn func(*Document) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return fn(e.doc)
}

// View runs fn with shared access to the document for id. fn must not
// mutate the document.
func (s *Store) View(id string, fn func(*Document) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return fn(e.doc)
}

// Change applies an edit batch to the document for id and records version.
func (s *Store) Change(ctx context.Context, id string, version int32, edits []Edit) (Result, error) {
	var res Result
	err := s.Update(id, func(doc *Document) error {
		r, err := doc.ApplyEdits(ctx, edits)
		if err != nil {
			return err
		}
		doc.SetVersion(version)
		r.Version = version
		res = r
		return nil
	})
	return res, err
}

// Close removes id from the store and reports whether it was present.
func (s *Store) Close(id string) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	e, ok := sh.entries[id]
	delete(sh.entries, id)
	sh.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.closed = true
	e.doc = nil
	e.mu.Unlock()

	metrics.OpenDocuments.Dec()
	return true
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// IDs returns the open identities in sorted order.
func (s *Store) IDs() []string {
	var ids []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for id := range sh.entries {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()
	}
	slices.Sort(ids)
	return ids
}
