package document

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/maypok86/otter"
	"go.uber.org/zap"

	"github.com/mvp-joe/fluxion/internal/metrics"
	"github.com/mvp-joe/fluxion/internal/symbols"
	"github.com/mvp-joe/fluxion/internal/syntax"
	"github.com/mvp-joe/fluxion/internal/text"
)

// Analysis is everything derived from one text: its line index, the parsed
// module and the symbol table. Values are shared between documents and must
// not be mutated.
type Analysis struct {
	Lines   *text.LineIndex
	Module  *syntax.Module
	Symbols *symbols.Table
	// Err is set when the text failed to parse; Module and Symbols are nil.
	Err error
}

// AnalysisCache memoizes analyses by content hash, so reopening a file or
// undoing back to a known text skips the parse.
type AnalysisCache struct {
	cache otter.Cache[[sha256.Size]byte, *Analysis]
}

// NewAnalysisCache creates a cache holding up to capacity analyses. A zero ttl
// keeps entries until evicted by size.
func NewAnalysisCache(capacity int, ttl time.Duration) (*AnalysisCache, error) {
	builder, err := otter.NewBuilder[[sha256.Size]byte, *Analysis](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}
	builder = builder.CollectStats()

	var cache otter.Cache[[sha256.Size]byte, *Analysis]
	if ttl > 0 {
		cache, err = builder.WithTTL(ttl).Build()
	} else {
		cache, err = builder.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis cache: %w", err)
	}
	return &AnalysisCache{cache: cache}, nil
}

// Get returns the cached analysis of content.
func (c *AnalysisCache) Get(content string) (*Analysis, bool) {
	return c.cache.Get(sha256.Sum256([]byte(content)))
}

// Set stores the analysis of content.
func (c *AnalysisCache) Set(content string, a *Analysis) {
	c.cache.Set(sha256.Sum256([]byte(content)), a)
}

// Size returns the number of cached analyses.
func (c *AnalysisCache) Size() int {
	return c.cache.Size()
}

// HitRatio returns the fraction of lookups served from the cache.
func (c *AnalysisCache) HitRatio() float64 {
	return c.cache.Stats().Ratio()
}

// Close releases the cache's background resources.
func (c *AnalysisCache) Close() {
	c.cache.Close()
}

// Analyzer turns text into an Analysis: line index, parse and extraction.
type Analyzer struct {
	parser syntax.Parser
	cache  *AnalysisCache
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer. cache may be nil to disable memoization.
func NewAnalyzer(parser syntax.Parser, cache *AnalysisCache, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{parser: parser, cache: cache, logger: logger}
}

// Analyze derives an Analysis from content. The boolean reports a cache hit.
// Parse failures are recorded in Analysis.Err, never returned as an error.
func (a *Analyzer) Analyze(ctx context.Context, content string) (*Analysis, bool) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(content); ok {
			metrics.Parses.WithLabelValues(metrics.OutcomeCached).Inc()
			return cached, true
		}
	}

	start := time.Now()
	defer metrics.ObserveParse(start)

	src := []byte(content)
	result := &Analysis{Lines: text.BuildLineIndex(content)}

	mod, err := a.parser.Parse(ctx, src)
	if err != nil {
		metrics.Parses.WithLabelValues(metrics.OutcomeFailed).Inc()
		result.Err = err
		// cancellation says nothing about the text itself
		if errors.Is(err, syntax.ErrParseFailure) && a.cache != nil {
			a.cache.Set(content, result)
		}
		return result, false
	}

	metrics.Parses.WithLabelValues(metrics.OutcomeOK).Inc()
	result.Module = mod
	result.Symbols = symbols.BuildTable(mod, result.Lines, src)
	if a.cache != nil {
		a.cache.Set(content, result)
	}
	return result, false
}

// Close releases the analyzer's cache.
func (a *Analyzer) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}
