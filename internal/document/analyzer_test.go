package document

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mvp-joe/fluxion/internal/syntax"
)

// Test Plan for Analyzer and AnalysisCache:
// - Analyzing the same text twice parses once when a cache is configured
// - Parse failures are cached; cancellations are not
// - Without a cache every call parses
// - NewAnalysisCache rejects a non-positive capacity
// - NormalizeURI re-encodes file URIs and keeps other schemes

type countingParser struct {
	inner syntax.Parser
	calls atomic.Int32
}

func (p *countingParser) Parse(ctx context.Context, src []byte) (*syntax.Module, error) {
	p.calls.Add(1)
	return p.inner.Parse(ctx, src)
}

func TestAnalyzer_Cache(t *testing.T) {
	t.Parallel()

	cache, err := NewAnalysisCache(16, time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	parser := &countingParser{inner: syntax.NewPythonParser()}
	a := NewAnalyzer(parser, cache, zap.NewNop())
	ctx := context.Background()

	first, cached := a.Analyze(ctx, "x = 1\n")
	assert.False(t, cached)
	second, cached := a.Analyze(ctx, "x = 1\n")
	assert.True(t, cached)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), parser.calls.Load())

	bad, _ := a.Analyze(ctx, "def (:\n")
	require.Error(t, bad.Err)
	_, cached = a.Analyze(ctx, "def (:\n")
	assert.True(t, cached)
	assert.Equal(t, int32(2), parser.calls.Load())
}

func TestAnalyzer_CancelledNotCached(t *testing.T) {
	t.Parallel()

	cache, err := NewAnalysisCache(16, 0)
	require.NoError(t, err)
	defer cache.Close()

	a := NewAnalyzer(syntax.NewPythonParser(), cache, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, _ := a.Analyze(ctx, "x = 1\n")
	assert.ErrorIs(t, res.Err, context.Canceled)

	res, cached := a.Analyze(context.Background(), "x = 1\n")
	assert.False(t, cached)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.Symbols.Len())
}

func TestAnalyzer_NoCache(t *testing.T) {
	t.Parallel()

	parser := &countingParser{inner: syntax.NewPythonParser()}
	a := NewAnalyzer(parser, nil, nil)

	a.Analyze(context.Background(), "x = 1\n")
	a.Analyze(context.Background(), "x = 1\n")
	assert.Equal(t, int32(2), parser.calls.Load())
}

func TestNewAnalysisCache_InvalidCapacity(t *testing.T) {
	t.Parallel()

	_, err := NewAnalysisCache(0, 0)
	assert.Error(t, err)
}

func TestNormalizeURI(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file:///tmp/a.py", NormalizeURI("file:///tmp/a.py"))
	assert.Equal(t, NormalizeURI("file:///tmp/my%20file.py"), NormalizeURI("file:///tmp/my file.py"))
	assert.Equal(t, "untitled:Untitled-1", NormalizeURI("untitled:Untitled-1"))
}
