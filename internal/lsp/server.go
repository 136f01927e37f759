// Package lsp serves the document model over the Language Server Protocol:
// JSON-RPC 2.0 on a byte stream, one message handled at a time.
package lsp

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mvp-joe/fluxion/internal/config"
	"github.com/mvp-joe/fluxion/internal/document"
)

// Name is reported to clients in the initialize result.
const Name = "fluxion"

// Options configures a Server.
type Options struct {
	Store   *document.Store
	Logger  *zap.Logger
	Level   zap.AtomicLevel
	Matcher *config.Matcher // nil tracks every document
	Version string
}

// Server dispatches LSP messages to the document store.
type Server struct {
	store   *document.Store
	logger  *zap.Logger
	level   zap.AtomicLevel
	matcher atomic.Pointer[config.Matcher]
	version string
	session string

	initialized atomic.Bool
	shutdown    atomic.Bool
	exitOnce    sync.Once
	exit        chan struct{}
}

// NewServer creates a server. Each server gets its own session id, attached
// to every log line.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	session := uuid.NewString()

	s := &Server{
		store:   opts.Store,
		logger:  logger.With(zap.String("session", session)),
		level:   opts.Level,
		version: opts.Version,
		session: session,
		exit:    make(chan struct{}),
	}
	s.matcher.Store(opts.Matcher)
	return s
}

// Session returns the server's session id.
func (s *Server) Session() string {
	return s.session
}

// ApplyConfig swaps in the document filter and log level of cfg. It is safe
// to call while serving.
func (s *Server) ApplyConfig(cfg *config.Config) error {
	m, err := cfg.Matcher()
	if err != nil {
		return err
	}
	s.matcher.Store(m)

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return err
	}
	if s.level != (zap.AtomicLevel{}) {
		s.level.SetLevel(lvl)
	}
	return nil
}

// Serve reads messages from rwc until the client sends exit, the stream
// ends, or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	conn.Go(ctx, s.handle)

	s.logger.Info("language server started", zap.String("version", s.version))

	select {
	// A blocked read on stdin does not return on Close, so neither path
	// waits for the read loop.
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()

	case <-s.exit:
		conn.Close()
		if !s.shutdown.Load() {
			return errors.New("exit received before shutdown")
		}
		s.logger.Info("language server stopped")
		return nil

	case <-conn.Done():
		err := conn.Err()
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			s.logger.Info("client closed the connection")
			return nil
		}
		return err
	}
}

// tracks reports whether a newly opened document should be modelled.
// File URIs go through the configured patterns; other schemes (unsaved
// buffers) are tracked when the client says they are Python.
func (s *Server) tracks(id, languageID string) bool {
	m := s.matcher.Load()
	if m == nil {
		return true
	}
	if strings.HasPrefix(id, uri.FileScheme+"://") {
		return m.Match(filepath.ToSlash(uri.URI(id).Filename()))
	}
	return languageID == "python"
}
