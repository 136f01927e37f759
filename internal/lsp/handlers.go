package lsp

import (
	"context"
	"errors"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/mvp-joe/fluxion/internal/document"
	"github.com/mvp-joe/fluxion/internal/hover"
	"github.com/mvp-joe/fluxion/internal/metrics"
	"github.com/mvp-joe/fluxion/internal/text"
)

// handle adapts jsonrpc2 to the method handlers. Handler failures become
// error replies; only a failed write ends the connection.
func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	result, err := s.route(ctx, req)
	if _, isCall := req.(*jsonrpc2.Call); !isCall && err != nil {
		s.logger.Warn("notification failed", zap.String("method", req.Method()), zap.Error(err))
	}
	return reply(ctx, result, err)
}

func (s *Server) route(ctx context.Context, req jsonrpc2.Request) (any, error) {
	method := req.Method()

	if s.shutdown.Load() && method != protocol.MethodExit {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down")
	}

	if !s.initialized.Load() {
		switch method {
		case protocol.MethodInitialize, protocol.MethodInitialized, protocol.MethodExit:
		default:
			return nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server not initialized")
		}
	}

	params := req.Params()
	switch method {
	// Lifecycle
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, params)
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodShutdown:
		return s.handleShutdown(ctx)
	case protocol.MethodExit:
		return s.handleExit(ctx)

	// Text document sync
	case protocol.MethodTextDocumentDidOpen:
		return s.handleDidOpen(ctx, params)
	case protocol.MethodTextDocumentDidChange:
		return s.handleDidChange(ctx, params)
	case protocol.MethodTextDocumentDidClose:
		return s.handleDidClose(ctx, params)

	// Language features
	case protocol.MethodTextDocumentHover:
		return s.handleHover(ctx, params)
	case protocol.MethodTextDocumentDocumentSymbol:
		return s.handleDocumentSymbol(ctx, params)
	}

	if _, isCall := req.(*jsonrpc2.Call); isCall {
		s.logger.Debug("unhandled method", zap.String("method", method))
		return nil, jsonrpc2.ErrMethodNotFound
	}
	// unknown notifications ($/cancelRequest, $/setTrace, ...) are dropped
	return nil, nil
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, "missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return jsonrpc2.Errorf(jsonrpc2.InvalidParams, "decoding params: %v", err)
	}
	return nil
}

// --- Lifecycle ---

type initializeParams struct {
	ClientInfo *protocol.ClientInfo `json:"clientInfo,omitempty"`
	RootURI    protocol.DocumentURI `json:"rootUri,omitempty"`
}

func (s *Server) handleInitialize(_ context.Context, raw json.RawMessage) (any, error) {
	var p initializeParams
	if len(raw) > 0 {
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
	}
	if !s.initialized.CompareAndSwap(false, true) {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server already initialized")
	}

	fields := []zap.Field{zap.String("root", string(p.RootURI))}
	if p.ClientInfo != nil {
		fields = append(fields, zap.String("client", p.ClientInfo.Name), zap.String("client_version", p.ClientInfo.Version))
	}
	s.logger.Info("initialize", fields...)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
			},
			HoverProvider:          true,
			DocumentSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    Name,
			Version: s.version,
		},
	}, nil
}

func (s *Server) handleShutdown(context.Context) (any, error) {
	s.shutdown.Store(true)
	s.logger.Info("shutdown", zap.Int("open_documents", s.store.Len()))
	return nil, nil
}

func (s *Server) handleExit(context.Context) (any, error) {
	s.exitOnce.Do(func() { close(s.exit) })
	return nil, nil
}

// --- Text document sync ---

func (s *Server) handleDidOpen(ctx context.Context, raw json.RawMessage) (any, error) {
	var p protocol.DidOpenTextDocumentParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	id := document.NormalizeURI(string(p.TextDocument.URI))
	language := string(p.TextDocument.LanguageID)
	if !s.tracks(id, language) {
		s.logger.Debug("document not tracked", zap.String("uri", id), zap.String("language", language))
		return nil, nil
	}

	s.store.Open(ctx, id, p.TextDocument.Text, p.TextDocument.Version)
	return nil, nil
}

// didChangeParams mirrors protocol.DidChangeTextDocumentParams with an
// optional range, which tells a full replacement from a ranged edit.
type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                          `json:"contentChanges"`
}

type contentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

func (s *Server) handleDidChange(ctx context.Context, raw json.RawMessage) (any, error) {
	var p didChangeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	id := document.NormalizeURI(string(p.TextDocument.URI))
	edits := make([]document.Edit, len(p.ContentChanges))
	for i, c := range p.ContentChanges {
		edits[i] = document.Edit{Text: c.Text}
		if c.Range != nil {
			r := fromProtocolRange(*c.Range)
			edits[i].Range = &r
		}
	}

	res, err := s.store.Change(ctx, id, p.TextDocument.Version, edits)
	switch {
	case errors.Is(err, document.ErrUnknownDocument):
		s.logger.Debug("change for untracked document", zap.String("uri", id))
		return nil, nil
	case errors.Is(err, document.ErrMalformedEdit):
		s.logger.Warn("edit batch rejected",
			zap.String("uri", id),
			zap.Int32("version", p.TextDocument.Version),
			zap.Error(err),
		)
		return nil, nil
	case err != nil:
		return nil, err
	}

	if res.ParseErr != nil {
		s.logger.Warn("document has parse errors, keeping previous symbols",
			zap.String("uri", id),
			zap.Int32("version", res.Version),
			zap.Error(res.ParseErr),
		)
		return nil, nil
	}
	s.logger.Debug("document changed",
		zap.String("uri", id),
		zap.Int32("version", res.Version),
		zap.Int("edits", len(edits)),
		zap.Int("symbols", res.Symbols),
		zap.Bool("cached", res.Cached),
	)
	return nil, nil
}

func (s *Server) handleDidClose(_ context.Context, raw json.RawMessage) (any, error) {
	var p protocol.DidCloseTextDocumentParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	id := document.NormalizeURI(string(p.TextDocument.URI))
	if s.store.Close(id) {
		s.logger.Info("document closed", zap.String("uri", id))
	}
	return nil, nil
}

// --- Language features ---

func (s *Server) handleHover(_ context.Context, raw json.RawMessage) (any, error) {
	var p protocol.HoverParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	id := document.NormalizeURI(string(p.TextDocument.URI))
	pos := fromProtocolPosition(p.Position)

	var desc *hover.Description
	err := s.store.View(id, func(doc *document.Document) error {
		d, err := hover.Resolve(doc, pos)
		desc = d
		return err
	})
	switch {
	case errors.Is(err, document.ErrUnknownDocument):
		metrics.Hovers.WithLabelValues(metrics.ResultUnknown).Inc()
		s.logger.Warn("hover on unknown document", zap.String("uri", id))
		return nil, nil
	case errors.Is(err, text.ErrOutOfBounds):
		metrics.Hovers.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Warn("hover position out of bounds", zap.String("uri", id), zap.Stringer("position", pos), zap.Error(err))
		return nil, nil
	case err != nil:
		metrics.Hovers.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	h := &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: desc.Markdown(),
		},
	}
	if desc.Symbol != nil {
		r := toProtocolRange(desc.Symbol.Range)
		h.Range = &r
		metrics.Hovers.WithLabelValues(metrics.ResultSymbol).Inc()
	} else {
		metrics.Hovers.WithLabelValues(metrics.ResultFallback).Inc()
	}
	return h, nil
}

func (s *Server) handleDocumentSymbol(_ context.Context, raw json.RawMessage) (any, error) {
	var p protocol.DocumentSymbolParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	id := document.NormalizeURI(string(p.TextDocument.URI))
	var out []protocol.SymbolInformation
	err := s.store.View(id, func(doc *document.Document) error {
		syms := doc.Snapshot().Symbols()
		out = make([]protocol.SymbolInformation, 0, len(syms))
		for _, sym := range syms {
			out = append(out, protocol.SymbolInformation{
				Name: sym.Name,
				Kind: sym.Kind.LSP(),
				Location: protocol.Location{
					URI:   protocol.DocumentURI(id),
					Range: toProtocolRange(sym.Range),
				},
			})
		}
		return nil
	})
	if errors.Is(err, document.ErrUnknownDocument) {
		return []protocol.SymbolInformation{}, nil
	}
	return out, err
}
