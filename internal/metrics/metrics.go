// Package metrics exposes prometheus instruments for the document model and
// an optional /metrics listener.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// Edits counts applied edit batches by outcome (ok, malformed).
	Edits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxion_edit_batches_total",
		Help: "Edit batches applied to documents by outcome",
	}, []string{"outcome"})

	// Parses counts full re-parses by outcome (ok, failed, cached).
	Parses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxion_parses_total",
		Help: "Full document parses by outcome",
	}, []string{"outcome"})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fluxion_parse_duration_seconds",
		Help:    "Duration of a full parse and symbol extraction",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	// Hovers counts hover queries by result (symbol, fallback, unknown, error).
	Hovers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxion_hover_queries_total",
		Help: "Hover queries by result",
	}, []string{"result"})

	OpenDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fluxion_open_documents",
		Help: "Documents currently tracked by the store",
	})
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeCached    = "cached"
	OutcomeMalformed = "malformed"

	ResultSymbol   = "symbol"
	ResultFallback = "fallback"
	ResultUnknown  = "unknown"
	ResultError    = "error"
)

// ObserveParse records the duration since start.
func ObserveParse(start time.Time) {
	ParseDuration.Observe(time.Since(start).Seconds())
}

// Serve exposes the default registry on addr until ctx is cancelled. An empty
// addr disables the listener.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
