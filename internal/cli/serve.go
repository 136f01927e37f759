package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/fluxion/internal/config"
	"github.com/mvp-joe/fluxion/internal/document"
	"github.com/mvp-joe/fluxion/internal/lsp"
	"github.com/mvp-joe/fluxion/internal/metrics"
	"github.com/mvp-joe/fluxion/internal/syntax"
)

var (
	serveMetricsAddr string
	serveNoWatch     bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the language server on stdio",
	Long: `Serve speaks the Language Server Protocol on stdin/stdout. Logs go to
stderr as JSON.

The server:
  - Tracks Python documents as the editor opens, edits and closes them
  - Keeps the last good symbols while a document does not parse
  - Answers hover with the innermost top-level symbol, or the character
    under the cursor
  - Reloads .fluxion/config.yml when it changes (log level, document filter)

Examples:
  # Start the server (editors launch this)
  fluxion serve

  # Expose Prometheus metrics while serving
  fluxion serve --metrics-addr 127.0.0.1:9464
`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload configuration on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfigFromDir(projectDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = serveMetricsAddr
	}

	logger, level, err := newLogger(cfg.Log.Level, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	analyzer, err := newAnalyzer(cfg, logger)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	matcher, err := cfg.Matcher()
	if err != nil {
		return err
	}

	srv := lsp.NewServer(lsp.Options{
		Store:   document.NewStore(analyzer, logger),
		Logger:  logger,
		Level:   level,
		Matcher: matcher,
		Version: Version,
	})

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	if !serveNoWatch {
		stopWatch := watchConfig(ctx, srv, logger)
		defer stopWatch()
	}

	err = srv.Serve(ctx, stdio{})
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted")
		return nil
	}
	return err
}

// newAnalyzer builds the shared analyzer, with a result cache when enabled.
func newAnalyzer(cfg *config.Config, logger *zap.Logger) (*document.Analyzer, error) {
	var cache *document.AnalysisCache
	if cfg.Cache.Enabled {
		c, err := document.NewAnalysisCache(cfg.Cache.Capacity, cfg.Cache.TTL())
		if err != nil {
			return nil, fmt.Errorf("failed to create analysis cache: %w", err)
		}
		cache = c
	}
	return document.NewAnalyzer(syntax.NewPythonParser(), cache, logger), nil
}

// watchConfig applies config edits to the running server. Projects without
// a .fluxion directory run with the configuration they started with.
func watchConfig(ctx context.Context, srv *lsp.Server, logger *zap.Logger) func() {
	w, err := config.NewWatcher(config.NewLoader(projectDir), logger)
	if err != nil {
		logger.Debug("config watching disabled", zap.Error(err))
		return func() {}
	}

	err = w.Start(ctx, func(cfg *config.Config) {
		if err := srv.ApplyConfig(cfg); err != nil {
			logger.Warn("failed to apply configuration", zap.Error(err))
		}
	})
	if err != nil {
		w.Stop()
		logger.Warn("config watching disabled", zap.Error(err))
		return func() {}
	}
	return func() { w.Stop() }
}

// stdio joins stdin and stdout into one stream.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdio) Close() error {
	return errors.Join(os.Stdin.Close(), os.Stdout.Close())
}
