package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/observability"
	"github.com/personalens/personalens/internal/server"
)

var (
	serverHost  string
	serverPort  int
	metricsPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP observability server",
	Long: `Start the HTTP server exposing health probes, limiter state, cached
analyses, and Prometheus metrics.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit

On shutdown the server persists limiter state and flushes logs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (overrides config)")
	serveCmd.Flags().IntVar(&metricsPort, "metrics-port", 9090, "Prometheus exporter port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	observability.InitServerLogger("personalens", cfg.Logging.Level)
	logger := observability.ServerLogger

	if err := observability.InitMetrics("personalens", metricsPort); err != nil {
		logger.Error("Failed to initialize metrics", zap.Error(err))
		return err
	}

	logger.Info("Initializing server",
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("metrics_port", observability.GetMetricsPort()))

	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Warn("Store unavailable, serving without cache or persisted limits", zap.Error(err))
		db = nil
	}

	registry := buildRegistry(ctx, cfg, db)

	srv := server.New(cfg.Server, server.Options{
		Registry: registry,
		Store:    db,
		Model:    cfg.Analyzer.Model,
		Version:  versionInfo.Version,
	})

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: server first, then state, then logs.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		_ = logger.Sync()
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		persistSnapshots(ctx, db, registry)
		if db != nil {
			_ = db.Close()
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server...",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	return <-errChan
}
