package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/browser"
	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core/engine"
	"github.com/personalens/personalens/internal/core/store"
	"github.com/personalens/personalens/internal/observability"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// buildRegistry constructs the per-service limiters and restores any
// persisted window state so limits survive process restarts.
func buildRegistry(ctx context.Context, cfg *config.Config, db *store.Store) *engine.Registry {
	registry := engine.NewRegistry(cfg.EngineSettings())

	if db != nil {
		snapshots, err := db.ListLimiterSnapshots(ctx, store.ServiceQuery{All: true})
		if err != nil {
			if observability.CLILogger != nil {
				observability.CLILogger.Warn("Failed to restore rate limit state", zap.Error(err))
			}
			return registry
		}
		registry.Restore(snapshots)
	}

	return registry
}

// persistSnapshots saves the current limiter windows. Best-effort: a
// persistence failure never fails the command that did the real work.
func persistSnapshots(ctx context.Context, db *store.Store, registry *engine.Registry) {
	if db == nil || registry == nil {
		return
	}
	for _, snapshot := range registry.Snapshots() {
		snap := snapshot
		if err := db.SaveLimiterSnapshot(ctx, &snap); err != nil {
			if observability.CLILogger != nil {
				observability.CLILogger.Warn("Failed to persist rate limit state",
					zap.String("service", snap.Service),
					zap.Error(err))
			}
		}
	}
}

func newBrowserManager(cfg *config.Config) *browser.Manager {
	return &browser.Manager{
		Acquirer:       &browser.ChromeAcquirer{ExecPath: cfg.Browser.ExecPath},
		AcquireTimeout: cfg.Browser.AcquireTimeout,
		Logger:         observability.CLILogger,
	}
}
