package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/analyzer"
	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/core"
	"github.com/personalens/personalens/internal/core/engine"
	"github.com/personalens/personalens/internal/core/store"
	"github.com/personalens/personalens/internal/observability"
	"github.com/personalens/personalens/internal/output"
	"github.com/personalens/personalens/internal/report"
	"github.com/personalens/personalens/internal/scraper"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <username>",
	Short: "Analyze a Twitter user's MBTI type from recent tweets",
	Long: `Collect a user's recent original tweets and replies, run MBTI
analysis over them, and print the verdict.

Verdicts are cached per username and model; use --no-cache to force a
fresh collection and analysis.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("output-format", "table", "Output format: table, json, markdown")
	analyzeCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	analyzeCmd.Flags().String("out-dir", "", "Write output to a directory")
	analyzeCmd.Flags().Bool("no-cache", false, "Skip cached samples and verdicts")
	analyzeCmd.Flags().Duration("cache-ttl", 24*time.Hour, "How long to cache the verdict")
	analyzeCmd.Flags().Int("sample-size", 0, "Tweets per category to analyze (overrides config)")
	analyzeCmd.Flags().Bool("report", false, "Render an HTML report alongside the output")
	analyzeCmd.Flags().Bool("export-png", false, "Render the report and export it as PNG (implies --report)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	username := scraper.NormalizeUsername(args[0])
	if username == "" {
		return errors.New("a username is required")
	}

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")
	sampleSize, _ := cmd.Flags().GetInt("sample-size")
	renderReport, _ := cmd.Flags().GetBool("report")
	exportPNG, _ := cmd.Flags().GetBool("export-png")
	if exportPNG {
		renderReport = true
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sampleSize > 0 {
		cfg.Analyzer.SampleSize = sampleSize
	}

	ctx := cmd.Context()
	logger := observability.CLILogger

	db, err := openStore(ctx, cfg)
	if err != nil {
		// The analysis can proceed without persistence; limits just
		// won't survive this process.
		logger.Warn("Store unavailable, continuing without cache or persisted limits", zap.Error(err))
		db = nil
	} else {
		defer db.Close() // nolint:errcheck // best-effort cleanup
	}

	registry := buildRegistry(ctx, cfg, db)
	defer persistSnapshots(context.WithoutCancel(ctx), db, registry)

	mbti := analyzer.New(cfg.Analyzer, registry, logger)

	var (
		result *core.MBTIResult
		sample *core.TweetSample
	)

	if db != nil && !noCache {
		result, err = db.GetCachedAnalysis(ctx, username, mbti.Model())
		if err != nil {
			logger.Warn("Cache lookup failed", zap.Error(err))
		}
		if result != nil {
			logger.Debug("Using cached verdict",
				zap.String("username", username),
				zap.String("model", result.Model))
			sample, _ = db.GetCachedSample(ctx, username)
		}
	}

	if result == nil {
		sample, err = collectSample(ctx, cfg, registry, db, username, noCache)
		if err != nil {
			return err
		}

		result, err = mbti.Analyze(ctx, sample)
		if err != nil {
			return err
		}

		if db != nil && cacheTTL > 0 {
			if err := db.SetCachedAnalysis(ctx, result, cacheTTL); err != nil {
				logger.Warn("Failed to cache verdict", zap.Error(err))
			}
		}
	}

	if outDir != "" {
		outDir, err = ensureOutDir(outDir)
		if err != nil {
			return err
		}
		outPath = filepath.Join(outDir, fmt.Sprintf("analyze.%s.%s", sanitizeFilename(username), outputExtension(format)))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	rendered, err := output.FormatResult(format, result)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
		return err
	}

	if renderReport {
		generator := &report.Generator{OutputDir: cfg.Report.OutputDir}
		reportPath, err := generator.Generate(result, sample)
		if err != nil {
			return err
		}
		logger.Info("Report written", zap.String("path", reportPath))
		fmt.Fprintf(cmd.ErrOrStderr(), "report: %s\n", reportPath)

		if exportPNG {
			exporter := &report.Exporter{
				Manager:       newBrowserManager(cfg),
				ViewportWidth: cfg.Browser.ViewportWidth,
				ThumbnailSize: cfg.Report.ThumbnailSize,
			}
			pngPath, err := exporter.ExportPNG(ctx, reportPath, "")
			if err != nil {
				return err
			}
			logger.Info("Report image written", zap.String("path", pngPath))
			fmt.Fprintf(cmd.ErrOrStderr(), "image: %s\n", pngPath)
		}
	}

	return nil
}

// collectSample fetches the tweet material for analysis, preferring a
// cached sample when one is fresh.
func collectSample(ctx context.Context, cfg *config.Config, registry *engine.Registry, db *store.Store, username string, noCache bool) (*core.TweetSample, error) {
	logger := observability.CLILogger

	if db != nil && !noCache {
		cached, err := db.GetCachedSample(ctx, username)
		if err != nil {
			logger.Warn("Sample cache lookup failed", zap.Error(err))
		}
		if cached != nil {
			logger.Debug("Using cached sample",
				zap.String("username", username),
				zap.Int("tweets", cached.Total()))
			return cached, nil
		}
	}

	collector := scraper.New(cfg.Scraper, registry, logger)
	sample, err := collector.FetchSample(ctx, username, cfg.Analyzer.SampleSize)
	if err != nil {
		return nil, err
	}

	if db != nil {
		if err := db.SetCachedSample(ctx, sample, time.Hour); err != nil {
			logger.Warn("Failed to cache sample", zap.Error(err))
		}
	}

	return sample, nil
}
