package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/core"
	"github.com/personalens/personalens/internal/observability"
	"github.com/personalens/personalens/internal/output"
	"github.com/personalens/personalens/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <username>",
	Short: "Fetch a user's recent tweets without analyzing them",
	Long: `Fetch a user's recent tweets from their timeline and print them as
JSON. Useful for inspecting what the analyzer would see, or for feeding
other tools.`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().Int("max", 0, "Maximum tweets to fetch (overrides config)")
	scrapeCmd.Flags().Bool("include-replies", false, "Fetch the full sample including replies")
	scrapeCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	scrapeCmd.Flags().String("out-dir", "", "Write output to a directory")
}

func runScrape(cmd *cobra.Command, args []string) error {
	username := scraper.NormalizeUsername(args[0])
	if username == "" {
		return errors.New("a username is required")
	}

	maxTweets, _ := cmd.Flags().GetInt("max")
	includeReplies, _ := cmd.Flags().GetBool("include-replies")
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if maxTweets <= 0 {
		maxTweets = cfg.Scraper.MaxTweets
	}

	ctx := cmd.Context()
	logger := observability.CLILogger

	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Warn("Store unavailable, limits will not persist", zap.Error(err))
		db = nil
	} else {
		defer db.Close() // nolint:errcheck // best-effort cleanup
	}

	registry := buildRegistry(ctx, cfg, db)
	defer persistSnapshots(context.WithoutCancel(ctx), db, registry)

	collector := scraper.New(cfg.Scraper, registry, logger)

	var payload any
	if includeReplies {
		sample, err := collector.FetchSample(ctx, username, cfg.Analyzer.SampleSize)
		if err != nil {
			return err
		}
		payload = sample
	} else {
		tweets, err := collector.FetchTweets(ctx, username, maxTweets)
		if err != nil {
			return err
		}
		payload = struct {
			Username string       `json:"username"`
			Count    int          `json:"count"`
			Tweets   []core.Tweet `json:"tweets"`
		}{Username: username, Count: len(tweets), Tweets: tweets}
	}

	if outDir != "" {
		outDir, err = ensureOutDir(outDir)
		if err != nil {
			return err
		}
		outPath = filepath.Join(outDir, fmt.Sprintf("scrape.%s.%s", sanitizeFilename(username), outputExtension(output.FormatJSON)))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(sink.writer, string(encoded))
	return err
}
