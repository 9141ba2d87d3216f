package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/personalens/personalens/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show current rate limit usage per service",
	Long: `Show the sliding-window usage, remaining capacity, and backoff state
for every configured service, including state restored from previous
runs.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().String("output-format", "table", "Output format: table, json, markdown")
	statsCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	statsCmd.Flags().String("out-dir", "", "Write output to a directory")
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		// Without the store we still report the in-memory (empty) state.
		db = nil
	} else {
		defer db.Close() // nolint:errcheck // best-effort cleanup
	}

	registry := buildRegistry(ctx, cfg, db)

	if outDir != "" {
		outDir, err = ensureOutDir(outDir)
		if err != nil {
			return err
		}
		outPath = filepath.Join(outDir, fmt.Sprintf("stats.%s", outputExtension(format)))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	rendered, err := output.FormatStats(format, registry.Stats())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(sink.writer, rendered)
	return err
}
