package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/personalens/personalens/internal/observability"
	"github.com/personalens/personalens/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export <report.html>",
	Short: "Export an HTML report as a PNG image",
	Long: `Render a previously generated HTML report in a headless browser and
save it as a PNG, optionally with a thumbnail alongside.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("out", "", "PNG output path (default: next to the report)")
	exportCmd.Flags().Int("width", 0, "Viewport width in pixels (overrides config)")
	exportCmd.Flags().Int("thumbnail-size", -1, "Max thumbnail dimension, 0 to disable (overrides config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	htmlPath := args[0]

	outPath, _ := cmd.Flags().GetString("out")
	width, _ := cmd.Flags().GetInt("width")
	thumbSize, _ := cmd.Flags().GetInt("thumbnail-size")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if width <= 0 {
		width = cfg.Browser.ViewportWidth
	}
	if thumbSize < 0 {
		thumbSize = cfg.Report.ThumbnailSize
	}

	exporter := &report.Exporter{
		Manager:       newBrowserManager(cfg),
		ViewportWidth: width,
		ThumbnailSize: thumbSize,
	}

	pngPath, err := exporter.ExportPNG(cmd.Context(), htmlPath, outPath)
	if err != nil {
		return err
	}

	observability.CLILogger.Info("Report image written", zap.String("path", pngPath))
	fmt.Fprintln(cmd.OutOrStdout(), pngPath)
	return nil
}
