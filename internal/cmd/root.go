// Package cmd wires the PersonaLens CLI: tweet collection, MBTI
// analysis, report rendering, limiter administration, and the optional
// HTTP server.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/personalens/personalens/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package via ldflags.
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to inject build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "personalens",
	Short: "MBTI personality analysis from public Twitter activity",
	Long: `PersonaLens collects a user's recent tweets and replies, asks a
language model for an MBTI read, and renders the verdict as a table,
JSON, markdown, or a shareable terminal-styled report.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		observability.InitCLILogger("personalens", verbose)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $XDG_CONFIG_HOME/personalens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}
