package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after merging built-in defaults, the config
file, and environment overrides. Credentials are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Never echo credentials back to the terminal.
		if cfg.Scraper.APIToken != "" {
			cfg.Scraper.APIToken = "<redacted>"
		}
		if cfg.Analyzer.APIKey != "" {
			cfg.Analyzer.APIKey = "<redacted>"
		}
		if cfg.Store.AuthToken != "" {
			cfg.Store.AuthToken = "<redacted>"
		}

		encoded, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), string(encoded))
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
