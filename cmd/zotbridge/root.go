package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/zotbridge/pkg/config"
	"github.com/entrhq/zotbridge/pkg/logging"
)

var (
	configPath     string
	logLevel       string
	translationURL string
	connectorURL   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "zotbridge",
	Short: "Translate web pages and identifiers into Zotero items and save them",
	Long: `zotbridge exposes a Zotero translation server and the Zotero connector
as Model Context Protocol tools. It can also save item JSON from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&translationURL, "translation-url", "", "Translation server URL")
	rootCmd.PersistentFlags().StringVar(&connectorURL, "connector-url", "", "Zotero connector URL")
}

// loadConfig loads the configuration file and environment, applies flag
// overrides and configures logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := logging.Configure(logging.Options{Dir: cfg.Logging.Dir, Level: cfg.Logging.Level}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags layers explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("translation-url") {
		cfg.Translation.URL = translationURL
	}
	if flags.Changed("connector-url") {
		cfg.Connector.URL = connectorURL
	}
	return cfg.Validate()
}
