// Package commands wires the anomaly-reporter CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/miradorstack/anomaly-reporter/internal/config"
)

// rootOptions carries flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
}

// NewRootCommand builds the anomaly-reporter command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "anomaly-reporter",
		Short: "Generate reports from an Elasticsearch ML anomaly detection job",
		Long: `anomaly-reporter queries the results indices of an Elasticsearch
machine-learning anomaly detection job, classifies the already-scored anomaly
records by severity, groups them per test, and renders PDF, Markdown, and
HTML chart artifacts.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log verbosity (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "emit logs as JSON")

	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	return cmd
}

// loadConfig resolves the effective configuration for a subcommand.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logJSON {
		cfg.Logging.JSON = true
	}
	return cfg, nil
}
