package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miradorstack/anomaly-reporter/internal/config"
	"github.com/miradorstack/anomaly-reporter/internal/es"
)

func newCheckCommand(root *rootOptions) *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the pre-flight checks without generating a report",
		Long:  "Verifies cluster connectivity and that the configured ML job exists, then prints its state.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if jobID != "" {
				cfg.Job.ID = jobID
			}
			return runCheck(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "ML job identifier (overrides config)")
	return cmd
}

func runCheck(parent context.Context, cfg *config.Config) error {
	if cfg.Job.ID == "" {
		return fmt.Errorf("no ML job configured; set job.id or pass --job")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := es.NewClient(cfg.Elasticsearch.BaseURL, cfg.Elasticsearch.Timeout)

	health, err := client.ClusterHealth(ctx)
	if err != nil {
		color.Red("Cannot connect to Elasticsearch at %s", cfg.Elasticsearch.BaseURL)
		return err
	}
	printHealth(health)

	info, err := client.FetchJobInfo(ctx, cfg.Job.ID)
	if err != nil {
		if errors.Is(err, es.ErrJobNotFound) {
			color.Red("ML job %s not found", cfg.Job.ID)
		}
		return err
	}
	fmt.Printf("ML job found: %s\n", info.JobID)
	if info.Description != "" {
		fmt.Printf("  %s\n", info.Description)
	}

	stats, err := client.FetchJobStats(ctx, cfg.Job.ID)
	if err != nil {
		color.Yellow("Job stats unavailable: %v", err)
		return nil
	}
	fmt.Printf("Job state: %s\n", stats.State)
	fmt.Printf("Processed records: %s\n", humanize.Comma(stats.ProcessedRecords))
	return nil
}

func printHealth(status string) {
	switch status {
	case "green":
		color.Green("Elasticsearch cluster status: %s", status)
	case "yellow":
		color.Yellow("Elasticsearch cluster status: %s", status)
	default:
		color.Red("Elasticsearch cluster status: %s", status)
	}
}
