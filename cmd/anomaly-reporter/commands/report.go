package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/miradorstack/anomaly-reporter/internal/config"
	"github.com/miradorstack/anomaly-reporter/internal/engine"
	"github.com/miradorstack/anomaly-reporter/internal/es"
	"github.com/miradorstack/anomaly-reporter/internal/metrics"
	"github.com/miradorstack/anomaly-reporter/internal/report"
	"github.com/miradorstack/anomaly-reporter/internal/utils"
)

type reportOptions struct {
	jobID       string
	days        int
	minScore    float64
	sortOrder   string
	outputDir   string
	formats     []string
	pushGateway string
}

func newReportCommand(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fetch anomalies and render the report artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cfg)
			return runReport(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.jobID, "job", "", "ML job identifier (overrides config)")
	cmd.Flags().IntVar(&opts.days, "days", 0, "lookback window in days")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", -1, "minimum record score to fetch (0-100)")
	cmd.Flags().StringVar(&opts.sortOrder, "sort", "", "result order: score or timestamp")
	cmd.Flags().StringVar(&opts.outputDir, "output", "", "reports directory")
	cmd.Flags().StringSliceVar(&opts.formats, "format", nil, "artifacts to produce: pdf, markdown, charts")
	cmd.Flags().StringVar(&opts.pushGateway, "push-gateway", "", "Prometheus Pushgateway address for run metrics")
	return cmd
}

func (o *reportOptions) apply(cfg *config.Config) {
	if o.jobID != "" {
		cfg.Job.ID = o.jobID
	}
	if o.days > 0 {
		cfg.Job.LookbackDays = o.days
	}
	if o.minScore >= 0 {
		cfg.Job.MinScore = o.minScore
	}
	if o.sortOrder != "" {
		cfg.Job.SortOrder = o.sortOrder
	}
	if o.outputDir != "" {
		cfg.Report.OutputDir = o.outputDir
	}
	if len(o.formats) > 0 {
		cfg.Report.Formats = o.formats
	}
	if o.pushGateway != "" {
		cfg.Metrics.PushGateway = o.pushGateway
		cfg.Metrics.Enabled = true
	}
}

func runReport(parent context.Context, cfg *config.Config) error {
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if cfg.Job.ID == "" {
		return fmt.Errorf("no ML job configured; set job.id or pass --job")
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := es.NewClient(cfg.Elasticsearch.BaseURL, cfg.Elasticsearch.Timeout)

	rules, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.String("path", cfg.Rules.Path), slog.Any("error", err))
		return err
	}

	runner := report.NewRunner(logger, client, rules, cfg)
	result, err := runner.Run(ctx)
	pushRunMetrics(logger, cfg)
	if err != nil {
		logger.Error("report run aborted", slog.Any("error", err))
		return err
	}

	if result.NoData {
		fmt.Println("No data available for report generation.")
		fmt.Println("Make sure the ML job has processed data and generated anomalies.")
		return nil
	}

	printSummary(result)
	return nil
}

func pushRunMetrics(logger *slog.Logger, cfg *config.Config) {
	if !cfg.Metrics.Enabled || cfg.Metrics.PushGateway == "" {
		return
	}
	if err := metrics.Push(cfg.Metrics.PushGateway, cfg.Metrics.JobName); err != nil {
		logger.Warn("metrics push failed", slog.Any("error", err))
	}
}

// printSummary writes the severity breakdown and artifact list to stdout.
func printSummary(result report.RunResult) {
	summary := result.Summary

	bold := color.New(color.Bold)
	bold.Printf("Anomaly report for %s\n", summary.JobID)
	fmt.Printf("Window: %s to %s\n",
		summary.WindowStart.Format("2006-01-02"), summary.WindowEnd.Format("2006-01-02"))
	fmt.Printf("Total anomalies: %s\n", humanize.Comma(int64(len(summary.Records))))

	color.New(color.FgRed, color.Bold).Printf("  Critical: %d\n", summary.Counts.Critical)
	color.New(color.FgYellow).Printf("  Major:    %d\n", summary.Counts.Major)
	color.New(color.FgCyan).Printf("  Minor:    %d\n", summary.Counts.Minor)
	fmt.Printf("  Negligible: %d\n", summary.Counts.Negligible)

	fmt.Println("Artifacts:")
	for _, path := range result.Artifacts {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		fmt.Printf("  - %s\n", path)
	}
}
