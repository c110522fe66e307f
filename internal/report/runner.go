package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/miradorstack/anomaly-reporter/internal/config"
	"github.com/miradorstack/anomaly-reporter/internal/engine"
	"github.com/miradorstack/anomaly-reporter/internal/es"
	"github.com/miradorstack/anomaly-reporter/internal/metrics"
	"github.com/miradorstack/anomaly-reporter/internal/models"
	"github.com/miradorstack/anomaly-reporter/internal/patterns"
	"github.com/miradorstack/anomaly-reporter/internal/render"
	"github.com/miradorstack/anomaly-reporter/internal/utils"
)

// SearchClient defines the cluster operations the runner depends on.
type SearchClient interface {
	ClusterHealth(ctx context.Context) (string, error)
	FetchJobInfo(ctx context.Context, jobID string) (es.JobInfo, error)
	FetchJobStats(ctx context.Context, jobID string) (es.JobStats, error)
	SearchRecords(ctx context.Context, q es.RecordQuery) ([]models.AnomalyRecord, error)
	SearchBuckets(ctx context.Context, jobID string, size int) ([]models.AnomalyRecord, error)
	ListMLIndices(ctx context.Context) (string, error)
}

// RunResult reports what a run produced.
type RunResult struct {
	Summary   models.ReportSummary
	Artifacts []string
	// NoData marks the clean "nothing to report" terminal state: both the
	// record and bucket queries came back empty, and no artifacts exist.
	NoData bool
}

// Runner executes one report run end to end: pre-flight, fetch, classify,
// render. Fully sequential; every call blocks until response or timeout.
type Runner struct {
	logger    *slog.Logger
	client    SearchClient
	rules     *engine.RuleEngine
	miner     *patterns.Miner
	cfg       *config.Config
	latencies *utils.LatencyTracker
	now       func() time.Time
}

// NewRunner constructs a report runner.
func NewRunner(logger *slog.Logger, client SearchClient, rules *engine.RuleEngine, cfg *config.Config) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger:    logger,
		client:    client,
		rules:     rules,
		miner:     patterns.NewMiner(logger),
		cfg:       cfg,
		latencies: utils.NewLatencyTracker(16),
		now:       time.Now,
	}
}

// Run executes the full report flow. An empty result set is not an error; any
// transport or render failure is, and aborts the run with no partial retry.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	if r.client == nil {
		return RunResult{}, fmt.Errorf("search client not configured")
	}

	runStart := r.now()
	result, err := r.run(ctx)
	duration := r.now().Sub(runStart)
	if err != nil {
		metrics.ObserveRun(duration, metrics.OutcomeError)
		return RunResult{}, err
	}
	metrics.ObserveRun(duration, metrics.OutcomeSuccess)

	if summary := r.latencies.Summary(); summary.Count > 0 {
		r.logger.Info("search latency",
			slog.Int("queries", summary.Count),
			slog.Duration("p95", summary.P95),
			slog.Duration("max", summary.Max))
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context) (RunResult, error) {
	jobStats, err := r.preflight(ctx)
	if err != nil {
		return RunResult{}, err
	}

	records, resultType, err := r.fetch(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if len(records) == 0 {
		r.logger.Info("no anomaly data available", slog.String("job_id", r.cfg.Job.ID))
		return RunResult{NoData: true}, nil
	}

	summary := r.assemble(records, resultType, jobStats)

	artifacts, err := r.renderArtifacts(summary)
	if err != nil {
		return RunResult{}, err
	}

	return RunResult{Summary: summary, Artifacts: artifacts}, nil
}

// preflight verifies connectivity and job existence before any fetch.
func (r *Runner) preflight(ctx context.Context) (es.JobStats, error) {
	health, err := r.timedHealth(ctx)
	if err != nil {
		return es.JobStats{}, utils.NewAppError("preflight", "elasticsearch unreachable", err)
	}
	r.logger.Info("elasticsearch cluster status", slog.String("status", health))

	info, err := r.client.FetchJobInfo(ctx, r.cfg.Job.ID)
	if err != nil {
		if errors.Is(err, es.ErrJobNotFound) {
			return es.JobStats{}, utils.NewAppError("preflight", fmt.Sprintf("ml job %s not found", r.cfg.Job.ID), err)
		}
		return es.JobStats{}, utils.NewAppError("preflight", "ml job check failed", err)
	}
	r.logger.Info("ml job found", slog.String("job_id", info.JobID))

	stats, err := r.client.FetchJobStats(ctx, r.cfg.Job.ID)
	if err != nil {
		// Stats are informational only.
		r.logger.Warn("ml job stats unavailable", slog.Any("error", err))
		return es.JobStats{}, nil
	}
	r.logger.Info("ml job state",
		slog.String("state", stats.State),
		slog.Int64("processed_records", stats.ProcessedRecords))
	return stats, nil
}

// fetch pulls record-level results, falling back to bucket aggregates when no
// records exist at all.
func (r *Runner) fetch(ctx context.Context) ([]models.AnomalyRecord, models.ResultType, error) {
	start, end := utils.Lookback(r.now(), r.cfg.Job.LookbackDays)
	query := es.RecordQuery{
		JobID:    r.cfg.Job.ID,
		Start:    start,
		End:      end,
		MinScore: r.cfg.Job.MinScore,
		Size:     r.cfg.Job.ResultSize,
		Sort:     models.SortOrder(r.cfg.Job.SortOrder),
	}

	r.logger.Info("fetching anomaly records",
		slog.String("job_id", query.JobID),
		slog.Time("start", start),
		slog.Time("end", end),
		slog.Float64("min_score", query.MinScore))

	fetchStart := r.now()
	records, err := r.client.SearchRecords(ctx, query)
	r.latencies.Observe(r.now().Sub(fetchStart))
	if err != nil {
		r.debugIndices(ctx)
		return nil, "", utils.NewAppError("fetch", "anomaly record search failed", err)
	}
	metrics.ObserveFetch(models.ResultTypeRecord, len(records))
	if len(records) > 0 {
		r.logger.Info("fetched anomaly records", slog.Int("count", len(records)))
		return records, models.ResultTypeRecord, nil
	}

	r.logger.Info("no record results, trying bucket fallback")
	fetchStart = r.now()
	buckets, err := r.client.SearchBuckets(ctx, r.cfg.Job.ID, r.cfg.Job.ResultSize)
	r.latencies.Observe(r.now().Sub(fetchStart))
	if err != nil {
		return nil, "", utils.NewAppError("fetch", "bucket fallback search failed", err)
	}
	metrics.ObserveFetch(models.ResultTypeBucket, len(buckets))
	if len(buckets) > 0 {
		r.logger.Info("fetched bucket results as fallback", slog.Int("count", len(buckets)))
	}
	return buckets, models.ResultTypeBucket, nil
}

func (r *Runner) assemble(records []models.AnomalyRecord, resultType models.ResultType, stats es.JobStats) models.ReportSummary {
	engine.SortRecords(records, models.SortOrder(r.cfg.Job.SortOrder))

	counts := engine.Classify(records)
	metrics.SetSeverityCounts(counts)
	groups := engine.GroupByPartition(records)

	recommendations := r.rules.Recommend(counts, groups)
	if len(recommendations) == 0 {
		recommendations = engine.DefaultRecommendations()
	}

	start, end := utils.Lookback(r.now(), r.cfg.Job.LookbackDays)
	return models.ReportSummary{
		JobID:           r.cfg.Job.ID,
		JobState:        stats.State,
		WindowStart:     start,
		WindowEnd:       end,
		ResultType:      resultType,
		Counts:          counts,
		Records:         records,
		Groups:          groups,
		Top:             engine.TopN(records, r.cfg.Report.TopN),
		Hotspots:        r.miner.Mine(records),
		Recommendations: recommendations,
		GeneratedAt:     r.now(),
	}
}

func (r *Runner) renderArtifacts(summary models.ReportSummary) ([]string, error) {
	outputDir := r.cfg.Report.OutputDir
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, utils.NewAppError("render", "create reports directory", err)
	}

	artifacts := make([]string, 0, len(r.cfg.Report.Formats))
	for _, format := range r.cfg.Report.Formats {
		var (
			path string
			err  error
		)
		switch format {
		case "pdf":
			path, err = render.WritePDF(summary, outputDir)
		case "markdown":
			path, err = render.WriteMarkdown(summary, outputDir)
		case "charts":
			path, err = render.WriteCharts(summary, outputDir)
		default:
			continue
		}
		if err != nil {
			return nil, utils.NewAppError("render", fmt.Sprintf("%s artifact failed", format), err)
		}
		r.logger.Info("artifact written", slog.String("format", format), slog.String("path", path))
		artifacts = append(artifacts, path)
	}
	return artifacts, nil
}

func (r *Runner) timedHealth(ctx context.Context) (string, error) {
	start := r.now()
	health, err := r.client.ClusterHealth(ctx)
	r.latencies.Observe(r.now().Sub(start))
	return health, err
}

// debugIndices lists the cluster's ML indices after a failed search, the one
// diagnostic that usually explains a missing results index.
func (r *Runner) debugIndices(ctx context.Context) {
	listing, err := r.client.ListMLIndices(ctx)
	if err != nil {
		r.logger.Debug("could not list ml indices", slog.Any("error", err))
		return
	}
	r.logger.Info("available ml indices", slog.String("listing", listing))
}
