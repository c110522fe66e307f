package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/miradorstack/anomaly-reporter/internal/models"
)

const (
	// OutcomeSuccess labels runs that produced artifacts or a clean no-data exit.
	OutcomeSuccess = "success"
	// OutcomeError labels runs aborted by a fetch or render failure.
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anomaly_reporter",
			Name:      "runs_total",
			Help:      "Total report runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	recordsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anomaly_reporter",
			Name:      "records_fetched_total",
			Help:      "Anomaly results fetched, partitioned by result type.",
		},
		[]string{"result_type"},
	)

	severityCounts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "anomaly_reporter",
			Name:      "severity_count",
			Help:      "Classified record count per severity tier for the last run.",
		},
		[]string{"severity"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "anomaly_reporter",
			Name:      "run_seconds",
			Help:      "End-to-end report run latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
)

// Register attaches the reporter collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		recordsFetched,
		severityCounts,
		runDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveFetch counts fetched results by granularity.
func ObserveFetch(resultType models.ResultType, count int) {
	if count < 0 {
		count = 0
	}
	recordsFetched.WithLabelValues(string(resultType)).Add(float64(count))
}

// SetSeverityCounts publishes the per-tier classification of the current run.
func SetSeverityCounts(counts models.SeverityCounts) {
	severityCounts.WithLabelValues(string(models.SeverityCritical)).Set(float64(counts.Critical))
	severityCounts.WithLabelValues(string(models.SeverityMajor)).Set(float64(counts.Major))
	severityCounts.WithLabelValues(string(models.SeverityMinor)).Set(float64(counts.Minor))
	severityCounts.WithLabelValues(string(models.SeverityNegligible)).Set(float64(counts.Negligible))
}

// Push delivers the run's collectors to a Pushgateway. Report runs are
// one-shot batch jobs, so scrape endpoints are not an option.
func Push(gateway, jobName string) error {
	if gateway == "" {
		return fmt.Errorf("push gateway address not configured")
	}
	if jobName == "" {
		jobName = "anomaly_reporter"
	}
	return push.New(gateway, jobName).
		Collector(runsTotal).
		Collector(recordsFetched).
		Collector(severityCounts).
		Collector(runDurationSeconds).
		Push()
}
