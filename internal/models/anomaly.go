package models

import "time"

// ResultType distinguishes the granularity of a fetched anomaly result.
type ResultType string

const (
	// ResultTypeRecord is a per-record anomaly with partition detail.
	ResultTypeRecord ResultType = "record"
	// ResultTypeBucket is a time-bucketed aggregate used as a coarse fallback.
	ResultTypeBucket ResultType = "bucket"
)

// AnomalyRecord is an immutable snapshot of one anomaly produced by the ML job.
type AnomalyRecord struct {
	Timestamp  time.Time
	Score      float64
	Partition  string
	ResultType ResultType
	Function   string
	FieldName  string
	Actual     []float64
	Typical    []float64
}

// ActualValue returns the first observed value, or zero when absent.
func (r AnomalyRecord) ActualValue() float64 {
	if len(r.Actual) == 0 {
		return 0
	}
	return r.Actual[0]
}

// TypicalValue returns the first expected value, or zero when absent.
func (r AnomalyRecord) TypicalValue() float64 {
	if len(r.Typical) == 0 {
		return 0
	}
	return r.Typical[0]
}

// Severity captures the impact tier derived from the record score.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMajor      Severity = "major"
	SeverityMinor      Severity = "minor"
	SeverityNegligible Severity = "negligible"
)

// SeverityCounts holds per-tier record counts.
type SeverityCounts struct {
	Critical   int
	Major      int
	Minor      int
	Negligible int
}

// Total returns the number of classified records across all tiers.
func (c SeverityCounts) Total() int {
	return c.Critical + c.Major + c.Minor + c.Negligible
}

// GroupedAnomalies maps a partition field value to its records in fetch order.
// Partitions preserves first-seen ordering of the keys.
type GroupedAnomalies struct {
	Partitions []string
	Records    map[string][]AnomalyRecord
}

// SortOrder selects how fetched records are ordered.
type SortOrder string

const (
	// SortByScore orders records by record score, highest first.
	SortByScore SortOrder = "score"
	// SortByTimestamp orders records chronologically, oldest first.
	SortByTimestamp SortOrder = "timestamp"
)

// HotspotPattern aggregates recurring anomalies for one partition.
type HotspotPattern struct {
	Partition        string
	Occurrences      int
	Prevalence       float64
	PeakScore        float64
	DominantSeverity Severity
	FirstSeen        time.Time
	LastSeen         time.Time
}

// ReportSummary is the assembled input for every render target.
type ReportSummary struct {
	JobID           string
	JobState        string
	WindowStart     time.Time
	WindowEnd       time.Time
	ResultType      ResultType
	Counts          SeverityCounts
	Records         []AnomalyRecord
	Groups          GroupedAnomalies
	Top             []AnomalyRecord
	Hotspots        []HotspotPattern
	Recommendations []string
	GeneratedAt     time.Time
}
