package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/anomaly-reporter/internal/models"
)

func sampleSummary() models.ReportSummary {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	records := []models.AnomalyRecord{
		{Timestamp: base, Score: 82.3, Partition: "checkout_flow", Actual: []float64{812.5}, Typical: []float64{650}},
		{Timestamp: base.Add(time.Hour), Score: 61.0, Partition: "login_smoke"},
		{Timestamp: base.Add(2 * time.Hour), Score: 30.4, Partition: "checkout_flow"},
	}
	groups := models.GroupedAnomalies{
		Partitions: []string{"checkout_flow", "login_smoke"},
		Records: map[string][]models.AnomalyRecord{
			"checkout_flow": {records[0], records[2]},
			"login_smoke":   {records[1]},
		},
	}
	return models.ReportSummary{
		JobID:       "analyze_test_results",
		WindowStart: base.AddDate(0, 0, -50),
		WindowEnd:   base,
		ResultType:  models.ResultTypeRecord,
		Counts:      models.SeverityCounts{Critical: 1, Major: 1, Minor: 1},
		Records:     records,
		Groups:      groups,
		Top:         []models.AnomalyRecord{records[0], records[1]},
		Hotspots: []models.HotspotPattern{
			{
				Partition:        "checkout_flow",
				Occurrences:      2,
				Prevalence:       2.0 / 3.0,
				PeakScore:        82.3,
				DominantSeverity: models.SeverityCritical,
				FirstSeen:        base,
				LastSeen:         base.Add(2 * time.Hour),
			},
		},
		Recommendations: []string{"Investigate tests with critical anomaly scores (>75)"},
		GeneratedAt:     base.Add(3 * time.Hour),
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	doc := Markdown(sampleSummary())

	assert.Contains(t, doc, "# ML Anomaly Detection Report")
	assert.Contains(t, doc, "`analyze_test_results`")
	assert.Contains(t, doc, "3 anomalies detected")
	assert.Contains(t, doc, "| Critical | score > 75 | 1 |")
	assert.Contains(t, doc, "checkout_flow")
	assert.Contains(t, doc, "82.3")
	assert.Contains(t, doc, "## Recurring Hotspots")
	assert.Contains(t, doc, "## Recommendations")
	assert.NotContains(t, doc, "bucket-level aggregates")
}

func TestMarkdown_BucketFallbackNote(t *testing.T) {
	t.Parallel()

	summary := sampleSummary()
	summary.ResultType = models.ResultTypeBucket

	assert.Contains(t, Markdown(summary), "bucket-level aggregates")
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteMarkdown(sampleSummary(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, MarkdownFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "analyze_test_results")
}
