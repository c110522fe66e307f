package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9200", cfg.Elasticsearch.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Elasticsearch.Timeout)
	assert.Equal(t, 50, cfg.Job.LookbackDays)
	assert.Equal(t, 0.0, cfg.Job.MinScore)
	assert.Equal(t, MaxResultSize, cfg.Job.ResultSize)
	assert.Equal(t, "score", cfg.Job.SortOrder)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.Equal(t, []string{"pdf", "markdown", "charts"}, cfg.Report.Formats)
	assert.Equal(t, 5, cfg.Report.TopN)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporter.yaml")
	content := `
elasticsearch:
  baseURL: http://es.internal:9200
job:
  id: analyze_test_results
  lookbackDays: 7
  minScore: 50
  sortOrder: timestamp
report:
  formats: [markdown]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://es.internal:9200", cfg.Elasticsearch.BaseURL)
	assert.Equal(t, "analyze_test_results", cfg.Job.ID)
	assert.Equal(t, 7, cfg.Job.LookbackDays)
	assert.Equal(t, 50.0, cfg.Job.MinScore)
	assert.Equal(t, "timestamp", cfg.Job.SortOrder)
	assert.Equal(t, []string{"markdown"}, cfg.Report.Formats)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_URL", "http://other:9200")
	t.Setenv("MIRADOR_REPORTER_JOB_ID", "perf_regressions")
	t.Setenv("MIRADOR_REPORTER_LOOKBACK_DAYS", "14")
	t.Setenv("MIRADOR_REPORTER_MIN_SCORE", "25")
	t.Setenv("MIRADOR_REPORTER_FORMATS", "pdf, charts")
	t.Setenv("MIRADOR_REPORTER_PUSH_GATEWAY", "http://pushgw:9091")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://other:9200", cfg.Elasticsearch.BaseURL)
	assert.Equal(t, "perf_regressions", cfg.Job.ID)
	assert.Equal(t, 14, cfg.Job.LookbackDays)
	assert.Equal(t, 25.0, cfg.Job.MinScore)
	assert.Equal(t, []string{"pdf", "charts"}, cfg.Report.Formats)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "http://pushgw:9091", cfg.Metrics.PushGateway)
}

func TestValidation(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	_, err := Load(write("badsort.yaml", "job:\n  sortOrder: volume\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sortOrder")

	_, err = Load(write("badscore.yaml", "job:\n  minScore: 120\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minScore")

	_, err = Load(write("badformat.yaml", "report:\n  formats: [docx]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")

	// Oversized result caps clamp instead of failing.
	cfg, err := Load(write("bigsize.yaml", "job:\n  resultSize: 50000\n"))
	require.NoError(t, err)
	assert.Equal(t, MaxResultSize, cfg.Job.ResultSize)
}
