package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCharts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteCharts(sampleSummary(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ChartsFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	// One scatter series per partition, plus the top-N bar chart.
	assert.Contains(t, html, "checkout_flow")
	assert.Contains(t, html, "login_smoke")
	assert.Contains(t, html, "Anomaly Detection Report: analyze_test_results")
	assert.Contains(t, html, "Top 2 Anomalies")
}
