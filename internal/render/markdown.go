package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/miradorstack/anomaly-reporter/internal/engine"
	"github.com/miradorstack/anomaly-reporter/internal/models"
)

// MarkdownFileName is the Markdown report artifact.
const MarkdownFileName = "anomaly_report.md"

// WriteMarkdown renders the Markdown report under outputDir and returns the
// artifact path.
func WriteMarkdown(summary models.ReportSummary, outputDir string) (string, error) {
	path := filepath.Join(outputDir, MarkdownFileName)
	if err := os.WriteFile(path, []byte(Markdown(summary)), 0o644); err != nil {
		return "", fmt.Errorf("write markdown report: %w", err)
	}
	return path, nil
}

// Markdown assembles the full Markdown document.
func Markdown(summary models.ReportSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# ML Anomaly Detection Report\n\n")
	fmt.Fprintf(&b, "**Job ID:** `%s`  \n", summary.JobID)
	fmt.Fprintf(&b, "**Window:** %s to %s  \n",
		summary.WindowStart.Format("2006-01-02"), summary.WindowEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04:05"))

	if summary.ResultType == models.ResultTypeBucket {
		b.WriteString("> No record-level results were available; this report is built from bucket-level aggregates.\n\n")
	}

	fmt.Fprintf(&b, "## Summary\n\n%s anomalies detected.\n\n",
		humanize.Comma(int64(len(summary.Records))))
	b.WriteString(severityTable(summary.Counts))
	b.WriteString("\n\n")

	if len(summary.Top) > 0 {
		fmt.Fprintf(&b, "## Top %d Anomalies\n\n", len(summary.Top))
		b.WriteString(topTable(summary.Top))
		b.WriteString("\n\n")
	}

	if len(summary.Hotspots) > 0 {
		b.WriteString("## Recurring Hotspots\n\n")
		b.WriteString(hotspotTable(summary.Hotspots))
		b.WriteString("\n\n")
	}

	if len(summary.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for i, rec := range summary.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Charts: see `%s`.\n", ChartsFileName)
	return b.String()
}

func severityTable(counts models.SeverityCounts) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Severity", "Threshold", "Count"})
	t.AppendRows([]table.Row{
		{"Critical", "score > 75", counts.Critical},
		{"Major", "50 < score <= 75", counts.Major},
		{"Minor", "25 < score <= 50", counts.Minor},
		{"Negligible", "score <= 25", counts.Negligible},
	})
	t.AppendFooter(table.Row{"Total", "", counts.Total()})
	return t.RenderMarkdown()
}

func topTable(top []models.AnomalyRecord) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Test", "Score", "Severity", "Time", "Actual", "Typical"})
	for i, record := range top {
		t.AppendRow(table.Row{
			i + 1,
			record.Partition,
			fmt.Sprintf("%.1f", record.Score),
			string(engine.SeverityFromScore(record.Score)),
			record.Timestamp.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", record.ActualValue()),
			fmt.Sprintf("%.2f", record.TypicalValue()),
		})
	}
	return t.RenderMarkdown()
}

func hotspotTable(hotspots []models.HotspotPattern) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Test", "Occurrences", "Prevalence", "Peak Score", "Severity", "Last Seen"})
	for _, h := range hotspots {
		t.AppendRow(table.Row{
			h.Partition,
			h.Occurrences,
			fmt.Sprintf("%.0f%%", h.Prevalence*100),
			fmt.Sprintf("%.1f", h.PeakScore),
			string(h.DominantSeverity),
			humanize.Time(h.LastSeen),
		})
	}
	return t.RenderMarkdown()
}
