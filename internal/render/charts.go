package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/miradorstack/anomaly-reporter/internal/engine"
	"github.com/miradorstack/anomaly-reporter/internal/models"
)

// ChartsFileName is the HTML artifact holding both charts.
const ChartsFileName = "anomaly_charts.html"

const (
	chartWidth  = "1100px"
	chartHeight = "500px"
)

var severityColors = map[models.Severity]string{
	models.SeverityCritical:   "#d62728",
	models.SeverityMajor:      "#ff7f0e",
	models.SeverityMinor:      "#ffd92f",
	models.SeverityNegligible: "#2ca02c",
}

// WriteCharts renders the score-over-time scatter and top-N bar chart into a
// single HTML page under outputDir. Returns the artifact path.
func WriteCharts(summary models.ReportSummary, outputDir string) (string, error) {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Anomaly Report: %s", summary.JobID)
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		scoreScatter(summary),
		topScoresBar(summary),
	)

	path := filepath.Join(outputDir, ChartsFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create charts file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("render charts: %w", err)
	}
	return path, nil
}

// scoreScatter plots every record's score over time, one series per
// partition, with the fixed severity boundaries as horizontal mark lines.
func scoreScatter(summary models.ReportSummary) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Anomaly Detection Report: %s", summary.JobID),
			Subtitle: fmt.Sprintf("%s to %s", summary.WindowStart.Format("2006-01-02"), summary.WindowEnd.Format("2006-01-02")),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "0"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "Timestamp"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Anomaly Score", Max: 100}),
	)

	first := true
	for _, partition := range summary.Groups.Partitions {
		records := summary.Groups.Records[partition]
		data := make([]opts.ScatterData, 0, len(records))
		for _, record := range records {
			data = append(data, opts.ScatterData{
				Value:      []interface{}{record.Timestamp.UnixMilli(), record.Score},
				SymbolSize: 12,
			})
		}
		seriesOpts := []charts.SeriesOpts{}
		if first {
			// Threshold mark lines only need to be attached once.
			seriesOpts = append(seriesOpts,
				charts.WithMarkLineNameYAxisItemOpts(
					opts.MarkLineNameYAxisItem{Name: "Critical (>75)", YAxis: 75},
					opts.MarkLineNameYAxisItem{Name: "Major (>50)", YAxis: 50},
					opts.MarkLineNameYAxisItem{Name: "Minor (>25)", YAxis: 25},
				),
			)
			first = false
		}
		scatter.AddSeries(partition, data, seriesOpts...)
	}
	return scatter
}

// topScoresBar charts the highest-scoring records, colored per severity tier.
func topScoresBar(summary models.ReportSummary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Top %d Anomalies", len(summary.Top))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Test"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Anomaly Score", Max: 100}),
	)

	labels := make([]string, 0, len(summary.Top))
	data := make([]opts.BarData, 0, len(summary.Top))
	for _, record := range summary.Top {
		labels = append(labels, fmt.Sprintf("%s\n%s", record.Partition, record.Timestamp.Format("01-02 15:04")))
		data = append(data, opts.BarData{
			Value: record.Score,
			ItemStyle: &opts.ItemStyle{
				Color: severityColors[engine.SeverityFromScore(record.Score)],
			},
		})
	}
	bar.SetXAxis(labels)
	bar.AddSeries("score", data)
	return bar
}
