package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/miradorstack/anomaly-reporter/internal/engine"
	"github.com/miradorstack/anomaly-reporter/internal/models"
)

// PDFFileName is the PDF report artifact.
const PDFFileName = "anomaly_report.pdf"

type rgb struct{ r, g, b int }

var severityFill = map[models.Severity]rgb{
	models.SeverityCritical:   {214, 39, 40},
	models.SeverityMajor:      {255, 127, 14},
	models.SeverityMinor:      {255, 217, 47},
	models.SeverityNegligible: {44, 160, 44},
}

// WritePDF renders the PDF report under outputDir and returns the artifact path.
func WritePDF(summary models.ReportSummary, outputDir string) (string, error) {
	path := filepath.Join(outputDir, PDFFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create pdf file: %w", err)
	}
	defer f.Close()

	if err := RenderPDF(summary, f); err != nil {
		return "", err
	}
	return path, nil
}

// RenderPDF writes the PDF document to the supplied sink.
func RenderPDF(summary models.ReportSummary, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Title block.
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, "ML Anomaly Detection Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Job ID: %s", summary.JobID), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", summary.GeneratedAt.Format("2006-01-02 15:04:05")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	writeSummaryStats(pdf, summary)
	drawScoreChart(pdf, summary)

	// Findings on a fresh page, matching the two-page report layout.
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Key Findings:", "", 1, "", false, 0, "")
	writeTopTable(pdf, summary.Top)
	writeRecommendations(pdf, summary.Recommendations)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func writeSummaryStats(pdf *fpdf.Fpdf, summary models.ReportSummary) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Summary Statistics:", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)

	counts := summary.Counts
	pdf.CellFormat(0, 6, fmt.Sprintf("Total Anomalies Detected: %d", len(summary.Records)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("  - Critical (score > 75): %d", counts.Critical), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("  - Major (50 < score <= 75): %d", counts.Major), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("  - Minor (25 < score <= 50): %d", counts.Minor), "", 1, "", false, 0, "")
	if counts.Negligible > 0 {
		pdf.CellFormat(0, 6, fmt.Sprintf("  - Negligible (score <= 25): %d", counts.Negligible), "", 1, "", false, 0, "")
	}
	if summary.ResultType == models.ResultTypeBucket {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 6, "Built from bucket-level aggregates; per-record detail was unavailable.", "", 1, "", false, 0, "")
	}
	pdf.Ln(4)
}

// drawScoreChart plots record scores over the report window directly with PDF
// primitives: axes, dashed severity boundaries, and one dot per record.
func drawScoreChart(pdf *fpdf.Fpdf, summary models.ReportSummary) {
	if len(summary.Records) == 0 {
		return
	}

	const (
		left   = 20.0
		width  = 170.0
		height = 90.0
	)
	top := pdf.GetY() + 5

	pdf.SetFont("Arial", "B", 11)
	pdf.SetY(top - 2)
	pdf.CellFormat(0, 6, "Anomaly Scores Over Time", "", 1, "C", false, 0, "")
	top = pdf.GetY() + 2

	// Axes.
	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(0.3)
	pdf.Line(left, top, left, top+height)
	pdf.Line(left, top+height, left+width, top+height)

	// Severity boundaries at 75/50/25 on the 0-100 scale.
	pdf.SetLineWidth(0.2)
	pdf.SetDashPattern([]float64{1.5, 1.5}, 0)
	for _, boundary := range []struct {
		score float64
		color rgb
		label string
	}{
		{75, severityFill[models.SeverityCritical], "Critical (>75)"},
		{50, severityFill[models.SeverityMajor], "Major (>50)"},
		{25, severityFill[models.SeverityMinor], "Minor (>25)"},
	} {
		y := top + height - boundary.score/100*height
		pdf.SetDrawColor(boundary.color.r, boundary.color.g, boundary.color.b)
		pdf.Line(left, y, left+width, y)
		pdf.SetFont("Arial", "", 7)
		pdf.Text(left+width+1, y+1, boundary.label)
	}
	pdf.SetDashPattern([]float64{}, 0)

	// Data points, colored per severity tier.
	window := summary.WindowEnd.Sub(summary.WindowStart)
	if window <= 0 {
		return
	}
	for _, record := range summary.Records {
		frac := float64(record.Timestamp.Sub(summary.WindowStart)) / float64(window)
		if frac < 0 || frac > 1 {
			continue
		}
		x := left + frac*width
		y := top + height - clampScore(record.Score)/100*height
		fill := severityFill[engine.SeverityFromScore(record.Score)]
		pdf.SetFillColor(fill.r, fill.g, fill.b)
		pdf.Circle(x, y, 1.2, "F")
	}

	// Axis labels.
	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(60, 60, 60)
	pdf.Text(left, top+height+5, summary.WindowStart.Format("2006-01-02"))
	pdf.Text(left+width-22, top+height+5, summary.WindowEnd.Format("2006-01-02"))
	pdf.Text(left-6, top+height+1, "0")
	pdf.Text(left-9, top+2, "100")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetY(top + height + 8)
}

func writeTopTable(pdf *fpdf.Fpdf, top []models.AnomalyRecord) {
	if len(top) == 0 {
		return
	}
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, fmt.Sprintf("Top %d Anomalies:", len(top)), "", 1, "", false, 0, "")
	for i, record := range top {
		line := fmt.Sprintf("  %d. Test: %s, Score: %.1f, Time: %s",
			i+1, record.Partition, record.Score, record.Timestamp.Format("2006-01-02 15:04"))
		pdf.CellFormat(0, 6, line, "", 1, "", false, 0, "")
	}
	pdf.Ln(5)
}

func writeRecommendations(pdf *fpdf.Fpdf, recommendations []string) {
	if len(recommendations) == 0 {
		return
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Recommendations:", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for i, rec := range recommendations {
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, rec), "", "", false)
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
