package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

var masterListColumns = []struct {
	header string
	width  float64
}{
	{"Full Name", 38},
	{"Birthdate", 22},
	{"Age", 10},
	{"Contact", 26},
	{"Address", 40},
	{"Diagnosis", 28},
	{"Notes", 26},
}

// WritePDF renders the patient report to w: total count, the age-group pie
// chart, and the master patient list. Generating a report over an empty
// store is an error, matching the behavior of the chart.
func WritePDF(w io.Writer, details []*patient.Detail, now time.Time) error {
	if len(details) == 0 {
		return fmt.Errorf("no patient data available")
	}

	chartPNG, err := RenderPieChart(Distribution(details, now))
	if err != nil {
		return err
	}

	runID := uuid.New().String()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 6,
			fmt.Sprintf("Generated %s  |  report %s", now.Format("2006-01-02 15:04"), runID),
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Patient Management Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total Patients: %d", len(details)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Age Group Distribution", "", 1, "L", false, 0, "")
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("age_pie", opts, bytes.NewReader(chartPNG))
	pdf.ImageOptions("age_pie", 55, pdf.GetY(), 100, 100, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + 106)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Master Patient List", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(44, 62, 80)
	pdf.SetTextColor(255, 255, 255)
	for _, col := range masterListColumns {
		pdf.CellFormat(col.width, 7, col.header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(0, 0, 0)
	fill := false
	for _, d := range details {
		pdf.SetFillColor(245, 245, 245)
		cells := []string{
			d.FullName(),
			d.Birthdate,
			strconv.Itoa(AgeAt(d.Birthdate, now)),
			d.Contact,
			formatAddress(d),
			d.DiagnosisName,
			d.Notes,
		}
		for i, col := range masterListColumns {
			pdf.CellFormat(col.width, 6, clip(cells[i], col.width), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}

	if pdf.Err() {
		return fmt.Errorf("build pdf: %v", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func formatAddress(d *patient.Detail) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{d.HouseNo, d.Street, d.Barangay, d.Municipality} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// clip truncates s so a row cell never overflows its column. The limit is a
// rough character budget derived from the column width at the 7pt row font.
// Truncation happens on rune boundaries so accented names stay valid UTF-8.
func clip(s string, width float64) string {
	max := int(width / 1.6)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
