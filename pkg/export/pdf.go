package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"jailroster/pkg/domain"
)

const (
	chargesActiveMax   = 40
	chargesReleasedMax = 35
	notesReleasedMax   = 20
)

type pdfColumn struct {
	title string
	width float64
	value func(domain.Record) string
}

var activeColumns = []pdfColumn{
	{"Location", 24, func(r domain.Record) string { return r.JailLocation }},
	{"Cell", 14, func(r domain.Record) string { return r.Cell }},
	{"Name", 48, func(r domain.Record) string { return r.Name }},
	{"OCA #", 26, func(r domain.Record) string { return r.OCANumber }},
	{"Arrest Date", 38, func(r domain.Record) string { return domain.FormatTimestamp(r.ArrestDateTime) }},
	{"Charges", 78, func(r domain.Record) string { return truncate(r.Charges, chargesActiveMax) }},
	{"Bond", 24, func(r domain.Record) string { return r.Bond }},
	{"Court Date", 25, func(r domain.Record) string { return domain.FormatDate(r.CourtDate) }},
}

var releasedColumns = []pdfColumn{
	{"Location", 24, func(r domain.Record) string { return r.JailLocation }},
	{"Cell", 14, func(r domain.Record) string { return r.Cell }},
	{"Name", 48, func(r domain.Record) string { return r.Name }},
	{"Arrest Date", 38, func(r domain.Record) string { return domain.FormatTimestamp(r.ArrestDateTime) }},
	{"Release Date", 38, func(r domain.Record) string { return domain.FormatTimestamp(r.ReleaseDateTime) }},
	{"Charges", 70, func(r domain.Record) string { return truncate(r.Charges, chargesReleasedMax) }},
	{"Notes", 45, func(r domain.Record) string { return truncate(r.HoldersNotes, notesReleasedMax) }},
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// ExportPDF renders the roster as a landscape A4 report. Records still
// in custody and released records land in separate sections with their
// own column sets. Zero records still yields a complete report.
func ExportPDF(records []domain.Record, orgName string) ([]byte, error) {
	var active, released []domain.Record
	for _, r := range records {
		if r.Classify() == domain.Released {
			released = append(released, r)
		} else {
			active = append(active, r)
		}
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, "CONFIDENTIAL - For law enforcement use only. Unauthorized disclosure is prohibited.",
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// Header band.
	pdf.SetFillColor(31, 56, 100)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, orgName, "", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Jail Roster Report", "", 1, "C", true, 0, "")

	pdf.Ln(3)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s    Total records: %d",
		time.Now().Format("2006-01-02 15:04"), len(records)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	writeSection(pdf, fmt.Sprintf("In Custody (%d)", len(active)), activeColumns, active)
	pdf.Ln(4)
	writeSection(pdf, fmt.Sprintf("Released (%d)", len(released)), releasedColumns, released)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *fpdf.Fpdf, heading string, columns []pdfColumn, records []domain.Record) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(31, 56, 100)
	pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(217, 217, 217)
	for _, col := range columns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for i, rec := range records {
		shaded := i%2 == 1
		if shaded {
			pdf.SetFillColor(240, 240, 240)
		}
		for _, col := range columns {
			pdf.CellFormat(col.width, 6, col.value(rec), "1", 0, "L", shaded, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(records) == 0 {
		var total float64
		for _, col := range columns {
			total += col.width
		}
		pdf.CellFormat(total, 6, "No records", "1", 1, "C", false, 0, "")
	}
}
