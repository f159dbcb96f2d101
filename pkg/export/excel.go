// Package export converts between the canonical roster record and its
// interchange formats: Excel workbooks, JSON documents and PDF reports.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"jailroster/pkg/domain"
)

// DefaultHeaderSkipRows covers the banner row plus the header row of the
// department's roster template; data starts on row 3.
const DefaultHeaderSkipRows = 2

const sheetName = "Roster"

// excelHeaders is the fixed 24-column roster layout, shared by import
// and export so the two stay inverse of each other.
var excelHeaders = []string{
	"LOCATION",
	"CELL",
	"DAY #",
	"TOTAL #",
	"NAME",
	"D.O.B.",
	"SS#",
	"M",
	"F",
	"OCA #",
	"ARREST DATE/TIME",
	"MIS",
	"FEL",
	"CHARGES",
	"COURT PACKET",
	"INST",
	"COURT CASE TICKET #",
	"BOND CHNG NOTICE",
	"BOND",
	"WAIVER",
	"COURT DATE",
	"RELEASE DATE/TIME",
	"HOLDERS/NOTES",
	"CHARGING DOCS",
}

// ParseMarker reports whether a spreadsheet marker cell carries the
// expected mark for its column, ignoring case and surrounding space.
// Demographic and charge columns use "X", bond-change uses "Y"; any
// other content leaves the flag unset.
func ParseMarker(cell, mark string) bool {
	return strings.ToUpper(strings.TrimSpace(cell)) == mark
}

// ImportExcel reads an xlsx workbook and converts each data row into a
// partial record. Rows with a blank name, or the literal header word
// "NAME" carried into the data region, are skipped. It returns the
// accepted rows and the number skipped.
func ImportExcel(r io.Reader, headerSkipRows int) ([]domain.PartialRecord, int, error) {
	if headerSkipRows < 0 {
		headerSkipRows = DefaultHeaderSkipRows
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("read rows: %w", err)
	}

	var (
		records []domain.PartialRecord
		skipped int
	)
	for i, row := range rows {
		if i < headerSkipRows {
			continue
		}
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		name := cell(4)
		if name == "" || strings.EqualFold(name, "NAME") {
			skipped++
			continue
		}
		records = append(records, rowToPartial(cell))
	}
	return records, skipped, nil
}

func rowToPartial(cell func(int) string) domain.PartialRecord {
	str := func(col int) *string {
		v := cell(col)
		return &v
	}
	marker := func(col int, mark string) *bool {
		v := ParseMarker(cell(col), mark)
		return &v
	}
	return domain.PartialRecord{
		JailLocation:     str(0),
		Cell:             str(1),
		DayNumber:        str(2),
		TotalNumber:      str(3),
		Name:             str(4),
		DOB:              str(5),
		SSN:              str(6),
		SexM:             marker(7, "X"),
		SexF:             marker(8, "X"),
		OCANumber:        str(9),
		ArrestDateTime:   str(10),
		Misdemeanor:      marker(11, "X"),
		Felony:           marker(12, "X"),
		Charges:          str(13),
		CourtPacket:      str(14),
		Inst:             str(15),
		CourtCaseTicket:  str(16),
		BondChangeNotice: marker(17, "Y"),
		Bond:             str(18),
		Waiver:           str(19),
		CourtDate:        str(20),
		ReleaseDateTime:  str(21),
		HoldersNotes:     str(22),
		ChargingDocs:     str(23),
	}
}

// ExportExcel writes the records as an xlsx workbook: a banner row with
// the organization name and date, a styled header row, then one row per
// record in the fixed column order.
func ExportExcel(records []domain.Record, orgName string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	banner := fmt.Sprintf("%s Jail Roster - %s", orgName, time.Now().Format("2006-01-02"))
	if err := f.SetCellValue(sheetName, "A1", banner); err != nil {
		return nil, fmt.Errorf("write banner: %w", err)
	}
	lastCol, err := excelize.CoordinatesToCellName(len(excelHeaders), 1)
	if err != nil {
		return nil, fmt.Errorf("banner range: %w", err)
	}
	if err := f.MergeCell(sheetName, "A1", lastCol); err != nil {
		return nil, fmt.Errorf("merge banner: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9D9D9"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	for i, header := range excelHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	for i, rec := range records {
		row := i + 3
		for col, value := range recordToRow(rec) {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func recordToRow(r domain.Record) []string {
	marker := func(set bool, mark string) string {
		if set {
			return mark
		}
		return ""
	}
	return []string{
		r.JailLocation,
		r.Cell,
		r.DayNumber,
		r.TotalNumber,
		r.Name,
		domain.FormatDate(r.DOB),
		r.SSN,
		marker(r.SexM, "X"),
		marker(r.SexF, "X"),
		r.OCANumber,
		domain.FormatTimestamp(r.ArrestDateTime),
		marker(r.Misdemeanor, "X"),
		marker(r.Felony, "X"),
		r.Charges,
		r.CourtPacket,
		r.Inst,
		r.CourtCaseTicket,
		marker(r.BondChangeNotice, "Y"),
		r.Bond,
		r.Waiver,
		domain.FormatDate(r.CourtDate),
		domain.FormatTimestamp(r.ReleaseDateTime),
		r.HoldersNotes,
		r.ChargingDocs,
	}
}
