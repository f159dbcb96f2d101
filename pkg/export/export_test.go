package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"jailroster/pkg/domain"
)

func strPtr(s string) *string { return &s }

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func dataRow(name string) []string {
	return []string{
		"Solon", "A-1", "3", "12", name, "1990-05-17", "123-45-6789",
		"X", "", "OCA-99", "2024-03-01T14:05:00", "", "X",
		"burglary", "yes", "CJC", "T-100", "Y", "$5,000", "signed",
		"2024-06-01", "", "hold for county", "filed",
	}
}

func TestParseMarker(t *testing.T) {
	cases := []struct {
		cell string
		mark string
		want bool
	}{
		{"X", "X", true},
		{"x", "X", true},
		{" X ", "X", true},
		{"Y", "Y", true},
		{"y", "Y", true},
		{"Y", "X", false},
		{"X", "Y", false},
		{"", "X", false},
		{"N", "X", false},
		{"maybe", "X", false},
		{"XX", "X", false},
	}
	for _, tc := range cases {
		if got := ParseMarker(tc.cell, tc.mark); got != tc.want {
			t.Errorf("ParseMarker(%q, %q) = %v, want %v", tc.cell, tc.mark, got, tc.want)
		}
	}
}

func TestImportExcelMarkersAreColumnSpecific(t *testing.T) {
	row := dataRow("John Doe")
	row[7] = "Y"  // sex-M column only accepts X
	row[17] = "X" // bond-change column only accepts Y
	rows := [][]string{
		{"Shaker Heights Police Jail Roster"},
		{"LOCATION", "CELL", "DAY #", "TOTAL #", "NAME"},
		row,
	}
	records, _, err := ImportExcel(buildWorkbook(t, rows), 2)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	got := records[0]
	if *got.SexM {
		t.Error("Y in the sex-M column set the flag")
	}
	if *got.BondChangeNotice {
		t.Error("X in the bond-change column set the flag")
	}
}

func TestImportExcelSkipsHeaderAndBlankRows(t *testing.T) {
	rows := [][]string{
		{"Shaker Heights Police Jail Roster"},
		{"LOCATION", "CELL", "DAY #", "TOTAL #", "NAME"},
		dataRow("John Doe"),
		dataRow(""),
		dataRow("NAME"),
		dataRow("Jane Roe"),
	}
	records, skipped, err := ImportExcel(buildWorkbook(t, rows), 2)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	first := records[0]
	if *first.Name != "John Doe" || *first.JailLocation != "Solon" || *first.Cell != "A-1" {
		t.Errorf("first row wrong: %+v", first)
	}
	if !*first.SexM || *first.SexF {
		t.Error("sex markers wrong")
	}
	if *first.Misdemeanor || !*first.Felony {
		t.Error("charge markers wrong")
	}
	if !*first.BondChangeNotice {
		t.Error("bond change marker wrong")
	}
	if *first.CourtDate != "2024-06-01" {
		t.Errorf("court date = %q", *first.CourtDate)
	}
}

func TestImportExcelGarbageFails(t *testing.T) {
	if _, _, err := ImportExcel(strings.NewReader("this is not a workbook"), 2); err == nil {
		t.Error("expected parse error")
	}
}

func TestExcelExportImportRoundTrip(t *testing.T) {
	rec := domain.NewRecord(domain.PartialRecord{
		Name:           strPtr("John Doe"),
		Cell:           strPtr("A-1"),
		Charges:        strPtr("burglary"),
		ArrestDateTime: strPtr("2024-03-01T14:05:00Z"),
	})
	rec.ID = "r1"
	rec.Felony = true

	data, err := ExportExcel([]domain.Record{rec}, "Shaker Heights Police")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	records, skipped, err := ImportExcel(bytes.NewReader(data), DefaultHeaderSkipRows)
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if skipped != 0 || len(records) != 1 {
		t.Fatalf("records=%d skipped=%d", len(records), skipped)
	}
	got := records[0]
	if *got.Name != "John Doe" || *got.Cell != "A-1" || *got.Charges != "burglary" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if !*got.Felony {
		t.Error("felony marker lost")
	}
	if domain.ParseTimestamp(*got.ArrestDateTime) == nil {
		t.Errorf("arrest timestamp unparseable: %q", *got.ArrestDateTime)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	rec := domain.NewRecord(domain.PartialRecord{Name: strPtr("Jane Roe")})
	rec.ID = "r1"
	out, err := ExportJSON([]domain.Record{rec})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	records, skipped, err := ImportJSON(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if skipped != 0 || len(records) != 1 || *records[0].Name != "Jane Roe" {
		t.Errorf("records=%+v skipped=%d", records, skipped)
	}
}

func TestJSONImportSkipsMalformedEntries(t *testing.T) {
	doc := `[{"name":"John Doe"}, 42, {"name":"Jane Roe"}]`
	records, skipped, err := ImportJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(records) != 2 || skipped != 1 {
		t.Errorf("records=%d skipped=%d", len(records), skipped)
	}
}

func TestJSONImportNonArrayFatal(t *testing.T) {
	if _, _, err := ImportJSON(strings.NewReader(`{"name":"x"}`)); err == nil {
		t.Error("expected fatal parse error")
	}
}

func TestExportJSONEmpty(t *testing.T) {
	out, err := ExportJSON(nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(string(out)) != "[]" {
		t.Errorf("empty export = %s", out)
	}
}

func TestExportPDFZeroRecords(t *testing.T) {
	out, err := ExportPDF(nil, "Shaker Heights Police")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
	if !bytes.Contains(out, []byte("%%EOF")) {
		t.Error("PDF is missing trailer")
	}
}

func TestExportPDFSplitsSections(t *testing.T) {
	active := domain.NewRecord(domain.PartialRecord{Name: strPtr("John Doe")})
	active.ID = "r1"
	released := domain.NewRecord(domain.PartialRecord{
		Name:            strPtr("Jane Roe"),
		ReleaseDateTime: strPtr("2024-03-02T10:00:00Z"),
	})
	released.ID = "r2"

	out, err := ExportPDF([]domain.Record{active, released}, "Shaker Heights Police")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
	if len(out) < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", len(out))
	}
}

func TestTruncateEllipsis(t *testing.T) {
	long := strings.Repeat("a", 60)
	got := truncate(long, chargesActiveMax)
	if len([]rune(got)) != chargesActiveMax {
		t.Errorf("len = %d, want %d", len([]rune(got)), chargesActiveMax)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}
	if truncate("short", chargesActiveMax) != "short" {
		t.Error("short string changed")
	}
}
