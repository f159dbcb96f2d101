package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"jailroster/pkg/domain"
	"jailroster/pkg/store"
)

func strPtr(s string) *string { return &s }

func newTestApp() (*App, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return New(st, nil, nil, nil, "Shaker Heights Police", -1), st
}

// failingStore rejects saves after the first n to exercise error paths.
type failingStore struct {
	*store.MemoryStore
	saveLimit int
	saves     int
}

func (f *failingStore) SaveRecord(r domain.Record) error {
	f.saves++
	if f.saves > f.saveLimit {
		return errors.New("disk full")
	}
	return f.MemoryStore.SaveRecord(r)
}

func TestCreateRecordRequiresName(t *testing.T) {
	a, _ := newTestApp()
	_, err := a.CreateRecord(context.Background(), "admin", domain.PartialRecord{})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
	_, err = a.CreateRecord(context.Background(), "admin", domain.PartialRecord{Name: strPtr("   ")})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("blank name: got %v, want ErrValidation", err)
	}
}

func TestCreateRecordAssignsIDAndDefaults(t *testing.T) {
	a, st := newTestApp()
	rec, err := a.CreateRecord(context.Background(), "admin", domain.PartialRecord{Name: strPtr("John Doe")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" {
		t.Error("no id assigned")
	}
	if rec.JailLocation != domain.DefaultJailLocation {
		t.Errorf("jailLocation = %q", rec.JailLocation)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
	entries := st.AuditEntries()
	if len(entries) != 1 || entries[0].Action != "create" || entries[0].Actor != "admin" {
		t.Errorf("audit = %+v", entries)
	}
}

func TestUpdateRecordMergesOmittedFields(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()
	rec, err := a.CreateRecord(ctx, "admin", domain.PartialRecord{
		Name:    strPtr("John Doe"),
		Charges: strPtr("theft"),
		Bond:    strPtr("$5,000"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := a.UpdateRecord(ctx, "admin", rec.ID, domain.PartialRecord{Bond: strPtr("$10,000")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Bond != "$10,000" {
		t.Errorf("bond = %q", updated.Bond)
	}
	if updated.Name != "John Doe" || updated.Charges != "theft" {
		t.Error("omitted fields changed")
	}
	if updated.ID != rec.ID {
		t.Error("id changed on update")
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	a, _ := newTestApp()
	_, err := a.UpdateRecord(context.Background(), "admin", "nope", domain.PartialRecord{Name: strPtr("X Y")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteRecordTwice(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()
	rec, err := a.CreateRecord(ctx, "supervisor", domain.PartialRecord{Name: strPtr("John Doe")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.DeleteRecord(ctx, "supervisor", rec.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := a.DeleteRecord(ctx, "supervisor", rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestClearRecords(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()
	for _, name := range []string{"John Doe", "Jane Roe"} {
		if _, err := a.CreateRecord(ctx, "admin", domain.PartialRecord{Name: strPtr(name)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	count, err := a.ClearRecords(ctx, "admin")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if count != 2 {
		t.Errorf("cleared = %d", count)
	}
	records, _ := a.ListRecords(ctx)
	if len(records) != 0 {
		t.Errorf("records left: %d", len(records))
	}
}

func TestImportJSONFreshIDsAndCounts(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()
	doc := `[
		{"id":"keep-me","name":"John Doe"},
		{"name":""},
		{"name":"Jane Roe"}
	]`
	result, err := a.ImportJSON(ctx, "admin", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.ImportedCount != 2 || result.SkippedCount != 1 || result.TotalRecords != 2 {
		t.Errorf("result = %+v", result)
	}
	records, _ := a.ListRecords(ctx)
	for _, rec := range records {
		if rec.ID == "keep-me" {
			t.Error("import reused supplied id")
		}
	}
}

func TestImportRollsBackOnStoreFailure(t *testing.T) {
	st := &failingStore{MemoryStore: store.NewMemoryStore(), saveLimit: 1}
	a := New(st, nil, nil, nil, "Shaker Heights Police", -1)

	doc := `[{"name":"John Doe"},{"name":"Jane Roe"}]`
	_, err := a.ImportJSON(context.Background(), "admin", strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected store failure to surface")
	}
	count, _ := st.CountRecords()
	if count != 0 {
		t.Errorf("failed import left %d record(s) behind, want 0", count)
	}
}

func TestImportExcelHonorsZeroHeaderSkip(t *testing.T) {
	st := store.NewMemoryStore()
	a := New(st, nil, nil, nil, "Shaker Heights Police", 0)

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for col, value := range []string{"Solon", "A-1", "", "", "John Doe"} {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			t.Fatalf("set cell: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	result, err := a.ImportExcel(context.Background(), "supervisor", &buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.ImportedCount != 1 {
		t.Errorf("importedCount = %d, want 1 (first row is data when skip is 0)", result.ImportedCount)
	}
}

func TestImportJSONFatalLeavesStoreUntouched(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()
	if _, err := a.CreateRecord(ctx, "admin", domain.PartialRecord{Name: strPtr("John Doe")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := a.ImportJSON(ctx, "admin", strings.NewReader("{not json"))
	if !errors.Is(err, ErrImportFatal) {
		t.Fatalf("got %v, want ErrImportFatal", err)
	}
	records, _ := a.ListRecords(ctx)
	if len(records) != 1 {
		t.Errorf("store changed: %d records", len(records))
	}
}

func TestExportExcelEmptyRefused(t *testing.T) {
	a, _ := newTestApp()
	if _, err := a.ExportExcel(context.Background()); !errors.Is(err, ErrNoData) {
		t.Errorf("got %v, want ErrNoData", err)
	}
}

func TestExportPDFEmptyAllowed(t *testing.T) {
	a, _ := newTestApp()
	out, err := a.ExportPDF(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}

func TestPhotoRoutesNeedObjectStore(t *testing.T) {
	a, _ := newTestApp()
	ctx := context.Background()
	if err := a.AttachPhoto(ctx, "admin", "r1", []byte("img")); !errors.Is(err, ErrPhotoStorageUnavailable) {
		t.Errorf("attach: got %v", err)
	}
	if _, err := a.Photo(ctx, "r1"); !errors.Is(err, ErrPhotoStorageUnavailable) {
		t.Errorf("get: got %v", err)
	}
}

func TestEmailReportValidatesRecipient(t *testing.T) {
	a, _ := newTestApp()
	err := a.EmailReport(context.Background(), "admin", "not-an-email")
	if err == nil {
		t.Error("expected error for bad recipient")
	}
}
