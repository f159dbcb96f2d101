// Package app implements the roster operations behind the HTTP layer:
// CRUD with merge updates, import/export, photo attachment and audit.
package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"jailroster/internal/audit"
	"jailroster/internal/mailer"
	"jailroster/internal/util"
	"jailroster/internal/watermark"
	"jailroster/pkg/domain"
	"jailroster/pkg/export"
	"jailroster/pkg/storage"
	"jailroster/pkg/store"
)

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	ImportedCount int `json:"importedCount"`
	SkippedCount  int `json:"skippedCount"`
	TotalRecords  int `json:"totalRecords"`
}

// App is the application core. ObjectStore and Publisher are optional;
// the operations that need them fail with a precondition error when
// absent.
type App struct {
	store          store.Store
	objects        storage.ObjectStore
	publisher      audit.Publisher
	dispatcher     *mailer.Dispatcher
	orgName        string
	headerSkipRows int
}

// New assembles the application core. A negative headerSkipRows means
// unconfigured; zero is a valid no-header layout.
func New(st store.Store, objects storage.ObjectStore, publisher audit.Publisher, dispatcher *mailer.Dispatcher, orgName string, headerSkipRows int) *App {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	if headerSkipRows < 0 {
		headerSkipRows = export.DefaultHeaderSkipRows
	}
	return &App{
		store:          st,
		objects:        objects,
		publisher:      publisher,
		dispatcher:     dispatcher,
		orgName:        orgName,
		headerSkipRows: headerSkipRows,
	}
}

// ListRecords returns every roster record in insertion order.
func (a *App) ListRecords(ctx context.Context) ([]domain.Record, error) {
	return a.store.ListRecords()
}

// GetRecord looks up one record.
func (a *App) GetRecord(ctx context.Context, id string) (domain.Record, error) {
	rec, found, err := a.store.GetRecord(id)
	if err != nil {
		return domain.Record{}, err
	}
	if !found {
		return domain.Record{}, store.ErrNotFound
	}
	return rec, nil
}

// CreateRecord builds a record from the partial input and persists it.
func (a *App) CreateRecord(ctx context.Context, actor string, p domain.PartialRecord) (domain.Record, error) {
	if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		return domain.Record{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	rec := domain.NewRecord(p)
	rec.ID = util.NewID()
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := a.store.SaveRecord(rec); err != nil {
		return domain.Record{}, fmt.Errorf("save record: %w", err)
	}
	a.recordAudit(ctx, actor, "create", rec.ID, map[string]any{"name": rec.Name})
	return rec, nil
}

// UpdateRecord merges the supplied fields into an existing record.
// Omitted fields keep their stored value.
func (a *App) UpdateRecord(ctx context.Context, actor, id string, p domain.PartialRecord) (domain.Record, error) {
	rec, found, err := a.store.GetRecord(id)
	if err != nil {
		return domain.Record{}, err
	}
	if !found {
		return domain.Record{}, store.ErrNotFound
	}
	p.ApplyTo(&rec)
	rec.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveRecord(rec); err != nil {
		return domain.Record{}, fmt.Errorf("save record: %w", err)
	}
	a.recordAudit(ctx, actor, "update", rec.ID, map[string]any{"name": rec.Name})
	return rec, nil
}

// DeleteRecord removes a record. Deleting the same id twice reports
// store.ErrNotFound the second time.
func (a *App) DeleteRecord(ctx context.Context, actor, id string) error {
	if err := a.store.DeleteRecord(id); err != nil {
		return err
	}
	a.recordAudit(ctx, actor, "delete", id, nil)
	return nil
}

// ClearRecords empties the roster and returns how many rows were held.
func (a *App) ClearRecords(ctx context.Context, actor string) (int, error) {
	count, err := a.store.CountRecords()
	if err != nil {
		return 0, err
	}
	if err := a.store.ClearRecords(); err != nil {
		return 0, err
	}
	a.recordAudit(ctx, actor, "clear", "", map[string]any{"clearedCount": count})
	return count, nil
}

// ImportExcel parses a spreadsheet and inserts each accepted row as a
// fresh record. A workbook that cannot be parsed leaves the store
// untouched and reports ErrImportFatal.
func (a *App) ImportExcel(ctx context.Context, actor string, r io.Reader) (ImportResult, error) {
	partials, skipped, err := export.ImportExcel(r, a.headerSkipRows)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrImportFatal, err)
	}
	return a.importPartials(ctx, actor, "import_excel", partials, skipped)
}

// ImportJSON parses a JSON array and inserts each entry as a fresh
// record, always under a new id.
func (a *App) ImportJSON(ctx context.Context, actor string, r io.Reader) (ImportResult, error) {
	partials, skipped, err := export.ImportJSON(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrImportFatal, err)
	}
	return a.importPartials(ctx, actor, "import_json", partials, skipped)
}

func (a *App) importPartials(ctx context.Context, actor, action string, partials []domain.PartialRecord, skipped int) (ImportResult, error) {
	now := time.Now().UTC()
	records := make([]domain.Record, 0, len(partials))
	for _, p := range partials {
		if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
			skipped++
			continue
		}
		rec := domain.NewRecord(p)
		rec.ID = util.NewID()
		rec.CreatedAt = now
		rec.UpdatedAt = now
		records = append(records, rec)
	}
	// A failed batch must leave the store as it was before the import.
	inserted := make([]string, 0, len(records))
	for _, rec := range records {
		if err := a.store.SaveRecord(rec); err != nil {
			for _, id := range inserted {
				if delErr := a.store.DeleteRecord(id); delErr != nil {
					util.LoggerFromContext(ctx).Error("import_rollback_failed", "record_id", id, "error", delErr)
				}
			}
			return ImportResult{}, fmt.Errorf("save imported record: %w", err)
		}
		inserted = append(inserted, rec.ID)
	}
	imported := len(inserted)
	total, err := a.store.CountRecords()
	if err != nil {
		return ImportResult{}, err
	}
	a.recordAudit(ctx, actor, action, "", map[string]any{
		"importedCount": imported,
		"skippedCount":  skipped,
	})
	return ImportResult{ImportedCount: imported, SkippedCount: skipped, TotalRecords: total}, nil
}

// ExportExcel renders the roster as an xlsx workbook. An empty roster
// is refused with ErrNoData.
func (a *App) ExportExcel(ctx context.Context) ([]byte, error) {
	records, err := a.store.ListRecords()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	return export.ExportExcel(records, a.orgName)
}

// ExportJSON renders the roster as a JSON array, empty array included.
func (a *App) ExportJSON(ctx context.Context) ([]byte, error) {
	records, err := a.store.ListRecords()
	if err != nil {
		return nil, err
	}
	return export.ExportJSON(records)
}

// ExportPDF renders the roster report. Zero records still produce a
// valid report.
func (a *App) ExportPDF(ctx context.Context) ([]byte, error) {
	records, err := a.store.ListRecords()
	if err != nil {
		return nil, err
	}
	return export.ExportPDF(records, a.orgName)
}

// EmailReport mails the PDF report to the recipient.
func (a *App) EmailReport(ctx context.Context, actor, recipient string) error {
	if a.dispatcher == nil {
		return mailer.ErrNotConfigured
	}
	if strings.TrimSpace(recipient) == "" || !strings.Contains(recipient, "@") {
		return fmt.Errorf("%w: valid recipient email is required", ErrValidation)
	}
	records, err := a.store.ListRecords()
	if err != nil {
		return err
	}
	if err := a.dispatcher.SendReport(ctx, recipient, records); err != nil {
		return err
	}
	a.recordAudit(ctx, actor, "email_report", "", map[string]any{"recipient": recipient})
	return nil
}

// AttachPhoto watermarks an uploaded mugshot and stores it under a new
// object key recorded on the record.
func (a *App) AttachPhoto(ctx context.Context, actor, id string, img []byte) error {
	if a.objects == nil {
		return ErrPhotoStorageUnavailable
	}
	rec, found, err := a.store.GetRecord(id)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	stamp := fmt.Sprintf("%s - %s", a.orgName, time.Now().Format("2006-01-02"))
	marked, err := watermark.Apply(img, stamp)
	if err != nil {
		return fmt.Errorf("%w: unsupported image: %v", ErrValidation, err)
	}
	key := fmt.Sprintf("mugshots/%s/%s.jpg", rec.ID, uuid.NewString())
	if err := a.objects.Put(ctx, key, bytes.NewReader(marked), int64(len(marked)), "image/jpeg"); err != nil {
		return fmt.Errorf("store photo: %w", err)
	}
	if rec.PhotoKey != "" {
		// Old object is replaced; removal failure is not fatal.
		if err := a.objects.Delete(ctx, rec.PhotoKey); err != nil {
			util.LoggerFromContext(ctx).Warn("photo_cleanup_failed", "key", rec.PhotoKey, "error", err)
		}
	}
	rec.PhotoKey = key
	rec.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveRecord(rec); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	a.recordAudit(ctx, actor, "attach_photo", rec.ID, map[string]any{"photoKey": key})
	return nil
}

// Photo streams the stored mugshot for a record.
func (a *App) Photo(ctx context.Context, id string) (io.ReadCloser, error) {
	if a.objects == nil {
		return nil, ErrPhotoStorageUnavailable
	}
	rec, found, err := a.store.GetRecord(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	if rec.PhotoKey == "" {
		return nil, ErrNoPhoto
	}
	return a.objects.Get(ctx, rec.PhotoKey)
}

func (a *App) recordAudit(ctx context.Context, actor, action, recordID string, payload map[string]any) {
	entry := store.AuditEntry{
		ID:       uuid.NewString(),
		Actor:    actor,
		Action:   action,
		RecordID: recordID,
		Payload:  payload,
		At:       time.Now().UTC(),
	}
	if err := a.store.AppendAudit(entry); err != nil {
		util.LoggerFromContext(ctx).Warn("audit_append_failed", "action", action, "error", err)
	}
	a.publisher.Publish(ctx, audit.Event{
		ID:       entry.ID,
		Actor:    entry.Actor,
		Action:   entry.Action,
		RecordID: entry.RecordID,
		Payload:  entry.Payload,
		At:       entry.At,
	})
}
