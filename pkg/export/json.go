package export

import (
	"encoding/json"
	"fmt"
	"io"

	"jailroster/pkg/domain"
)

// ExportJSON renders the records as a pretty-printed JSON array in
// their serialized wire shape.
func ExportJSON(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return out, nil
}

// ImportJSON reads a JSON array of record objects. Entries that are not
// objects are skipped and counted; a document that is not an array at
// all is a fatal parse error.
func ImportJSON(r io.Reader) ([]domain.PartialRecord, int, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("parse document: %w", err)
	}
	var (
		records []domain.PartialRecord
		skipped int
	)
	for _, entry := range raw {
		var p domain.PartialRecord
		if err := json.Unmarshal(entry, &p); err != nil {
			skipped++
			continue
		}
		records = append(records, p)
	}
	return records, skipped, nil
}
