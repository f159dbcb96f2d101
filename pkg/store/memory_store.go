package store

import (
	"sync"

	"jailroster/pkg/domain"
)

// MemoryStore keeps records in-process for local testing and the
// zero-dependency demo mode. Insertion order is preserved.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	order   []string
	audit   []AuditEntry
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.Record)}
}

// SaveRecord stores or replaces a record and tracks insertion order.
func (m *MemoryStore) SaveRecord(r domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.records[r.ID] = r
	return nil
}

// GetRecord retrieves a record by id.
func (m *MemoryStore) GetRecord(id string) (domain.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok, nil
}

// ListRecords returns records in insertion order.
func (m *MemoryStore) ListRecords() ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Record, 0, len(m.order))
	for _, id := range m.order {
		if r, ok := m.records[id]; ok {
			res = append(res, r)
		}
	}
	return res, nil
}

// DeleteRecord removes a record, reporting ErrNotFound when absent.
func (m *MemoryStore) DeleteRecord(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	filtered := m.order[:0]
	for _, item := range m.order {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.order = filtered
	return nil
}

// ClearRecords drops every record.
func (m *MemoryStore) ClearRecords() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]domain.Record)
	m.order = nil
	return nil
}

// CountRecords returns the number of records.
func (m *MemoryStore) CountRecords() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// AppendAudit records one mutation.
func (m *MemoryStore) AppendAudit(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

// AuditEntries returns a copy of the audit trail, oldest first.
func (m *MemoryStore) AuditEntries() []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}
