package store

import (
	"errors"
	"time"

	"jailroster/pkg/domain"
)

// ErrNotFound is returned when a record id has no row behind it.
var ErrNotFound = errors.New("record not found")

// Store defines persistence operations for roster records and the
// audit trail. Implementations serialize conflicting writes; updates
// are last-write-wins.
type Store interface {
	SaveRecord(domain.Record) error
	GetRecord(id string) (domain.Record, bool, error)
	ListRecords() ([]domain.Record, error)
	DeleteRecord(id string) error
	ClearRecords() error
	CountRecords() (int, error)

	AppendAudit(AuditEntry) error
}

// AuditEntry records one mutation of the roster.
type AuditEntry struct {
	ID       string
	Actor    string
	Action   string
	RecordID string
	Payload  map[string]any
	At       time.Time
}

// SessionStore persists server-side session state keyed by session id.
type SessionStore interface {
	Put(session domain.Session, ttl time.Duration) error
	Get(id string) (domain.Session, bool, error)
	Delete(id string) error
}
