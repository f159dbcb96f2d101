package store

import (
	"time"

	"gorm.io/datatypes"
)

// RosterModel is the relational row backing one roster record.
type RosterModel struct {
	ID               string `gorm:"primaryKey;size:50"`
	JailLocation     string `gorm:"size:100;not null"`
	Cell             string `gorm:"size:50"`
	DayNumber        string `gorm:"size:10"`
	TotalNumber      string `gorm:"size:10"`
	Name             string `gorm:"size:200;not null"`
	DOB              *time.Time
	SSN              string `gorm:"size:20"`
	SexM             bool
	SexF             bool
	OCANumber        string `gorm:"size:50"`
	ArrestDateTime   *time.Time
	Misdemeanor      bool
	Felony           bool
	Charges          string `gorm:"type:text"`
	CourtPacket      string `gorm:"size:100"`
	Inst             string `gorm:"size:100"`
	CourtCaseTicket  string `gorm:"size:100"`
	BondChangeNotice bool
	Bond             string `gorm:"size:100"`
	Waiver           string `gorm:"size:100"`
	CourtDate        *time.Time
	ReleaseDateTime  *time.Time
	HoldersNotes     string `gorm:"type:text"`
	ChargingDocs     string `gorm:"size:100"`
	SuspectPhoto     []byte
	PhotoKey         string `gorm:"size:100"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (RosterModel) TableName() string { return "roster" }

// AuditModel is one row of the mutation audit trail.
type AuditModel struct {
	ID        string `gorm:"primaryKey;size:50"`
	Actor     string `gorm:"size:100"`
	Action    string `gorm:"size:50;not null"`
	RecordID  string `gorm:"size:50;index"`
	Payload   datatypes.JSON
	CreatedAt time.Time
}

func (AuditModel) TableName() string { return "roster_audit" }
