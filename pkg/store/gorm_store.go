package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"jailroster/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&RosterModel{}, &AuditModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveRecord inserts or replaces a roster record by id.
func (s *GormStore) SaveRecord(r domain.Record) error {
	model := recordToModel(r)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&model).Error
}

// GetRecord retrieves a record by id.
func (s *GormStore) GetRecord(id string) (domain.Record, bool, error) {
	var model RosterModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Record{}, false, nil
		}
		return domain.Record{}, false, err
	}
	return recordFromModel(model), true, nil
}

// ListRecords returns all records ordered by created_at, with id as a
// tiebreaker so rows imported in one batch list deterministically.
func (s *GormStore) ListRecords() ([]domain.Record, error) {
	var models []RosterModel
	if err := s.db.Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Record, 0, len(models))
	for _, m := range models {
		res = append(res, recordFromModel(m))
	}
	return res, nil
}

// DeleteRecord removes a record, reporting ErrNotFound when absent.
func (s *GormStore) DeleteRecord(id string) error {
	tx := s.db.Delete(&RosterModel{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRecords removes every roster row.
func (s *GormStore) ClearRecords() error {
	return s.db.Where("1 = 1").Delete(&RosterModel{}).Error
}

// CountRecords returns the number of roster rows.
func (s *GormStore) CountRecords() (int, error) {
	var count int64
	if err := s.db.Model(&RosterModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// AppendAudit records one mutation in the audit trail.
func (s *GormStore) AppendAudit(entry AuditEntry) error {
	payload, _ := json.Marshal(entry.Payload)
	model := AuditModel{
		ID:        entry.ID,
		Actor:     entry.Actor,
		Action:    entry.Action,
		RecordID:  entry.RecordID,
		Payload:   payload,
		CreatedAt: entry.At,
	}
	return s.db.Create(&model).Error
}

func recordToModel(r domain.Record) RosterModel {
	return RosterModel{
		ID:               r.ID,
		JailLocation:     r.JailLocation,
		Cell:             r.Cell,
		DayNumber:        r.DayNumber,
		TotalNumber:      r.TotalNumber,
		Name:             r.Name,
		DOB:              r.DOB,
		SSN:              r.SSN,
		SexM:             r.SexM,
		SexF:             r.SexF,
		OCANumber:        r.OCANumber,
		ArrestDateTime:   r.ArrestDateTime,
		Misdemeanor:      r.Misdemeanor,
		Felony:           r.Felony,
		Charges:          r.Charges,
		CourtPacket:      r.CourtPacket,
		Inst:             r.Inst,
		CourtCaseTicket:  r.CourtCaseTicket,
		BondChangeNotice: r.BondChangeNotice,
		Bond:             r.Bond,
		Waiver:           r.Waiver,
		CourtDate:        r.CourtDate,
		ReleaseDateTime:  r.ReleaseDateTime,
		HoldersNotes:     r.HoldersNotes,
		ChargingDocs:     r.ChargingDocs,
		SuspectPhoto:     r.SuspectPhoto,
		PhotoKey:         r.PhotoKey,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func recordFromModel(m RosterModel) domain.Record {
	return domain.Record{
		ID:               m.ID,
		JailLocation:     m.JailLocation,
		Cell:             m.Cell,
		DayNumber:        m.DayNumber,
		TotalNumber:      m.TotalNumber,
		Name:             m.Name,
		DOB:              m.DOB,
		SSN:              m.SSN,
		SexM:             m.SexM,
		SexF:             m.SexF,
		OCANumber:        m.OCANumber,
		ArrestDateTime:   m.ArrestDateTime,
		Misdemeanor:      m.Misdemeanor,
		Felony:           m.Felony,
		Charges:          m.Charges,
		CourtPacket:      m.CourtPacket,
		Inst:             m.Inst,
		CourtCaseTicket:  m.CourtCaseTicket,
		BondChangeNotice: m.BondChangeNotice,
		Bond:             m.Bond,
		Waiver:           m.Waiver,
		CourtDate:        m.CourtDate,
		ReleaseDateTime:  m.ReleaseDateTime,
		HoldersNotes:     m.HoldersNotes,
		ChargingDocs:     m.ChargingDocs,
		SuspectPhoto:     m.SuspectPhoto,
		PhotoKey:         m.PhotoKey,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
