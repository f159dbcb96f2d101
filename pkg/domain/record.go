package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultJailLocation is applied when a record arrives without one.
const DefaultJailLocation = "Solon"

// Record is the canonical roster record every input format converges on.
// Absent dates/timestamps are nil; absent strings are empty.
type Record struct {
	ID               string
	JailLocation     string
	Cell             string
	DayNumber        string
	TotalNumber      string
	Name             string
	DOB              *time.Time
	SSN              string
	SexM             bool
	SexF             bool
	OCANumber        string
	ArrestDateTime   *time.Time
	Misdemeanor      bool
	Felony           bool
	Charges          string
	CourtPacket      string
	Inst             string
	CourtCaseTicket  string
	BondChangeNotice bool
	Bond             string
	Waiver           string
	CourtDate        *time.Time
	ReleaseDateTime  *time.Time
	HoldersNotes     string
	ChargingDocs     string
	SuspectPhoto     []byte
	PhotoKey         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Classify derives the custody status. It is a view, never stored.
func (r Record) Classify() Classification {
	if r.ReleaseDateTime != nil {
		return Released
	}
	if r.CourtDate != nil {
		return PendingCourt
	}
	return InCustody
}

// PartialRecord is the single input type for all three record sources:
// API bodies, spreadsheet rows, and JSON import entries. Nil fields mean
// "not supplied"; date/timestamp fields carry raw text and are parsed
// leniently when applied.
type PartialRecord struct {
	JailLocation       *string `json:"jailLocation"`
	Cell               *string `json:"cell"`
	DayNumber          *string `json:"dayNumber"`
	TotalNumber        *string `json:"totalNumber"`
	Name               *string `json:"name"`
	DOB                *string `json:"dob"`
	SSN                *string `json:"ssn"`
	SexM               *bool   `json:"sexM"`
	SexF               *bool   `json:"sexF"`
	OCANumber          *string `json:"ocaNumber"`
	ArrestDateTime     *string `json:"arrestDateTime"`
	Misdemeanor        *bool   `json:"misdemeanor"`
	Felony             *bool   `json:"felony"`
	Charges            *string `json:"charges"`
	CourtPacket        *string `json:"courtPacket"`
	Inst               *string `json:"inst"`
	CourtCaseTicket    *string `json:"courtCaseTicket"`
	BondChangeNotice   *bool   `json:"bondChangeNotice"`
	Bond               *string `json:"bond"`
	Waiver             *string `json:"waiver"`
	CourtDate          *string `json:"courtDate"`
	ReleaseDateTime    *string `json:"releaseDateTime"`
	HoldersNotes       *string `json:"holdersNotes"`
	ChargingDocs       *string `json:"chargingDocs"`
	SuspectPhotoBase64 *string `json:"suspectPhotoBase64"`
}

// ApplyTo merges the supplied fields into r. Fields left nil keep their
// previous value. Date/timestamp text that fails to parse degrades to
// absent rather than erroring. An empty photo string never clears a
// stored photo.
func (p PartialRecord) ApplyTo(r *Record) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&r.JailLocation, p.JailLocation)
	setString(&r.Cell, p.Cell)
	setString(&r.DayNumber, p.DayNumber)
	setString(&r.TotalNumber, p.TotalNumber)
	setString(&r.Name, p.Name)
	setString(&r.SSN, p.SSN)
	setString(&r.OCANumber, p.OCANumber)
	setString(&r.Charges, p.Charges)
	setString(&r.CourtPacket, p.CourtPacket)
	setString(&r.Inst, p.Inst)
	setString(&r.CourtCaseTicket, p.CourtCaseTicket)
	setString(&r.Bond, p.Bond)
	setString(&r.Waiver, p.Waiver)
	setString(&r.HoldersNotes, p.HoldersNotes)
	setString(&r.ChargingDocs, p.ChargingDocs)
	setBool(&r.SexM, p.SexM)
	setBool(&r.SexF, p.SexF)
	setBool(&r.Misdemeanor, p.Misdemeanor)
	setBool(&r.Felony, p.Felony)
	setBool(&r.BondChangeNotice, p.BondChangeNotice)
	if p.DOB != nil {
		r.DOB = ParseDate(*p.DOB)
	}
	if p.CourtDate != nil {
		r.CourtDate = ParseDate(*p.CourtDate)
	}
	if p.ArrestDateTime != nil {
		r.ArrestDateTime = ParseTimestamp(*p.ArrestDateTime)
	}
	if p.ReleaseDateTime != nil {
		r.ReleaseDateTime = ParseTimestamp(*p.ReleaseDateTime)
	}
	if p.SuspectPhotoBase64 != nil && *p.SuspectPhotoBase64 != "" {
		r.SuspectPhoto = []byte(*p.SuspectPhotoBase64)
	}
}

// NewRecord builds a canonical record from a partial one, filling every
// unsupplied field with its default. The id is left for the caller.
func NewRecord(p PartialRecord) Record {
	r := Record{JailLocation: DefaultJailLocation}
	p.ApplyTo(&r)
	return r
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05-07:00"
)

var timestampLayouts = []string{
	timestampLayout,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseDate accepts an ISO-8601 calendar date. Anything unparseable is
// absent, never an error.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t
	}
	// Some exports carry a full timestamp in date columns.
	if ts := ParseTimestamp(s); ts != nil {
		t := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		return &t
	}
	return nil
}

// ParseTimestamp accepts ISO-8601 date-times, with or without an offset.
// A trailing Z is normalized to +00:00 first. Anything unparseable is
// absent, never an error.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// FormatDate renders a calendar date, empty string when absent.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// FormatTimestamp renders a date-time with explicit offset, empty string
// when absent.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}

// recordJSON is the serialized wire shape: dates as ISO strings (empty
// when absent), photo bytes as text.
type recordJSON struct {
	ID               string `json:"id"`
	JailLocation     string `json:"jailLocation"`
	Cell             string `json:"cell"`
	DayNumber        string `json:"dayNumber"`
	TotalNumber      string `json:"totalNumber"`
	Name             string `json:"name"`
	DOB              string `json:"dob"`
	SSN              string `json:"ssn"`
	SexM             bool   `json:"sexM"`
	SexF             bool   `json:"sexF"`
	OCANumber        string `json:"ocaNumber"`
	ArrestDateTime   string `json:"arrestDateTime"`
	Misdemeanor      bool   `json:"misdemeanor"`
	Felony           bool   `json:"felony"`
	Charges          string `json:"charges"`
	CourtPacket      string `json:"courtPacket"`
	Inst             string `json:"inst"`
	CourtCaseTicket  string `json:"courtCaseTicket"`
	BondChangeNotice bool   `json:"bondChangeNotice"`
	Bond             string `json:"bond"`
	Waiver           string `json:"waiver"`
	CourtDate        string `json:"courtDate"`
	ReleaseDateTime  string `json:"releaseDateTime"`
	HoldersNotes     string `json:"holdersNotes"`
	ChargingDocs     string `json:"chargingDocs"`
	SuspectPhoto     string `json:"suspectPhotoBase64"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

func (r Record) toJSON() recordJSON {
	out := recordJSON{
		ID:               r.ID,
		JailLocation:     r.JailLocation,
		Cell:             r.Cell,
		DayNumber:        r.DayNumber,
		TotalNumber:      r.TotalNumber,
		Name:             r.Name,
		DOB:              FormatDate(r.DOB),
		SSN:              r.SSN,
		SexM:             r.SexM,
		SexF:             r.SexF,
		OCANumber:        r.OCANumber,
		ArrestDateTime:   FormatTimestamp(r.ArrestDateTime),
		Misdemeanor:      r.Misdemeanor,
		Felony:           r.Felony,
		Charges:          r.Charges,
		CourtPacket:      r.CourtPacket,
		Inst:             r.Inst,
		CourtCaseTicket:  r.CourtCaseTicket,
		BondChangeNotice: r.BondChangeNotice,
		Bond:             r.Bond,
		Waiver:           r.Waiver,
		CourtDate:        FormatDate(r.CourtDate),
		ReleaseDateTime:  FormatTimestamp(r.ReleaseDateTime),
		HoldersNotes:     r.HoldersNotes,
		ChargingDocs:     r.ChargingDocs,
		SuspectPhoto:     string(r.SuspectPhoto),
	}
	if !r.CreatedAt.IsZero() {
		out.CreatedAt = r.CreatedAt.UTC().Format(timestampLayout)
	}
	if !r.UpdatedAt.IsZero() {
		out.UpdatedAt = r.UpdatedAt.UTC().Format(timestampLayout)
	}
	return out
}

// MarshalJSON serializes the canonical record into its wire shape.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toJSON())
}
