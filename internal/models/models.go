// Package models defines the locally persisted entities that take part in
// synchronization. Timestamps are kept as ISO-8601 strings exactly as they
// are stored in SQLite and in the remote sheets; internal/normalize parses
// them when instants must be compared.
package models

import "encoding/json"

// EntityType names a syncable entity. The value doubles as the remote sheet name.
type EntityType string

const (
	EntityDelegate EntityType = "delegates"
	EntityRequest  EntityType = "requests"
	EntitySchedule EntityType = "schedules"
	EntityAuditLog EntityType = "audit-log"
	EntitySetting  EntityType = "config"
)

// SyncOrder is the fixed order in which entities are pulled and pushed.
var SyncOrder = []EntityType{EntityDelegate, EntityRequest, EntitySchedule, EntityAuditLog, EntitySetting}

// Delegate is a person holding an allowance of union hours.
type Delegate struct {
	ID             int64  `json:"-"`
	UUID           string `json:"uuid"`
	Name           string `json:"name"`
	Gender         string `json:"gender"`
	MonthlyMinutes int    `json:"monthly_minutes"`
	AnnualMinutes  int    `json:"annual_minutes"`
	Active         bool   `json:"active"`
	UpdatedAt      string `json:"updated_at"`
	SourceDevice   string `json:"source_device"`
	Deleted        bool   `json:"deleted"`
}

// Request is a time-off request of a delegate for one calendar date.
// StartMinutes and EndMinutes are minutes since midnight; for full-day
// requests they carry whatever the schedule provided and do not take part
// in the functional identity.
type Request struct {
	ID           int64  `json:"-"`
	UUID         string `json:"uuid"`
	DelegateUUID string `json:"delegate_uuid"`
	Date         string `json:"date"`
	StartMinutes int    `json:"start_minutes"`
	EndMinutes   int    `json:"end_minutes"`
	FullDay      bool   `json:"full_day"`
	TotalMinutes int    `json:"total_minutes"`
	Note         string `json:"note"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	SourceDevice string `json:"source_device"`
	Deleted      bool   `json:"deleted"`
	AuditRef     string `json:"audit_ref"`
}

// Schedule is one weekday of a delegate's working schedule: minutes worked
// in the morning and afternoon segments. Weekday is ISO (Monday=1..Sunday=7).
type Schedule struct {
	ID               int64  `json:"-"`
	UUID             string `json:"uuid"`
	DelegateUUID     string `json:"delegate_uuid"`
	Weekday          int    `json:"weekday"`
	MorningMinutes   int    `json:"morning_minutes"`
	AfternoonMinutes int    `json:"afternoon_minutes"`
	UpdatedAt        string `json:"updated_at"`
	SourceDevice     string `json:"source_device"`
	Deleted          bool   `json:"deleted"`
}

// AuditLogEntry records a generated confirmation document.
type AuditLogEntry struct {
	ID           int64  `json:"-"`
	EntryID      string `json:"entry_id"`
	DelegateUUID string `json:"delegate_uuid"`
	DateRange    string `json:"date_range"`
	GeneratedAt  string `json:"generated_at"`
	ContentHash  string `json:"content_hash"`
	UpdatedAt    string `json:"updated_at"`
	SourceDevice string `json:"source_device"`
}

// Setting is one shared key/value configuration entry.
type Setting struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	UpdatedAt    string `json:"updated_at"`
	SourceDevice string `json:"source_device"`
}

// Conflict is an append-only record of a divergence that needs manual review.
type Conflict struct {
	ID             int64           `json:"id"`
	IdentityKey    string          `json:"identity_key"`
	EntityType     EntityType      `json:"entity_type"`
	LocalSnapshot  json.RawMessage `json:"local_snapshot"`
	RemoteSnapshot json.RawMessage `json:"remote_snapshot"`
	DetectedAt     string          `json:"detected_at"`
	ResolvedAt     string          `json:"resolved_at,omitempty"`
	Fingerprint    string          `json:"fingerprint"`
}

// Open reports whether the conflict still awaits resolution.
func (c Conflict) Open() bool { return c.ResolvedAt == "" }
