package services

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/store"
)

// auditBinding syncs the audit log. Entries are identified by entry_id and
// matched by the document they describe when it is missing.
type auditBinding struct {
	device string
}

func (auditBinding) schema() normalize.Schema { return normalize.AuditLog }
func (auditBinding) idColumn() string         { return "entry_id" }
func (auditBinding) canGenerateID() bool      { return true }

func (auditBinding) load(ctx context.Context, repos *store.Repositories) ([]*models.AuditLogEntry, error) {
	all, err := repos.AuditLog.List(ctx)
	if err != nil {
		return nil, err
	}
	return pointers(all), nil
}

func (auditBinding) localMeta(e *models.AuditLogEntry) meta {
	k, ok := normalize.AuditKey(e.DelegateUUID, e.DateRange, e.ContentHash)
	return meta{UUID: e.EntryID, Key: k, HasKey: ok, UpdatedAt: e.UpdatedAt}
}

func (auditBinding) assignUUID(ctx context.Context, repos *store.Repositories, e *models.AuditLogEntry, id string) error {
	next := *e
	next.EntryID = id
	if err := repos.AuditLog.Update(ctx, &next); err != nil {
		return err
	}
	*e = next
	return nil
}

func (auditBinding) parse(row normalize.Row) normalize.AuditLogRecord {
	return normalize.AuditLogEntry(row)
}

func (auditBinding) prepare(rec *normalize.AuditLogRecord) error {
	if rec.EntryID == "" && rec.ContentHash == "" {
		return invalid("audit entry without id or content hash")
	}
	return nil
}

func (auditBinding) remoteMeta(rec *normalize.AuditLogRecord) meta {
	k, ok := normalize.AuditKey(rec.DelegateUUID, rec.DateRange, rec.ContentHash)
	return meta{UUID: rec.EntryID, Key: k, HasKey: ok, UpdatedAt: rec.UpdatedAt}
}

func (auditBinding) setID(rec *normalize.AuditLogRecord, id string) { rec.EntryID = id }

func applyAudit(e *models.AuditLogEntry, rec *normalize.AuditLogRecord) {
	e.EntryID = rec.EntryID
	e.DelegateUUID = rec.DelegateUUID
	e.DateRange = rec.DateRange
	e.GeneratedAt = rec.GeneratedAt
	e.ContentHash = rec.ContentHash
	e.UpdatedAt = rec.UpdatedAt
	e.SourceDevice = rec.SourceDevice
}

func (auditBinding) insert(ctx context.Context, repos *store.Repositories, rec *normalize.AuditLogRecord) (*models.AuditLogEntry, error) {
	e := &models.AuditLogEntry{}
	applyAudit(e, rec)
	if err := repos.AuditLog.Insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (auditBinding) update(ctx context.Context, repos *store.Repositories, e *models.AuditLogEntry, rec *normalize.AuditLogRecord) error {
	next := *e
	applyAudit(&next, rec)
	if err := repos.AuditLog.Update(ctx, &next); err != nil {
		return err
	}
	*e = next
	return nil
}

func (b auditBinding) record(e *models.AuditLogEntry) normalize.AuditLogRecord {
	return normalize.AuditLogRecord{
		EntryID:      e.EntryID,
		DelegateUUID: e.DelegateUUID,
		DateRange:    e.DateRange,
		GeneratedAt:  e.GeneratedAt,
		ContentHash:  e.ContentHash,
		UpdatedAt:    e.UpdatedAt,
		SourceDevice: orDevice(e.SourceDevice, b.device),
	}
}

func (auditBinding) render(rec *normalize.AuditLogRecord) normalize.Cells {
	return normalize.RenderAuditLog(*rec)
}
