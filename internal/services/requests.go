package services

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/store"
)

type requestBinding struct {
	device    string
	delegates *delegateIndex
}

func (*requestBinding) schema() normalize.Schema { return normalize.Requests }
func (*requestBinding) idColumn() string         { return "uuid" }
func (*requestBinding) canGenerateID() bool      { return true }

// load also refreshes the delegate index, so delegates pulled earlier in the
// same phase resolve.
func (b *requestBinding) load(ctx context.Context, repos *store.Repositories) ([]*models.Request, error) {
	idx, err := loadDelegateIndex(ctx, repos.Delegates)
	if err != nil {
		return nil, err
	}
	b.delegates = idx
	all, err := repos.Requests.List(ctx)
	if err != nil {
		return nil, err
	}
	return pointers(all), nil
}

func (*requestBinding) localMeta(r *models.Request) meta {
	k, ok := normalize.DedupeKey(r.DelegateUUID, r.Date, r.FullDay, r.TotalMinutes, r.StartMinutes, r.EndMinutes)
	return meta{UUID: r.UUID, Key: k, HasKey: ok, UpdatedAt: r.UpdatedAt}
}

func (*requestBinding) assignUUID(ctx context.Context, repos *store.Repositories, r *models.Request, id string) error {
	if err := repos.Requests.AssignUUID(ctx, r.ID, id); err != nil {
		return err
	}
	r.UUID = id
	return nil
}

func (*requestBinding) parse(row normalize.Row) normalize.RequestRecord {
	return normalize.Request(row, normalize.SheetRequests)
}

func (b *requestBinding) prepare(rec *normalize.RequestRecord) error {
	if rec.Date == "" {
		return invalid("request without a valid date")
	}
	id, ok := b.delegates.resolve(rec.DelegateUUID, rec.DelegateName)
	if !ok {
		return errUnresolvedDelegate
	}
	rec.DelegateUUID = id
	if !rec.FullDay && rec.TotalMinutes <= 0 {
		return invalid("partial request on %s without duration", rec.Date)
	}
	return nil
}

func (*requestBinding) remoteMeta(rec *normalize.RequestRecord) meta {
	k, ok := rec.Key()
	return meta{UUID: rec.UUID, Key: k, HasKey: ok, UpdatedAt: rec.UpdatedAt}
}

func (*requestBinding) setID(rec *normalize.RequestRecord, id string) { rec.UUID = id }

func applyRequest(r *models.Request, rec *normalize.RequestRecord) {
	r.UUID = rec.UUID
	r.DelegateUUID = rec.DelegateUUID
	r.Date = rec.Date
	r.StartMinutes = rec.Start.Minutes()
	r.EndMinutes = rec.End.Minutes()
	r.FullDay = rec.FullDay
	r.TotalMinutes = rec.TotalMinutes
	r.Note = rec.Note
	r.Status = rec.Status
	r.CreatedAt = rec.CreatedAt
	if r.CreatedAt == "" {
		r.CreatedAt = rec.UpdatedAt
	}
	r.UpdatedAt = rec.UpdatedAt
	r.SourceDevice = rec.SourceDevice
	r.Deleted = rec.Deleted
	r.AuditRef = rec.AuditRef
}

func (*requestBinding) insert(ctx context.Context, repos *store.Repositories, rec *normalize.RequestRecord) (*models.Request, error) {
	r := &models.Request{}
	applyRequest(r, rec)
	if err := repos.Requests.Insert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (*requestBinding) update(ctx context.Context, repos *store.Repositories, r *models.Request, rec *normalize.RequestRecord) error {
	next := *r
	applyRequest(&next, rec)
	if next.CreatedAt == "" {
		next.CreatedAt = r.CreatedAt
	}
	if err := repos.Requests.Update(ctx, &next); err != nil {
		return err
	}
	*r = next
	return nil
}

func (b *requestBinding) record(r *models.Request) normalize.RequestRecord {
	rec := normalize.RequestRecord{
		UUID:         r.UUID,
		DelegateUUID: r.DelegateUUID,
		DelegateName: b.delegates.name(r.DelegateUUID),
		Date:         r.Date,
		FullDay:      r.FullDay,
		TotalMinutes: r.TotalMinutes,
		Note:         r.Note,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		SourceDevice: orDevice(r.SourceDevice, b.device),
		Deleted:      r.Deleted,
		AuditRef:     r.AuditRef,
		Sheet:        normalize.SheetRequests,
	}
	if r.StartMinutes > 0 || r.EndMinutes > 0 {
		rec.Start = normalize.FromMinutes(r.StartMinutes)
		rec.End = normalize.FromMinutes(r.EndMinutes)
	}
	if rec.Status == "" {
		rec.Status = normalize.StatusPending
	}
	return rec
}

func (*requestBinding) render(rec *normalize.RequestRecord) normalize.Cells {
	return normalize.RenderRequest(*rec)
}
