package services

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/repositories/delegates"
	"github.com/dmitrijs2005/delegsync/internal/store"
)

// delegateIndex resolves the delegate a request or schedule row refers to.
type delegateIndex struct {
	names  map[string]string
	byName map[string]string
}

func loadDelegateIndex(ctx context.Context, repo delegates.Repository) (*delegateIndex, error) {
	all, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	x := &delegateIndex{names: map[string]string{}, byName: map[string]string{}}
	for _, d := range all {
		if d.UUID == "" {
			continue
		}
		x.names[d.UUID] = d.Name
		k, ok := normalize.DelegateKey(d.Name)
		if !ok {
			continue
		}
		if prev, dup := x.byName[k]; dup && prev != d.UUID {
			// Two delegates share a name: resolving by it would guess.
			x.byName[k] = ""
			continue
		}
		x.byName[k] = d.UUID
	}
	return x, nil
}

// resolve returns the identifier of a known delegate, looked up by
// identifier first and by folded name otherwise.
func (x *delegateIndex) resolve(id, name string) (string, bool) {
	if _, ok := x.names[id]; ok && id != "" {
		return id, true
	}
	if k, ok := normalize.DelegateKey(name); ok {
		if found := x.byName[k]; found != "" {
			return found, true
		}
	}
	return "", false
}

func (x *delegateIndex) name(id string) string {
	return x.names[id]
}

type delegateBinding struct {
	device string
}

func (delegateBinding) schema() normalize.Schema { return normalize.Delegates }
func (delegateBinding) idColumn() string         { return "uuid" }
func (delegateBinding) canGenerateID() bool      { return true }

func (delegateBinding) load(ctx context.Context, repos *store.Repositories) ([]*models.Delegate, error) {
	all, err := repos.Delegates.List(ctx)
	if err != nil {
		return nil, err
	}
	return pointers(all), nil
}

func (delegateBinding) localMeta(d *models.Delegate) meta {
	k, ok := normalize.DelegateKey(d.Name)
	return meta{UUID: d.UUID, Key: k, HasKey: ok, UpdatedAt: d.UpdatedAt}
}

func (delegateBinding) assignUUID(ctx context.Context, repos *store.Repositories, d *models.Delegate, id string) error {
	if err := repos.Delegates.AssignUUID(ctx, d.ID, id); err != nil {
		return err
	}
	d.UUID = id
	return nil
}

func (delegateBinding) parse(row normalize.Row) normalize.DelegateRecord {
	return normalize.Delegate(row)
}

func (delegateBinding) prepare(rec *normalize.DelegateRecord) error {
	if rec.Name == "" {
		return invalid("delegate without name")
	}
	return nil
}

func (delegateBinding) remoteMeta(rec *normalize.DelegateRecord) meta {
	k, ok := normalize.DelegateKey(rec.Name)
	return meta{UUID: rec.UUID, Key: k, HasKey: ok, UpdatedAt: rec.UpdatedAt}
}

func (delegateBinding) setID(rec *normalize.DelegateRecord, id string) { rec.UUID = id }

func applyDelegate(d *models.Delegate, rec *normalize.DelegateRecord) {
	d.UUID = rec.UUID
	d.Name = rec.Name
	d.Gender = rec.Gender
	d.MonthlyMinutes = rec.MonthlyMinutes
	d.AnnualMinutes = rec.AnnualMinutes
	d.Active = rec.Active
	d.UpdatedAt = rec.UpdatedAt
	d.SourceDevice = rec.SourceDevice
	d.Deleted = rec.Deleted
}

func (delegateBinding) insert(ctx context.Context, repos *store.Repositories, rec *normalize.DelegateRecord) (*models.Delegate, error) {
	d := &models.Delegate{}
	applyDelegate(d, rec)
	if err := repos.Delegates.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (delegateBinding) update(ctx context.Context, repos *store.Repositories, d *models.Delegate, rec *normalize.DelegateRecord) error {
	next := *d
	applyDelegate(&next, rec)
	if err := repos.Delegates.Update(ctx, &next); err != nil {
		return err
	}
	*d = next
	return nil
}

func (b delegateBinding) record(d *models.Delegate) normalize.DelegateRecord {
	return normalize.DelegateRecord{
		UUID:           d.UUID,
		Name:           d.Name,
		Gender:         d.Gender,
		MonthlyMinutes: d.MonthlyMinutes,
		AnnualMinutes:  d.AnnualMinutes,
		Active:         d.Active,
		UpdatedAt:      d.UpdatedAt,
		SourceDevice:   orDevice(d.SourceDevice, b.device),
		Deleted:        d.Deleted,
	}
}

func (delegateBinding) render(rec *normalize.DelegateRecord) normalize.Cells {
	return normalize.RenderDelegate(*rec)
}

func pointers[T any](all []T) []*T {
	out := make([]*T, len(all))
	for i := range all {
		out[i] = &all[i]
	}
	return out
}

func orDevice(source, device string) string {
	if source != "" {
		return source
	}
	return device
}
