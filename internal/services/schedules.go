package services

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/store"
)

type scheduleBinding struct {
	device    string
	delegates *delegateIndex
}

func (*scheduleBinding) schema() normalize.Schema { return normalize.Schedules }
func (*scheduleBinding) idColumn() string         { return "uuid" }
func (*scheduleBinding) canGenerateID() bool      { return true }

func (b *scheduleBinding) load(ctx context.Context, repos *store.Repositories) ([]*models.Schedule, error) {
	idx, err := loadDelegateIndex(ctx, repos.Delegates)
	if err != nil {
		return nil, err
	}
	b.delegates = idx
	all, err := repos.Schedules.List(ctx)
	if err != nil {
		return nil, err
	}
	return pointers(all), nil
}

func (*scheduleBinding) localMeta(s *models.Schedule) meta {
	k, ok := normalize.ScheduleKey(s.DelegateUUID, s.Weekday)
	return meta{UUID: s.UUID, Key: k, HasKey: ok, UpdatedAt: s.UpdatedAt}
}

func (*scheduleBinding) assignUUID(ctx context.Context, repos *store.Repositories, s *models.Schedule, id string) error {
	if err := repos.Schedules.AssignUUID(ctx, s.ID, id); err != nil {
		return err
	}
	s.UUID = id
	return nil
}

func (*scheduleBinding) parse(row normalize.Row) normalize.ScheduleRecord {
	return normalize.Schedule(row)
}

func (b *scheduleBinding) prepare(rec *normalize.ScheduleRecord) error {
	if rec.Weekday < 1 || rec.Weekday > 7 {
		return invalid("schedule without a valid weekday")
	}
	id, ok := b.delegates.resolve(rec.DelegateUUID, rec.DelegateName)
	if !ok {
		return errUnresolvedDelegate
	}
	rec.DelegateUUID = id
	// The display name is not stored remotely and must not make local and
	// remote snapshots differ.
	rec.DelegateName = ""
	return nil
}

func (*scheduleBinding) remoteMeta(rec *normalize.ScheduleRecord) meta {
	k, ok := normalize.ScheduleKey(rec.DelegateUUID, rec.Weekday)
	return meta{UUID: rec.UUID, Key: k, HasKey: ok, UpdatedAt: rec.UpdatedAt}
}

func (*scheduleBinding) setID(rec *normalize.ScheduleRecord, id string) { rec.UUID = id }

func applySchedule(s *models.Schedule, rec *normalize.ScheduleRecord) {
	s.UUID = rec.UUID
	s.DelegateUUID = rec.DelegateUUID
	s.Weekday = rec.Weekday
	s.MorningMinutes = rec.Morning.Minutes()
	s.AfternoonMinutes = rec.Afternoon.Minutes()
	s.UpdatedAt = rec.UpdatedAt
	s.SourceDevice = rec.SourceDevice
	s.Deleted = rec.Deleted
}

func (*scheduleBinding) insert(ctx context.Context, repos *store.Repositories, rec *normalize.ScheduleRecord) (*models.Schedule, error) {
	s := &models.Schedule{}
	applySchedule(s, rec)
	if err := repos.Schedules.Insert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (*scheduleBinding) update(ctx context.Context, repos *store.Repositories, s *models.Schedule, rec *normalize.ScheduleRecord) error {
	next := *s
	applySchedule(&next, rec)
	if err := repos.Schedules.Update(ctx, &next); err != nil {
		return err
	}
	*s = next
	return nil
}

func (b *scheduleBinding) record(s *models.Schedule) normalize.ScheduleRecord {
	return normalize.ScheduleRecord{
		UUID:         s.UUID,
		DelegateUUID: s.DelegateUUID,
		Weekday:      s.Weekday,
		Morning:      normalize.FromMinutes(s.MorningMinutes),
		Afternoon:    normalize.FromMinutes(s.AfternoonMinutes),
		UpdatedAt:    s.UpdatedAt,
		SourceDevice: orDevice(s.SourceDevice, b.device),
		Deleted:      s.Deleted,
	}
}

func (*scheduleBinding) render(rec *normalize.ScheduleRecord) normalize.Cells {
	return normalize.RenderSchedule(*rec)
}
