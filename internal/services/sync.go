package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/logging"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/dmitrijs2005/delegsync/internal/repositories/settings"
	"github.com/dmitrijs2005/delegsync/internal/store"
)

// ErrCycleRunning is returned when a cycle is started while another one is
// still running on the same service.
var ErrCycleRunning = errors.New("a sync cycle is already running")

// SyncService runs sync cycles.
type SyncService interface {
	// Pull reconciles remote rows into the local store. It never moves the
	// watermark.
	Pull(ctx context.Context) (*Report, error)
	// Push mirrors local rows changed since the watermark to the remote
	// dataset and advances the watermark on success.
	Push(ctx context.Context) (*Report, error)
	// Sync is Pull followed by Push within one cycle.
	Sync(ctx context.Context) (*Report, error)
	// Status reports the local sync state without touching the remote.
	Status(ctx context.Context) (*Status, error)
}

// BackendFactory opens the remote dataset for one cycle.
type BackendFactory func(ctx context.Context) (remote.Backend, error)

// Options tunes the engine.
type Options struct {
	DeviceID        string
	BackfillEnabled bool
	Retry           remote.RetryPolicy
	// Now defaults to time.Now.
	Now func() time.Time
}

type syncService struct {
	store *store.Store
	open  BackendFactory
	opts  Options
	log   logging.Logger
	mu    sync.Mutex
}

func NewSyncService(st *store.Store, open BackendFactory, opts Options, log logging.Logger) SyncService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logging.Nop()
	}
	return &syncService{store: st, open: open, opts: opts, log: log}
}

func (s *syncService) Pull(ctx context.Context) (*Report, error) {
	return s.run(ctx, true, false)
}

func (s *syncService) Push(ctx context.Context) (*Report, error) {
	return s.run(ctx, false, true)
}

func (s *syncService) Sync(ctx context.Context) (*Report, error) {
	return s.run(ctx, true, true)
}

func (s *syncService) run(ctx context.Context, pull, push bool) (*Report, error) {
	if !s.mu.TryLock() {
		return nil, ErrCycleRunning
	}
	defer s.mu.Unlock()

	report := &Report{}
	cy, err := s.newCycle(ctx, report)
	if err != nil {
		return report, err
	}
	defer func() { report.Calls = cy.client.Calls() }()

	start := time.Now()
	s.log.Info(ctx, "sync cycle started", "pull", pull, "push", push, "watermark", cy.watermark, "device", cy.device)

	if pull {
		report.Pull, err = s.runPhase(ctx, cy, PhasePull, s.units(cy))
		if err != nil {
			return report, err
		}
	}
	if push {
		report.Push, err = s.runPhase(ctx, cy, PhasePush, s.units(cy))
		if err != nil {
			return report, err
		}
		if report.Watermark, err = s.advanceWatermark(ctx, cy); err != nil {
			return report, err
		}
	}

	s.log.Info(ctx, "sync cycle finished", "calls", cy.client.Calls(), "watermark", report.Watermark,
		"elapsed", time.Since(start).String())
	return report, nil
}

func (s *syncService) newCycle(ctx context.Context, report *Report) (*cycle, error) {
	device, err := s.store.DeviceID(ctx, s.opts.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("device id: %w", err)
	}
	backend, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	client := remote.NewClient(backend, s.opts.Retry, s.log)
	cy := &cycle{
		client:   client,
		batcher:  remote.NewBatcher(client),
		log:      s.log,
		device:   device,
		backfill: s.opts.BackfillEnabled,
		now:      s.opts.Now,
	}

	schemas := make([]remote.SheetSchema, 0, len(normalize.Schemas))
	for _, sc := range normalize.Schemas {
		schemas = append(schemas, remote.SheetSchema{Name: sc.Sheet, Header: sc.Header(), Match: sc.Matches})
	}
	if err := client.EnsureSchema(ctx, schemas...); err != nil {
		report.Calls = client.Calls()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cy.watermark, err = s.store.Repositories(s.store.DB).SyncState.Watermark(ctx)
	if err != nil {
		report.Calls = client.Calls()
		return nil, err
	}
	report.PreviousWatermark = cy.watermark
	return cy, nil
}

// units returns the entity routines in sync order. They are rebuilt for
// every phase so that per-phase state such as the delegate index starts
// fresh.
func (s *syncService) units(cy *cycle) []unit {
	return []unit{
		newUnit[models.Delegate, normalize.DelegateRecord](cy, delegateBinding{device: cy.device}),
		newUnit[models.Request, normalize.RequestRecord](cy, &requestBinding{device: cy.device}),
		newUnit[models.Schedule, normalize.ScheduleRecord](cy, &scheduleBinding{device: cy.device}),
		newUnit[models.AuditLogEntry, normalize.AuditLogRecord](cy, auditBinding{device: cy.device}),
		newUnit[models.Setting, normalize.SettingRecord](cy, settingBinding{device: cy.device}),
	}
}

// advanceWatermark moves the watermark to now, never backwards.
func (s *syncService) advanceWatermark(ctx context.Context, cy *cycle) (string, error) {
	next := cy.now().UTC()
	if prev, ok := normalize.ParseInstant(cy.watermark); ok && prev.After(next) {
		next = prev
	}
	at := normalize.FormatInstant(next)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, repos *store.Repositories) error {
		return repos.SyncState.SetWatermark(ctx, at)
	})
	if err != nil {
		return "", fmt.Errorf("advance watermark: %w", err)
	}
	return at, nil
}

func (s *syncService) Status(ctx context.Context) (*Status, error) {
	repos := s.store.Repositories(s.store.DB)
	st := &Status{Counts: map[models.EntityType]int{}}

	var err error
	if st.Watermark, err = repos.SyncState.Watermark(ctx); err != nil {
		return nil, err
	}
	if st.OpenConflicts, err = repos.Conflicts.CountOpen(ctx); err != nil {
		return nil, err
	}

	counters := map[models.EntityType]func(context.Context) (int, error){
		models.EntityDelegate: repos.Delegates.Count,
		models.EntityRequest:  repos.Requests.Count,
		models.EntitySchedule: repos.Schedules.Count,
		models.EntityAuditLog: repos.AuditLog.Count,
	}
	for e, count := range counters {
		n, err := count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", e, err)
		}
		st.Counts[e] = n
	}

	all, err := repos.Settings.List(ctx)
	if err != nil {
		return nil, err
	}
	st.Counts[models.EntitySetting] = 0
	for _, set := range all {
		if !settings.IsLocal(set.Key) {
			st.Counts[models.EntitySetting]++
		}
	}
	return st, nil
}
