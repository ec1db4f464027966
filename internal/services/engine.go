package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/planner"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/dmitrijs2005/delegsync/internal/store"
	"github.com/google/uuid"
)

func entityOf(sheet string) models.EntityType { return models.EntityType(sheet) }

// meta is what the engine needs to know about a record on either side: its
// identifier, its functional identity when it has one, and its last change.
type meta struct {
	UUID      string
	Key       string
	HasKey    bool
	UpdatedAt string
}

// binding adapts one entity to the generic engine. L is the local model and
// R the canonical remote record.
type binding[L, R any] interface {
	schema() normalize.Schema
	// idColumn is the canonical column holding the identifier.
	idColumn() string
	// canGenerateID is false when the identifier is a natural key.
	canGenerateID() bool

	load(ctx context.Context, repos *store.Repositories) ([]*L, error)
	localMeta(l *L) meta
	assignUUID(ctx context.Context, repos *store.Repositories, l *L, id string) error

	parse(row normalize.Row) R
	// prepare validates a parsed record and resolves its references.
	prepare(rec *R) error
	remoteMeta(rec *R) meta
	setID(rec *R, id string)

	insert(ctx context.Context, repos *store.Repositories, rec *R) (*L, error)
	update(ctx context.Context, repos *store.Repositories, l *L, rec *R) error

	// record renders a local row as the remote record it would become.
	record(l *L) R
	render(rec *R) normalize.Cells
}

// engine runs the pull and push planners for one entity.
type engine[L, R any] struct {
	cy *cycle
	b  binding[L, R]
}

func newUnit[L, R any](cy *cycle, b binding[L, R]) unit {
	return &engine[L, R]{cy: cy, b: b}
}

func (e *engine[L, R]) sheet() string { return e.b.schema().Sheet }

func (e *engine[L, R]) entity() models.EntityType { return entityOf(e.sheet()) }

// localIndex finds local rows by identifier and by functional identity.
type localIndex[L any] struct {
	byUUID map[string]*L
	byKey  map[string]*L
	meta   map[*L]meta
}

func newLocalIndex[L any]() *localIndex[L] {
	return &localIndex[L]{byUUID: map[string]*L{}, byKey: map[string]*L{}, meta: map[*L]meta{}}
}

func (x *localIndex[L]) add(l *L, m meta) {
	x.meta[l] = m
	if m.UUID != "" {
		x.byUUID[m.UUID] = l
	}
	if m.HasKey {
		if _, taken := x.byKey[m.Key]; !taken {
			x.byKey[m.Key] = l
		}
	}
}

func snapshot(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return b, nil
}

func (e *engine[L, R]) registerConflict(ctx context.Context, repos *store.Repositories, key string, l *L, rec *R, cnt *Counters) error {
	local, err := snapshot(l)
	if err != nil {
		return err
	}
	rem, err := snapshot(rec)
	if err != nil {
		return err
	}
	c := &models.Conflict{
		IdentityKey:    key,
		EntityType:     e.entity(),
		LocalSnapshot:  local,
		RemoteSnapshot: rem,
		DetectedAt:     e.cy.stamp(),
	}
	created, err := repos.Conflicts.Register(ctx, c)
	if err != nil {
		return err
	}
	if created {
		cnt.Conflicts++
		e.cy.log.Warn(ctx, "conflict registered", "entity", e.entity(), "key", key, "conflict_id", c.ID)
	} else {
		cnt.Skipped++
		e.cy.log.Debug(ctx, "conflict already registered", "entity", e.entity(), "key", key, "conflict_id", c.ID)
	}
	return nil
}

// diverged reports a concurrent edit: both sides changed after the watermark
// and they do not carry the same version.
func (e *engine[L, R]) diverged(localUpdatedAt, remoteUpdatedAt string) bool {
	return !normalize.SameInstant(localUpdatedAt, remoteUpdatedAt) &&
		normalize.IsConflict(localUpdatedAt, remoteUpdatedAt, e.cy.watermark)
}

func skipHandler(cnt *Counters) planner.Handler {
	return func(ctx context.Context, a planner.Action) error {
		if a.Reason == planner.SkipDuplicate {
			cnt.Duplicates++
		} else {
			cnt.Skipped++
		}
		return nil
	}
}

// pull reconciles every remote row of the sheet into the local store.
func (e *engine[L, R]) pull(ctx context.Context, repos *store.Repositories, cnt *Counters) error {
	sheet, err := e.cy.client.Read(ctx, e.sheet())
	if err != nil {
		return err
	}
	locals, err := e.b.load(ctx, repos)
	if err != nil {
		return err
	}
	held, err := repos.Conflicts.OpenKeys(ctx, e.entity())
	if err != nil {
		return err
	}
	idx := newLocalIndex[L]()
	for _, l := range locals {
		idx.add(l, e.b.localMeta(l))
	}

	for _, row := range sheet.Rows {
		rec := e.b.parse(row.Cells)
		if err := e.b.prepare(&rec); err != nil {
			if cerr := classify(err, cnt); cerr != nil {
				return fmt.Errorf("row %d: %w", row.Number, cerr)
			}
			e.cy.log.Debug(ctx, "remote row omitted", "sheet", e.sheet(), "row", row.Number, "reason", err)
			continue
		}
		if err := e.pullRow(ctx, repos, idx, held, row, &rec, cnt); err != nil {
			return fmt.Errorf("row %d: %w", row.Number, err)
		}
	}
	return nil
}

func (e *engine[L, R]) pullRow(ctx context.Context, repos *store.Repositories, idx *localIndex[L],
	held map[string]bool, row remote.Row, rec *R, cnt *Counters) error {
	m := e.b.remoteMeta(rec)
	sig := planner.PullSignals{
		HasIdentifier:   m.UUID != "",
		BackfillEnabled: e.cy.backfill && e.b.canGenerateID(),
	}

	var local *L
	if !sig.HasIdentifier {
		if m.HasKey {
			local = idx.byKey[m.Key]
		}
		if local != nil {
			sig.HasLocalMatchForEmptyIdentifier = true
			sig.ExistingIdentifierToBackfill = idx.meta[local].UUID
		}
	} else if l, ok := idx.byUUID[m.UUID]; ok {
		local = l
		lm := idx.meta[l]
		sig.HasLocalMatchForIdentifier = true
		sig.ConflictDetected = held[m.UUID] || e.diverged(lm.UpdatedAt, m.UpdatedAt)
		sig.RemoteIsNewer = normalize.IsRemoteNewer(lm.UpdatedAt, m.UpdatedAt)
	} else if m.HasKey {
		local = idx.byKey[m.Key]
		sig.IsDuplicateByDedupeKey = local != nil
	}

	if !sig.HasIdentifier && !e.b.canGenerateID() && !sig.HasLocalMatchForEmptyIdentifier {
		return classify(invalid("%s is required", e.b.idColumn()), cnt)
	}

	plan := planner.PlanPull(sig)
	e.cy.log.Debug(ctx, "pull plan", "sheet", e.sheet(), "row", row.Number, "uuid", m.UUID, "plan", plan)

	return planner.Run(ctx, plan, planner.Handlers{
		Skip: func(ctx context.Context, a planner.Action) error {
			// A local row created before identifiers existed adopts the
			// identifier of its remote twin.
			if a.Reason == planner.SkipDuplicate && sig.HasIdentifier && local != nil && idx.meta[local].UUID == "" {
				if err := e.b.assignUUID(ctx, repos, local, m.UUID); err != nil {
					return err
				}
				lm := idx.meta[local]
				lm.UUID = m.UUID
				idx.add(local, lm)
				e.cy.markReconciled(e.entity(), m.UUID)
			}
			return skipHandler(cnt)(ctx, a)
		},
		BackfillIdentifier: func(ctx context.Context, a planner.Action) error {
			e.cy.batcher.Update(e.sheet(), remote.CellUpdate{Row: row.Number, Column: e.b.idColumn(), Value: a.Identifier})
			e.cy.markReconciled(e.entity(), a.Identifier)
			cnt.Backfilled++
			return nil
		},
		Insert: func(ctx context.Context, a planner.Action) error {
			id := m.UUID
			if id == "" {
				id = uuid.NewString()
				e.b.setID(rec, id)
			}
			l, err := e.b.insert(ctx, repos, rec)
			if err != nil {
				return err
			}
			idx.add(l, e.b.localMeta(l))
			e.cy.markReconciled(e.entity(), id)
			cnt.Inserted++
			if a.Backfill && m.UUID == "" {
				e.cy.batcher.Update(e.sheet(), remote.CellUpdate{Row: row.Number, Column: e.b.idColumn(), Value: id})
				cnt.Backfilled++
			}
			return nil
		},
		Update: func(ctx context.Context, a planner.Action) error {
			if err := e.b.update(ctx, repos, local, rec); err != nil {
				return err
			}
			idx.add(local, e.b.localMeta(local))
			e.cy.markReconciled(e.entity(), m.UUID)
			cnt.Updated++
			return nil
		},
		RegisterConflict: func(ctx context.Context, a planner.Action) error {
			return e.registerConflict(ctx, repos, m.UUID, local, rec, cnt)
		},
	})
}

// remoteEntry is a row of the remote sheet indexed for the push phase. Row
// is zero for rows queued for append in this phase.
type remoteEntry[R any] struct {
	row  int
	rec  R
	meta meta
}

type remoteIndex[R any] struct {
	byUUID map[string]*remoteEntry[R]
	byKey  map[string]*remoteEntry[R]
}

func (x *remoteIndex[R]) add(en *remoteEntry[R]) {
	if en.meta.UUID != "" {
		x.byUUID[en.meta.UUID] = en
	}
	if en.meta.HasKey {
		if _, taken := x.byKey[en.meta.Key]; !taken {
			x.byKey[en.meta.Key] = en
		}
	}
}

// push mirrors local rows changed since the watermark to the remote sheet.
func (e *engine[L, R]) push(ctx context.Context, repos *store.Repositories, cnt *Counters) error {
	sheet, err := e.cy.client.Read(ctx, e.sheet())
	if err != nil {
		return err
	}
	locals, err := e.b.load(ctx, repos)
	if err != nil {
		return err
	}
	held, err := repos.Conflicts.OpenKeys(ctx, e.entity())
	if err != nil {
		return err
	}

	rx := &remoteIndex[R]{byUUID: map[string]*remoteEntry[R]{}, byKey: map[string]*remoteEntry[R]{}}
	for _, row := range sheet.Rows {
		rec := e.b.parse(row.Cells)
		if e.b.prepare(&rec) != nil {
			continue
		}
		rx.add(&remoteEntry[R]{row: row.Number, rec: rec, meta: e.b.remoteMeta(&rec)})
	}

	for _, l := range locals {
		lm := e.b.localMeta(l)
		if !normalize.IsAfterLastSync(lm.UpdatedAt, e.cy.watermark) {
			continue
		}
		if lm.UUID == "" {
			if !e.b.canGenerateID() {
				continue
			}
			id := uuid.NewString()
			if err := e.b.assignUUID(ctx, repos, l, id); err != nil {
				return err
			}
			lm = e.b.localMeta(l)
		}
		if err := e.pushRow(ctx, repos, rx, held, l, lm, cnt); err != nil {
			return fmt.Errorf("%s: %w", lm.UUID, err)
		}
	}
	return nil
}

func (e *engine[L, R]) pushRow(ctx context.Context, repos *store.Repositories, rx *remoteIndex[R],
	held map[string]bool, l *L, lm meta, cnt *Counters) error {
	rec := e.b.record(l)
	sig := planner.PushSignals{BackfillEnabled: e.cy.backfill && e.b.canGenerateID()}

	target, ok := rx.byUUID[lm.UUID]
	if ok {
		sig.HasRemoteMatchForIdentifier = true
		sig.ConflictDetected = held[lm.UUID] ||
			(!e.cy.isReconciled(e.entity(), lm.UUID) && e.diverged(lm.UpdatedAt, target.meta.UpdatedAt))
		sig.LocalIsNewer = normalize.IsLocalNewer(lm.UpdatedAt, target.meta.UpdatedAt)
	} else if lm.HasKey {
		if target, ok = rx.byKey[lm.Key]; ok {
			sig.HasRemoteMatchByDedupeKey = true
			sig.RemoteMatchHasIdentifier = target.meta.UUID != "" || target.row == 0
			sig.LocalIsNewer = normalize.IsLocalNewer(lm.UpdatedAt, target.meta.UpdatedAt)
		}
	}

	plan := planner.PlanPush(sig)
	e.cy.log.Debug(ctx, "push plan", "sheet", e.sheet(), "uuid", lm.UUID, "plan", plan)

	return planner.Run(ctx, plan, planner.Handlers{
		Skip: skipHandler(cnt),
		BackfillIdentifier: func(ctx context.Context, a planner.Action) error {
			e.cy.batcher.Update(e.sheet(), remote.CellUpdate{Row: target.row, Column: e.b.idColumn(), Value: lm.UUID})
			target.meta.UUID = lm.UUID
			rx.add(target)
			cnt.Backfilled++
			return nil
		},
		Insert: func(ctx context.Context, a planner.Action) error {
			e.cy.batcher.Append(e.sheet(), e.b.render(&rec))
			rx.add(&remoteEntry[R]{rec: rec, meta: e.b.remoteMeta(&rec)})
			cnt.Inserted++
			return nil
		},
		Update: func(ctx context.Context, a planner.Action) error {
			cells := e.b.render(&rec)
			updates := make([]remote.CellUpdate, 0, len(cells))
			for _, col := range e.b.schema().Header() {
				if v, ok := cells[col]; ok {
					updates = append(updates, remote.CellUpdate{Row: target.row, Column: col, Value: v})
				}
			}
			e.cy.batcher.Update(e.sheet(), updates...)
			target.rec = rec
			target.meta = e.b.remoteMeta(&rec)
			cnt.Updated++
			return nil
		},
		RegisterConflict: func(ctx context.Context, a planner.Action) error {
			return e.registerConflict(ctx, repos, lm.UUID, l, &target.rec, cnt)
		},
	})
}
