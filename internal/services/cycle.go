package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/logging"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/dmitrijs2005/delegsync/internal/store"
	"go.uber.org/multierr"
)

var (
	// errUnresolvedDelegate rejects a row whose delegate is unknown locally.
	errUnresolvedDelegate = errors.New("delegate cannot be resolved")
	// errIgnored drops a row that is not part of the synced data set.
	errIgnored = errors.New("row is not synchronized")
)

// cycle holds everything that lives for exactly one Pull, Push or Sync
// call: the remote client with its read cache and call counter, the write
// queues and the watermark the cycle compares against.
type cycle struct {
	client    *remote.Client
	batcher   *remote.Batcher
	log       logging.Logger
	watermark string
	device    string
	backfill  bool
	now       func() time.Time

	// reconciled holds, per entity, the identifiers of rows the pull phase
	// wrote or linked in this cycle. Both sides of such a row carry the same
	// change, so push must not read it as a concurrent edit.
	reconciled map[models.EntityType]map[string]bool
}

func (c *cycle) stamp() string {
	return normalize.FormatInstant(c.now())
}

func (c *cycle) markReconciled(entity models.EntityType, id string) {
	if id == "" {
		return
	}
	if c.reconciled == nil {
		c.reconciled = make(map[models.EntityType]map[string]bool)
	}
	if c.reconciled[entity] == nil {
		c.reconciled[entity] = make(map[string]bool)
	}
	c.reconciled[entity][id] = true
}

func (c *cycle) isReconciled(entity models.EntityType, id string) bool {
	return c.reconciled[entity][id]
}

// forgetReconciled drops the marks of a sheet whose savepoint was rolled back.
func (c *cycle) forgetReconciled(entity models.EntityType) {
	delete(c.reconciled, entity)
}

// unit is one entity's pull and push routine, bound to the cycle.
type unit interface {
	sheet() string
	pull(ctx context.Context, repos *store.Repositories, cnt *Counters) error
	push(ctx context.Context, repos *store.Repositories, cnt *Counters) error
}

// runPhase processes every unit inside one local transaction, each sheet in
// its own savepoint. A failing sheet is rolled back, its queued remote writes
// are discarded and the phase stops; sheets processed before it are
// committed and flushed. Queued writes are flushed after the commit.
func (s *syncService) runPhase(ctx context.Context, cy *cycle, phase Phase, units []unit) (*PhaseReport, error) {
	rep := &PhaseReport{Phase: phase}
	var sheetErr error

	txErr := s.store.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, repos *store.Repositories) error {
		for _, u := range units {
			var cnt Counters
			sp := savepointName(phase, u.sheet())
			err := dbx.WithSavepoint(ctx, tx, sp, func(ctx context.Context) error {
				if phase == PhasePull {
					return u.pull(ctx, repos, &cnt)
				}
				return u.push(ctx, repos, &cnt)
			})
			if err != nil {
				cy.batcher.Discard(u.sheet())
				cy.forgetReconciled(entityOf(u.sheet()))
				rep.Failed = entityOf(u.sheet())
				cy.log.Error(ctx, "sheet rolled back", "phase", phase, "sheet", u.sheet(), "error", err)
				sheetErr = fmt.Errorf("%s %s: %w", phase, u.sheet(), err)
				return nil
			}
			rep.Entities = append(rep.Entities, EntityReport{Entity: entityOf(u.sheet()), Counters: cnt})
			cy.log.Info(ctx, "sheet processed", "phase", phase, "sheet", u.sheet(),
				"inserted", cnt.Inserted, "updated", cnt.Updated, "skipped", cnt.Skipped,
				"duplicates", cnt.Duplicates, "conflicts", cnt.Conflicts, "backfilled", cnt.Backfilled,
				"omitted_by_delegate_unresolved", cnt.OmittedByDelegateUnresolved, "errors", cnt.Errors)
		}
		return nil
	})
	if txErr != nil {
		return rep, fmt.Errorf("%s: %w", phase, txErr)
	}

	if err := cy.batcher.Flush(ctx); err != nil {
		sheetErr = multierr.Append(sheetErr, fmt.Errorf("%s: flush remote writes: %w", phase, err))
	}
	return rep, sheetErr
}

func savepointName(phase Phase, sheet string) string {
	return string(phase) + "_" + strings.NewReplacer("-", "_", " ", "_").Replace(sheet)
}

// classify sorts a row rejected before planning into its counter. Errors
// that are not row-level are returned.
func classify(err error, cnt *Counters) error {
	switch {
	case errors.Is(err, errUnresolvedDelegate):
		cnt.OmittedByDelegateUnresolved++
	case errors.Is(err, errIgnored):
		cnt.Skipped++
	case errors.Is(err, common.ErrValidation):
		cnt.Errors++
	default:
		return err
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}
