package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/sethvargo/go-retry"
)

// IsLocked reports whether err is SQLite's transient busy/locked condition.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrDatabaseLocked) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// linearBackoff waits step, 2*step, 3*step... and stops after attempts-1 waits.
func linearBackoff(attempts int, step time.Duration) retry.Backoff {
	var n int
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		if n >= attempts {
			return 0, true
		}
		return time.Duration(n) * step, false
	})
}

// RetryLocked runs fn up to attempts times while it fails with a locked
// database, sleeping with linear backoff between attempts. Any other error is
// returned immediately and unmodified.
func RetryLocked(ctx context.Context, attempts int, step time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	err := retry.Do(ctx, linearBackoff(attempts, step), func(ctx context.Context) error {
		err := fn(ctx)
		if IsLocked(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if IsLocked(err) && !errors.Is(err, common.ErrDatabaseLocked) {
		return fmt.Errorf("%w: %w", common.ErrDatabaseLocked, err)
	}
	return err
}

// Retrying wraps a DBTX so that Exec and Query calls are retried while the
// database is locked. QueryRow is passed through: its error surfaces at Scan.
type Retrying struct {
	DBTX
	Attempts int
	Step     time.Duration
}

// NewRetrying returns db wrapped with lock retries.
func NewRetrying(db DBTX, attempts int, step time.Duration) *Retrying {
	return &Retrying{DBTX: db, Attempts: attempts, Step: step}
}

func (r *Retrying) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := RetryLocked(ctx, r.Attempts, r.Step, func(ctx context.Context) error {
		var err error
		res, err = r.DBTX.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func (r *Retrying) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := RetryLocked(ctx, r.Attempts, r.Step, func(ctx context.Context) error {
		var err error
		rows, err = r.DBTX.QueryContext(ctx, query, args...)
		return err
	})
	return rows, err
}
