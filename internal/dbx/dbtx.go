// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// helpers to run functions inside a transaction or a nested savepoint,
// and a bounded retry for SQLite's transient "database is locked" state.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"go.uber.org/multierr"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    // use tx instead of db
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

var savepointName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// WithSavepoint runs fn inside a nested transaction scope on tx.
//
// On success the savepoint is released and fn's writes become part of the
// enclosing transaction. On error or panic everything fn wrote is rolled back
// to the savepoint and the error (or panic) propagates unmodified; work done
// by the enclosing transaction before the savepoint is kept.
//
//	err := dbx.WithSavepoint(ctx, tx, "sheet_requests", func(ctx context.Context) error {
//	    return processSheet(ctx, tx)
//	})
func WithSavepoint(ctx context.Context, tx DBTX, name string, fn func(ctx context.Context) error) (err error) {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("begin savepoint %s: %w", name, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = rollbackTo(ctx, tx, name)
			panic(p)
		}
		if err != nil {
			err = multierr.Append(err, rollbackTo(ctx, tx, name))
			return
		}
		if _, rerr := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); rerr != nil {
			err = fmt.Errorf("release savepoint %s: %w", name, rerr)
		}
	}()

	err = fn(ctx)
	return err
}

// rollbackTo undoes everything since the savepoint and pops it off the stack.
// It ignores ctx cancellation so an aborted cycle still unwinds.
func rollbackTo(ctx context.Context, tx DBTX, name string) error {
	ctx = context.WithoutCancel(ctx)
	if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s after rollback: %w", name, err)
	}
	return nil
}
