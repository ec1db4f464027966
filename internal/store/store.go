// Package store opens the local SQLite database, applies migrations and vends
// repositories bound to a connection or transaction.
//
// The store is single-writer: the pool is capped at one connection and one
// sync cycle owns it for its whole duration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/filex"
	"github.com/dmitrijs2005/delegsync/internal/migrations"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/repositories/auditlog"
	"github.com/dmitrijs2005/delegsync/internal/repositories/conflicts"
	"github.com/dmitrijs2005/delegsync/internal/repositories/delegates"
	"github.com/dmitrijs2005/delegsync/internal/repositories/requests"
	"github.com/dmitrijs2005/delegsync/internal/repositories/schedules"
	"github.com/dmitrijs2005/delegsync/internal/repositories/settings"
	"github.com/dmitrijs2005/delegsync/internal/repositories/syncstate"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

// Repositories groups every repository bound to the same DBTX.
type Repositories struct {
	Delegates delegates.Repository
	Requests  requests.Repository
	Schedules schedules.Repository
	AuditLog  auditlog.Repository
	Settings  settings.Repository
	SyncState syncstate.Repository
	Conflicts conflicts.Repository
}

// Options tunes the local lock retry.
type Options struct {
	LockRetries int
	LockBackoff time.Duration
}

type Store struct {
	DB   *sql.DB
	opts Options
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
	}
	db, err := sqlOpen("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return &Store{DB: db, opts: opts}, nil
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// Close releases the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Repositories returns repositories bound to db, which is usually the
// transaction of the running cycle. Calls are retried while the database is
// locked.
func (s *Store) Repositories(db dbx.DBTX) *Repositories {
	db = dbx.NewRetrying(db, s.opts.LockRetries, s.opts.LockBackoff)
	return &Repositories{
		Delegates: delegates.NewSQLiteRepository(db),
		Requests:  requests.NewSQLiteRepository(db),
		Schedules: schedules.NewSQLiteRepository(db),
		AuditLog:  auditlog.NewSQLiteRepository(db),
		Settings:  settings.NewSQLiteRepository(db),
		SyncState: syncstate.NewSQLiteRepository(db),
		Conflicts: conflicts.NewSQLiteRepository(db),
	}
}

// WithTx runs fn inside one transaction with repositories bound to it.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX, repos *Repositories) error) error {
	return dbx.WithTx(ctx, s.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, tx, s.Repositories(tx))
	})
}

// DeviceID returns configured when it is not empty. Otherwise it returns the
// identifier persisted in the settings table, generating and storing one on
// first use.
func (s *Store) DeviceID(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	repo := s.Repositories(s.DB).Settings
	existing, err := repo.Get(ctx, settings.DeviceIDKey)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.Value != "" {
		return existing.Value, nil
	}
	id := uuid.NewString()
	if err := repo.Set(ctx, &models.Setting{Key: settings.DeviceIDKey, Value: id}); err != nil {
		return "", err
	}
	return id, nil
}
