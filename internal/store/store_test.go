package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "app.db"), Options{LockRetries: 3, LockBackoff: time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_MigratesAndReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	s, err := Open(ctx, path, Options{LockRetries: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, Options{LockRetries: 1})
	require.NoError(t, err, "reopening an up-to-date database is a no-op")
	defer s.Close()

	w, err := s.Repositories(s.DB).SyncState.Watermark(ctx)
	require.NoError(t, err)
	assert.Empty(t, w)
}

func TestOpen_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.db")

	s, err := Open(context.Background(), path, Options{LockRetries: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestOpen_DriverError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })

	boom := errors.New("boom")
	sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) { return nil, boom }

	_, err := Open(context.Background(), "x.db", Options{})
	require.ErrorIs(t, err, boom)
}

func TestWithTx_CommitsAndRollsBack(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, repos *Repositories) error {
		return repos.Delegates.Insert(ctx, &models.Delegate{UUID: "d-1", Name: "Ana"})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX, repos *Repositories) error {
		require.NoError(t, repos.Delegates.Insert(ctx, &models.Delegate{UUID: "d-2", Name: "Luis"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.Repositories(s.DB).Delegates.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeviceID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.DeviceID(ctx, "laptop")
	require.NoError(t, err)
	assert.Equal(t, "laptop", id)

	generated, err := s.DeviceID(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, generated)

	again, err := s.DeviceID(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, generated, again, "generated id is persisted")
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "file:x.db?mode=ro", dsn("file:x.db?mode=ro"))
	assert.Contains(t, dsn("/tmp/a.db"), "busy_timeout")
}
