package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/logging"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/dmitrijs2005/delegsync/internal/remote/memsheet"
	"github.com/dmitrijs2005/delegsync/internal/store"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	store  *store.Store
	remote *memsheet.Backend
	svc    *syncService
	now    time.Time
}

func newFixture(t *testing.T, backfill bool) *fixture {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "sync.db"),
		store.Options{LockRetries: 3, LockBackoff: time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{t: t, store: st, remote: memsheet.New(), now: t0}
	open := func(ctx context.Context) (remote.Backend, error) { return f.remote, nil }
	f.svc = NewSyncService(st, open, Options{
		DeviceID:        "device-a",
		BackfillEnabled: backfill,
		Retry:           remote.RetryPolicy{ReadAttempts: 5, WriteAttempts: 3, BaseBackoff: time.Millisecond},
		Now:             func() time.Time { return f.now },
	}, logging.Nop()).(*syncService)
	return f
}

func (f *fixture) repos() *store.Repositories {
	return f.store.Repositories(f.store.DB)
}

// seed writes a sheet with the canonical header of schema and the given
// rows keyed by canonical column.
func (f *fixture) seed(schema normalize.Schema, rows ...map[string]string) {
	header := schema.Header()
	values := [][]string{header}
	for _, r := range rows {
		line := make([]string, len(header))
		for i, h := range header {
			line[i] = r[h]
		}
		values = append(values, line)
	}
	f.remote.Seed(schema.Sheet, values)
}

// setCell rewrites one cell of the remote row whose first column is id.
func (f *fixture) setCell(sheet, id, column, value string) {
	values := f.remote.Values(sheet)
	col := -1
	for i, h := range values[0] {
		if h == column {
			col = i
		}
	}
	require.GreaterOrEqual(f.t, col, 0, "column %s", column)
	for _, row := range values[1:] {
		if len(row) > 0 && row[0] == id {
			row[col] = value
			f.remote.Seed(sheet, values)
			return
		}
	}
	f.t.Fatalf("row %s not found in %s", id, sheet)
}

func (f *fixture) watermark() string {
	w, err := f.repos().SyncState.Watermark(context.Background())
	require.NoError(f.t, err)
	return w
}

func at(d time.Duration) string {
	return normalize.FormatInstant(t0.Add(d))
}
