package dbx

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "dbx.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT);`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	return n
}

func values(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT v FROM t ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('ok')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, db), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('fail')`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)

	require.Equal(t, 0, countRows(t, db), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countRows(t, db), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('panic')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
}

func TestWithSavepoint_ReleasesOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return WithSavepoint(ctx, tx, "sheet_ok", func(ctx context.Context) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('inner')`)
			return err
		})
	})
	require.NoError(t, err)
	require.Equal(t, []string{"inner"}, values(t, db))
}

func TestWithSavepoint_RollsBackOnlyNestedWork(t *testing.T) {
	db := setupDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('outer')`)
		require.NoError(t, err)

		serr := WithSavepoint(ctx, tx, "sheet_fail", func(ctx context.Context) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('inner-1')`)
			require.NoError(t, err)
			_, err = tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('inner-2')`)
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, serr, boom)

		_, err = tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('after')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []string{"outer", "after"}, values(t, db))
}

func TestWithSavepoint_Nested(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return WithSavepoint(ctx, tx, "outer_sp", func(ctx context.Context) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('a')`)
			require.NoError(t, err)
			_ = WithSavepoint(ctx, tx, "inner_sp", func(ctx context.Context) error {
				_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('b')`)
				require.NoError(t, err)
				return errors.New("inner failed")
			})
			_, err = tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('c')`)
			return err
		})
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, values(t, db))
}

func TestWithSavepoint_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		func() {
			defer func() {
				require.NotNil(t, recover(), "panic must propagate out of the savepoint")
			}()
			_ = WithSavepoint(ctx, tx, "sp_panic", func(ctx context.Context) error {
				_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('panic')`)
				require.NoError(t, e)
				panic("kaput")
			})
		}()
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('survivor')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []string{"survivor"}, values(t, db))
}

func TestWithSavepoint_InvalidName(t *testing.T) {
	db := setupDB(t)
	called := false

	err := WithSavepoint(context.Background(), db, "bad name; DROP TABLE t", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}
