// Package syncstate persists the sync watermark: the instant at which the
// last fully successful cycle ended.
package syncstate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/delegsync/internal/dbx"
)

type Repository interface {
	// Watermark returns the stored watermark, or "" before the first sync.
	Watermark(ctx context.Context) (string, error)
	// SetWatermark replaces the watermark.
	SetWatermark(ctx context.Context, at string) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Watermark(ctx context.Context) (string, error) {
	var at sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT last_sync_at FROM sync_state WHERE id = 1`).Scan(&at); err != nil {
		return "", fmt.Errorf("failed to read watermark: %w", err)
	}
	return at.String, nil
}

func (r *SQLiteRepository) SetWatermark(ctx context.Context, at string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, last_sync_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_sync_at = excluded.last_sync_at`, dbx.NullString(at))
	if err != nil {
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	return nil
}
