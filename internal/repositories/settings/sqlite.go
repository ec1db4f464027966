// Package settings stores shared key/value configuration (the remote
// "config" sheet) and device-local values such as the device id.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	s := &models.Setting{}
	err := r.db.QueryRowContext(ctx, `SELECT key, value, updated_at, source_device FROM settings WHERE key = ?`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedAt, &s.SourceDevice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting[%s]: %w", key, err)
	}
	return s, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, s *models.Setting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at, source_device) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at,
			source_device = excluded.source_device
	`, s.Key, s.Value, s.UpdatedAt, s.SourceDevice)
	if err != nil {
		return fmt.Errorf("failed to set setting[%s]: %w", s.Key, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at, source_device FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var result []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt, &s.SourceDevice); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings rows: %w", err)
	}
	return result, nil
}

// IsLocal reports whether key is device-local and must not be synchronized.
func IsLocal(key string) bool {
	return strings.HasPrefix(key, LocalPrefix)
}
