// Package conflicts persists conflict records. Each record carries a
// fingerprint of its entity, identity key and both snapshots so that the
// same divergence seen again while it is still open (for example by the push
// phase after the pull phase already recorded it) does not produce a second
// record. Once resolved, a reappearing divergence is recorded anew.
package conflicts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/cryptox"
	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Fingerprint identifies a divergence independently of when it was detected.
func Fingerprint(entity models.EntityType, key string, local, remote []byte) string {
	return cryptox.Digest([]byte(entity), []byte(key), local, remote)
}

func (r *SQLiteRepository) Register(ctx context.Context, c *models.Conflict) (bool, error) {
	c.Fingerprint = Fingerprint(c.EntityType, c.IdentityKey, c.LocalSnapshot, c.RemoteSnapshot)

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sync_conflicts (identity_key, entity_type, local_snapshot, remote_snapshot, detected_at, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.IdentityKey, string(c.EntityType), string(c.LocalSnapshot), string(c.RemoteSnapshot), c.DetectedAt, c.Fingerprint)
	if err != nil {
		return false, fmt.Errorf("failed to insert conflict: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT id FROM sync_conflicts WHERE fingerprint = ? AND resolved_at IS NULL`, c.Fingerprint).Scan(&c.ID); err != nil {
			return false, fmt.Errorf("failed to load existing conflict: %w", err)
		}
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get conflict id: %w", err)
	}
	c.ID = id
	return true, nil
}

const selectColumns = `id, identity_key, entity_type, local_snapshot, remote_snapshot, detected_at, resolved_at, fingerprint`

type scanner interface {
	Scan(dest ...any) error
}

func scanConflict(s scanner) (models.Conflict, error) {
	var c models.Conflict
	var entity, local, remote string
	var resolved sql.NullString
	if err := s.Scan(&c.ID, &c.IdentityKey, &entity, &local, &remote, &c.DetectedAt, &resolved, &c.Fingerprint); err != nil {
		return c, err
	}
	c.EntityType = models.EntityType(entity)
	c.LocalSnapshot = []byte(local)
	c.RemoteSnapshot = []byte(remote)
	c.ResolvedAt = resolved.String
	return c, nil
}

func (r *SQLiteRepository) List(ctx context.Context, onlyOpen bool) ([]models.Conflict, error) {
	query := `SELECT ` + selectColumns + ` FROM sync_conflicts`
	if onlyOpen {
		query += ` WHERE resolved_at IS NULL`
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflicts: %w", err)
	}
	defer rows.Close()

	var result []models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.Conflict, error) {
	c, err := scanConflict(r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM sync_conflicts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict %d: %w", id, err)
	}
	return &c, nil
}

func (r *SQLiteRepository) Resolve(ctx context.Context, id int64, at string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sync_conflicts SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict %d: %w", id, err)
	}
	return dbx.ExpectOne(res)
}

func (r *SQLiteRepository) OpenKeys(ctx context.Context, entity models.EntityType) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT identity_key FROM sync_conflicts WHERE entity_type = ? AND resolved_at IS NULL`, string(entity))
	if err != nil {
		return nil, fmt.Errorf("failed to select open conflicts: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan conflict key: %w", err)
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

func (r *SQLiteRepository) CountOpen(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_conflicts WHERE resolved_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conflicts: %w", err)
	}
	return n, nil
}
