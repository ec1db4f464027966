// Package auditlog provides the SQLite persistence layer for the audit log of
// generated confirmation documents.
package auditlog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, delegate_uuid, date_range, generated_at, content_hash, updated_at, source_device
		FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit log: %w", err)
	}
	defer rows.Close()

	var result []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.DelegateUUID, &e.DateRange, &e.GeneratedAt,
			&e.ContentHash, &e.UpdatedAt, &e.SourceDevice); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.AuditLogEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (entry_id, delegate_uuid, date_range, generated_at, content_hash, updated_at, source_device)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.EntryID, e.DelegateUUID, e.DateRange, e.GeneratedAt, e.ContentHash, e.UpdatedAt, e.SourceDevice)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry id: %w", err)
	}
	e.ID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, e *models.AuditLogEntry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE audit_log SET entry_id = ?, delegate_uuid = ?, date_range = ?, generated_at = ?, content_hash = ?,
			updated_at = ?, source_device = ?
		WHERE id = ?`,
		e.EntryID, e.DelegateUUID, e.DateRange, e.GeneratedAt, e.ContentHash, e.UpdatedAt, e.SourceDevice, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update audit entry: %w", err)
	}
	return dbx.ExpectOne(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}
