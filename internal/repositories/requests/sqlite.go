// Package requests provides the SQLite persistence layer for time-off requests.
package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/dbx"
	"github.com/dmitrijs2005/delegsync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, uuid, delegate_uuid, date, start_minutes, end_minutes, full_day, total_minutes,
	note, status, created_at, updated_at, source_device, deleted, audit_ref`

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (models.Request, error) {
	var r models.Request
	var uuid sql.NullString
	err := s.Scan(&r.ID, &uuid, &r.DelegateUUID, &r.Date, &r.StartMinutes, &r.EndMinutes, &r.FullDay,
		&r.TotalMinutes, &r.Note, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.SourceDevice, &r.Deleted, &r.AuditRef)
	r.UUID = uuid.String
	return r, err
}

func (s *SQLiteRepository) List(ctx context.Context) ([]models.Request, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM requests ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select requests: %w", err)
	}
	defer rows.Close()

	var result []models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteRepository) GetByUUID(ctx context.Context, uuid string) (*models.Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM requests WHERE uuid = ?`, uuid)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %s: %w", uuid, err)
	}
	return &r, nil
}

func (s *SQLiteRepository) Insert(ctx context.Context, r *models.Request) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (uuid, delegate_uuid, date, start_minutes, end_minutes, full_day, total_minutes,
			note, status, created_at, updated_at, source_device, deleted, audit_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dbx.NullString(r.UUID), r.DelegateUUID, r.Date, r.StartMinutes, r.EndMinutes, r.FullDay, r.TotalMinutes,
		r.Note, r.Status, r.CreatedAt, r.UpdatedAt, r.SourceDevice, r.Deleted, r.AuditRef)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get request id: %w", err)
	}
	r.ID = id
	return nil
}

func (s *SQLiteRepository) Update(ctx context.Context, r *models.Request) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE requests SET uuid = ?, delegate_uuid = ?, date = ?, start_minutes = ?, end_minutes = ?,
			full_day = ?, total_minutes = ?, note = ?, status = ?, created_at = ?, updated_at = ?,
			source_device = ?, deleted = ?, audit_ref = ?
		WHERE id = ?`,
		dbx.NullString(r.UUID), r.DelegateUUID, r.Date, r.StartMinutes, r.EndMinutes, r.FullDay, r.TotalMinutes,
		r.Note, r.Status, r.CreatedAt, r.UpdatedAt, r.SourceDevice, r.Deleted, r.AuditRef, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	return dbx.ExpectOne(res)
}

func (s *SQLiteRepository) AssignUUID(ctx context.Context, id int64, uuid string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE requests SET uuid = ? WHERE id = ? AND uuid IS NULL`, uuid, id)
	if err != nil {
		return fmt.Errorf("failed to assign request uuid: %w", err)
	}
	return dbx.ExpectOne(res)
}

func (s *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests WHERE deleted = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return n, nil
}
