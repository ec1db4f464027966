// Package schedules persists the weekday schedule projection of each
// delegate: one row per (delegate, ISO weekday).
package schedules

import (
	"context"
	"database/sql"
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

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, uuid, delegate_uuid, weekday, morning_minutes, afternoon_minutes, updated_at, source_device, deleted
		FROM schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select schedules: %w", err)
	}
	defer rows.Close()

	var result []models.Schedule
	for rows.Next() {
		var s models.Schedule
		var uuid sql.NullString
		if err := rows.Scan(&s.ID, &uuid, &s.DelegateUUID, &s.Weekday, &s.MorningMinutes, &s.AfternoonMinutes,
			&s.UpdatedAt, &s.SourceDevice, &s.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		s.UUID = uuid.String
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, s *models.Schedule) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (uuid, delegate_uuid, weekday, morning_minutes, afternoon_minutes, updated_at, source_device, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		dbx.NullString(s.UUID), s.DelegateUUID, s.Weekday, s.MorningMinutes, s.AfternoonMinutes,
		s.UpdatedAt, s.SourceDevice, s.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get schedule id: %w", err)
	}
	s.ID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, s *models.Schedule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules SET uuid = ?, delegate_uuid = ?, weekday = ?, morning_minutes = ?, afternoon_minutes = ?,
			updated_at = ?, source_device = ?, deleted = ?
		WHERE id = ?`,
		dbx.NullString(s.UUID), s.DelegateUUID, s.Weekday, s.MorningMinutes, s.AfternoonMinutes,
		s.UpdatedAt, s.SourceDevice, s.Deleted, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return dbx.ExpectOne(res)
}

func (r *SQLiteRepository) AssignUUID(ctx context.Context, id int64, uuid string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE schedules SET uuid = ? WHERE id = ? AND uuid IS NULL`, uuid, id)
	if err != nil {
		return fmt.Errorf("failed to assign schedule uuid: %w", err)
	}
	return dbx.ExpectOne(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules WHERE deleted = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count schedules: %w", err)
	}
	return n, nil
}
