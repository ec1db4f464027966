package delegates

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

const selectColumns = `id, uuid, name, gender, monthly_minutes, annual_minutes, active, updated_at, source_device, deleted`

type scanner interface {
	Scan(dest ...any) error
}

func scanDelegate(s scanner) (models.Delegate, error) {
	var d models.Delegate
	var uuid sql.NullString
	err := s.Scan(&d.ID, &uuid, &d.Name, &d.Gender, &d.MonthlyMinutes, &d.AnnualMinutes,
		&d.Active, &d.UpdatedAt, &d.SourceDevice, &d.Deleted)
	d.UUID = uuid.String
	return d, err
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Delegate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM delegates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select delegates: %w", err)
	}
	defer rows.Close()

	var result []models.Delegate
	for rows.Next() {
		d, err := scanDelegate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delegate: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByUUID(ctx context.Context, uuid string) (*models.Delegate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM delegates WHERE uuid = ?`, uuid)
	d, err := scanDelegate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delegate %s: %w", uuid, err)
	}
	return &d, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, d *models.Delegate) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO delegates (uuid, name, gender, monthly_minutes, annual_minutes, active, updated_at, source_device, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dbx.NullString(d.UUID), d.Name, d.Gender, d.MonthlyMinutes, d.AnnualMinutes,
		d.Active, d.UpdatedAt, d.SourceDevice, d.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert delegate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get delegate id: %w", err)
	}
	d.ID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, d *models.Delegate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE delegates SET uuid = ?, name = ?, gender = ?, monthly_minutes = ?, annual_minutes = ?,
			active = ?, updated_at = ?, source_device = ?, deleted = ?
		WHERE id = ?`,
		dbx.NullString(d.UUID), d.Name, d.Gender, d.MonthlyMinutes, d.AnnualMinutes,
		d.Active, d.UpdatedAt, d.SourceDevice, d.Deleted, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update delegate: %w", err)
	}
	return dbx.ExpectOne(res)
}

func (r *SQLiteRepository) AssignUUID(ctx context.Context, id int64, uuid string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE delegates SET uuid = ? WHERE id = ? AND uuid IS NULL`, uuid, id)
	if err != nil {
		return fmt.Errorf("failed to assign delegate uuid: %w", err)
	}
	return dbx.ExpectOne(res)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM delegates WHERE deleted = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count delegates: %w", err)
	}
	return n, nil
}
