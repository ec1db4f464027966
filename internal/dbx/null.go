package dbx

import (
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/delegsync/internal/common"
)

// NullString maps the empty string to SQL NULL. Nullable UNIQUE columns use
// it so that several rows may lack a value.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ExpectOne checks that a write touched exactly one row. Zero rows is
// reported as common.ErrorNotFound.
func ExpectOne(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}
