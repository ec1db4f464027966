// Package remote adapts a rate-limited, non-transactional tabular store to
// the sync engine.
//
// A Backend speaks the raw API (list sheets, create a sheet, read all values,
// append rows, update cells). Client wraps one for the duration of a single
// sync cycle: every call goes through the retry policy, sheets are read at
// most once and then served from a cache, and real network calls are
// counted. Batcher accumulates writes so each sheet is written once per
// phase.
package remote

import (
	"context"
	"strings"
)

// Cell addresses one cell of a sheet's value grid. Row and Col are zero-based;
// row 0 is the header row.
type Cell struct {
	Row   int
	Col   int
	Value string
}

// Backend is the raw remote tabular API. Implementations map their own
// failures to the common error taxonomy: common.ErrRateLimited and
// common.ErrRemoteBusy are retried, *common.ConfigError is fatal.
type Backend interface {
	// ListSheets returns the names of the existing sheets.
	ListSheets(ctx context.Context) ([]string, error)
	// CreateSheet adds a sheet whose first row is header.
	CreateSheet(ctx context.Context, name string, header []string) error
	// ReadSheet returns every row of the sheet, header first.
	ReadSheet(ctx context.Context, name string) ([][]string, error)
	// AppendRows adds rows after the last non-empty row.
	AppendRows(ctx context.Context, name string, rows [][]string) error
	// UpdateCells overwrites the given cells, growing the grid if needed.
	UpdateCells(ctx context.Context, name string, cells []Cell) error
}

// SheetSchema is the canonical header of a sheet. Match reports whether an
// existing header cell stands for a canonical column; nil means exact match.
type SheetSchema struct {
	Name   string
	Header []string
	Match  func(header, canonical string) bool
}

func (s SheetSchema) matches(header, canonical string) bool {
	if strings.TrimSpace(header) == canonical {
		return true
	}
	return s.Match != nil && s.Match(header, canonical)
}

// Row is one data row. Number is the 1-based position in the sheet (the
// header is row 1) and addresses the row in later updates.
type Row struct {
	Number int
	Cells  map[string]string
}

// Sheet is a decoded snapshot of a remote sheet. Cells are keyed by the
// header text as it appears remotely.
type Sheet struct {
	Name   string
	Header []string
	Rows   []Row
}

func decodeSheet(name string, values [][]string) *Sheet {
	s := &Sheet{Name: name}
	if len(values) == 0 {
		return s
	}
	for _, h := range values[0] {
		s.Header = append(s.Header, strings.TrimSpace(h))
	}
	for i, raw := range values[1:] {
		cells := make(map[string]string, len(s.Header))
		empty := true
		for j, h := range s.Header {
			if h == "" {
				continue
			}
			v := ""
			if j < len(raw) {
				v = raw[j]
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			if _, dup := cells[h]; !dup {
				cells[h] = v
			}
		}
		if empty {
			continue
		}
		s.Rows = append(s.Rows, Row{Number: i + 2, Cells: cells})
	}
	return s
}
