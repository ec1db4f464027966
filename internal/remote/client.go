package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/delegsync/internal/logging"
)

// CellUpdate rewrites one cell of an existing row. Row is the sheet row
// number as reported by Row.Number; Column is the canonical column name.
type CellUpdate struct {
	Row    int
	Column string
	Value  string
}

// Client is the per-cycle view of a remote backend. It is not safe for
// concurrent use.
type Client struct {
	backend Backend
	policy  RetryPolicy
	log     logging.Logger
	schemas map[string]SheetSchema
	cache   map[string]*Sheet
	calls   int
}

// NewClient wraps b. A nil logger discards output.
func NewClient(b Backend, policy RetryPolicy, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		backend: b,
		policy:  policy,
		log:     log,
		schemas: map[string]SheetSchema{},
		cache:   map[string]*Sheet{},
	}
}

// Calls returns the number of backend calls made so far, retries included.
func (c *Client) Calls() int { return c.calls }

// EnsureSchema creates missing sheets and appends missing canonical columns
// to the header of existing ones. Existing columns are never renamed or
// reordered.
func (c *Client) EnsureSchema(ctx context.Context, schemas ...SheetSchema) error {
	var names []string
	err := c.do(ctx, "list", "", c.policy.ReadAttempts, func(ctx context.Context) error {
		var err error
		names, err = c.backend.ListSheets(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}

	for _, s := range schemas {
		c.schemas[s.Name] = s
		if !existing[s.Name] {
			header := append([]string(nil), s.Header...)
			err := c.do(ctx, "create", s.Name, c.policy.WriteAttempts, func(ctx context.Context) error {
				return c.backend.CreateSheet(ctx, s.Name, header)
			})
			if err != nil {
				return fmt.Errorf("create sheet %s: %w", s.Name, err)
			}
			c.log.Info(ctx, "created remote sheet", "sheet", s.Name, "columns", len(header))
			c.cache[s.Name] = &Sheet{Name: s.Name, Header: header}
			continue
		}

		sheet, err := c.Read(ctx, s.Name)
		if err != nil {
			return err
		}
		var cells []Cell
		for _, col := range s.Header {
			if c.columnIndex(sheet, col) >= 0 {
				continue
			}
			cells = append(cells, Cell{Row: 0, Col: len(sheet.Header) + len(cells), Value: col})
		}
		if len(cells) == 0 {
			continue
		}
		err = c.do(ctx, "update", s.Name, c.policy.WriteAttempts, func(ctx context.Context) error {
			return c.backend.UpdateCells(ctx, s.Name, cells)
		})
		if err != nil {
			return fmt.Errorf("extend header of %s: %w", s.Name, err)
		}
		for _, cell := range cells {
			sheet.Header = append(sheet.Header, cell.Value)
			for i := range sheet.Rows {
				sheet.Rows[i].Cells[cell.Value] = ""
			}
		}
		c.log.Info(ctx, "extended remote header", "sheet", s.Name, "added", len(cells))
	}
	return nil
}

// Read returns the decoded sheet, reading it from the backend at most once
// per cycle unless an append invalidated it.
func (c *Client) Read(ctx context.Context, name string) (*Sheet, error) {
	if s, ok := c.cache[name]; ok {
		return s, nil
	}
	var values [][]string
	err := c.do(ctx, "read", name, c.policy.ReadAttempts, func(ctx context.Context) error {
		var err error
		values, err = c.backend.ReadSheet(ctx, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	s := decodeSheet(name, values)
	c.cache[name] = s
	return s, nil
}

// Value returns the cell of row r for a canonical column.
func (c *Client) Value(s *Sheet, r Row, canonical string) string {
	i := c.columnIndex(s, canonical)
	if i < 0 {
		return ""
	}
	return r.Cells[s.Header[i]]
}

// Append writes rows, keyed by canonical column, after the last row of the
// sheet. Columns absent from the header are dropped.
func (c *Client) Append(ctx context.Context, name string, rows []map[string]string) error {
	if len(rows) == 0 {
		return nil
	}
	sheet, err := c.Read(ctx, name)
	if err != nil {
		return err
	}
	values := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, len(sheet.Header))
		for canonical, v := range r {
			if i := c.columnIndex(sheet, canonical); i >= 0 {
				line[i] = v
			}
		}
		values = append(values, line)
	}
	err = c.do(ctx, "append", name, c.policy.WriteAttempts, func(ctx context.Context) error {
		return c.backend.AppendRows(ctx, name, values)
	})
	if err != nil {
		return fmt.Errorf("append to %s: %w", name, err)
	}
	delete(c.cache, name)
	return nil
}

// Update rewrites single cells in place and patches the cached sheet.
func (c *Client) Update(ctx context.Context, name string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	sheet, err := c.Read(ctx, name)
	if err != nil {
		return err
	}
	cells := make([]Cell, 0, len(updates))
	for _, u := range updates {
		i := c.columnIndex(sheet, u.Column)
		if i < 0 {
			return fmt.Errorf("sheet %s has no column %q", name, u.Column)
		}
		if u.Row < 2 {
			return fmt.Errorf("sheet %s: invalid data row %d", name, u.Row)
		}
		cells = append(cells, Cell{Row: u.Row - 1, Col: i, Value: u.Value})
	}
	err = c.do(ctx, "update", name, c.policy.WriteAttempts, func(ctx context.Context) error {
		return c.backend.UpdateCells(ctx, name, cells)
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	byNumber := make(map[int]int, len(sheet.Rows))
	for i, r := range sheet.Rows {
		byNumber[r.Number] = i
	}
	for _, cell := range cells {
		if i, ok := byNumber[cell.Row+1]; ok {
			sheet.Rows[i].Cells[sheet.Header[cell.Col]] = cell.Value
		}
	}
	return nil
}

// columnIndex resolves a canonical column to its position in the remote
// header, preferring an exact name over an alias.
func (c *Client) columnIndex(s *Sheet, canonical string) int {
	for i, h := range s.Header {
		if strings.TrimSpace(h) == canonical {
			return i
		}
	}
	schema, ok := c.schemas[s.Name]
	if !ok {
		return -1
	}
	for i, h := range s.Header {
		if h != "" && schema.matches(h, canonical) {
			return i
		}
	}
	return -1
}
