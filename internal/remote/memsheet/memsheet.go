// Package memsheet is an in-memory remote.Backend with call accounting and
// fault injection, used by tests and by the CLI's dry runs.
package memsheet

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/remote"
)

// Operation names used by Calls and Fail.
const (
	OpList   = "list"
	OpCreate = "create"
	OpRead   = "read"
	OpAppend = "append"
	OpUpdate = "update"
)

type fault struct {
	op    string
	sheet string
	err   error
	times int
}

// Backend keeps sheets as string grids.
type Backend struct {
	mu     sync.Mutex
	order  []string
	sheets map[string][][]string
	calls  map[string]int
	faults []*fault
}

var _ remote.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{sheets: map[string][][]string{}, calls: map[string]int{}}
}

// Seed replaces the content of a sheet, creating it if needed. The first row
// is the header.
func (b *Backend) Seed(name string, values [][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sheets[name]; !ok {
		b.order = append(b.order, name)
	}
	b.sheets[name] = clone(values)
}

// Values returns a copy of the sheet grid, or nil if it does not exist.
func (b *Backend) Values(name string) [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.sheets[name])
}

// Records returns the data rows of a sheet as maps keyed by header.
func (b *Backend) Records(name string) []map[string]string {
	values := b.Values(name)
	if len(values) == 0 {
		return nil
	}
	header := values[0]
	out := make([]map[string]string, 0, len(values)-1)
	for _, row := range values[1:] {
		m := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				m[h] = row[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out
}

// Fail makes the next times calls of op fail with err. An empty sheet
// matches any sheet; times < 0 fails forever.
func (b *Backend) Fail(op, sheet string, err error, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = append(b.faults, &fault{op: op, sheet: sheet, err: err, times: times})
}

// Throttle makes the next times calls of op fail with common.ErrRateLimited.
func (b *Backend) Throttle(op string, times int) {
	b.Fail(op, "", fmt.Errorf("%w: quota exceeded", common.ErrRateLimited), times)
}

// Calls returns the number of calls made for op, or for all ops when op is
// empty.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if op != "" {
		return b.calls[op]
	}
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes the counters.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = map[string]int{}
}

// enter records a call and returns an injected fault, if any. Callers hold mu.
func (b *Backend) enter(op, sheet string) error {
	b.calls[op]++
	for _, f := range b.faults {
		if f.times == 0 || f.op != op || (f.sheet != "" && f.sheet != sheet) {
			continue
		}
		if f.times > 0 {
			f.times--
		}
		return f.err
	}
	return nil
}

func (b *Backend) missing(name string) error {
	return common.NewConfigError(common.ConfigNotFound, fmt.Sprintf("sheet %q does not exist", name), nil)
}

func (b *Backend) ListSheets(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpList, ""); err != nil {
		return nil, err
	}
	return append([]string(nil), b.order...), nil
}

func (b *Backend) CreateSheet(ctx context.Context, name string, header []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpCreate, name); err != nil {
		return err
	}
	if _, ok := b.sheets[name]; ok {
		return fmt.Errorf("sheet %q already exists", name)
	}
	b.order = append(b.order, name)
	b.sheets[name] = [][]string{append([]string(nil), header...)}
	return nil
}

func (b *Backend) ReadSheet(ctx context.Context, name string) ([][]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpRead, name); err != nil {
		return nil, err
	}
	v, ok := b.sheets[name]
	if !ok {
		return nil, b.missing(name)
	}
	return clone(v), nil
}

func (b *Backend) AppendRows(ctx context.Context, name string, rows [][]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpAppend, name); err != nil {
		return err
	}
	v, ok := b.sheets[name]
	if !ok {
		return b.missing(name)
	}
	b.sheets[name] = append(v, clone(rows)...)
	return nil
}

func (b *Backend) UpdateCells(ctx context.Context, name string, cells []remote.Cell) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(OpUpdate, name); err != nil {
		return err
	}
	v, ok := b.sheets[name]
	if !ok {
		return b.missing(name)
	}
	for _, c := range cells {
		for len(v) <= c.Row {
			v = append(v, nil)
		}
		for len(v[c.Row]) <= c.Col {
			v[c.Row] = append(v[c.Row], "")
		}
		v[c.Row][c.Col] = c.Value
	}
	b.sheets[name] = v
	return nil
}

func clone(v [][]string) [][]string {
	if v == nil {
		return nil
	}
	out := make([][]string, len(v))
	for i, r := range v {
		out[i] = append([]string(nil), r...)
	}
	return out
}
