package remote

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Batcher queues writes so that each sheet receives at most one update call
// and one append call per flush.
type Batcher struct {
	client  *Client
	order   []string
	appends map[string][]map[string]string
	updates map[string][]CellUpdate
}

func NewBatcher(c *Client) *Batcher {
	return &Batcher{
		client:  c,
		appends: map[string][]map[string]string{},
		updates: map[string][]CellUpdate{},
	}
}

func (b *Batcher) touch(sheet string) {
	if _, ok := b.appends[sheet]; ok {
		return
	}
	if _, ok := b.updates[sheet]; ok {
		return
	}
	b.order = append(b.order, sheet)
}

// Append queues a new row keyed by canonical column.
func (b *Batcher) Append(sheet string, row map[string]string) {
	b.touch(sheet)
	b.appends[sheet] = append(b.appends[sheet], row)
}

// Update queues cell rewrites.
func (b *Batcher) Update(sheet string, u ...CellUpdate) {
	b.touch(sheet)
	b.updates[sheet] = append(b.updates[sheet], u...)
}

// Discard drops everything queued for sheet.
func (b *Batcher) Discard(sheet string) {
	delete(b.appends, sheet)
	delete(b.updates, sheet)
	for i, s := range b.order {
		if s == sheet {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Pending returns the number of queued appends and cell updates for sheet.
func (b *Batcher) Pending(sheet string) (appends, updates int) {
	return len(b.appends[sheet]), len(b.updates[sheet])
}

// Flush writes the queues in the order sheets were first touched. Updates go
// before appends so queued row numbers stay valid. A failing sheet does not
// stop the others; all errors are returned combined and the queues are
// emptied either way.
func (b *Batcher) Flush(ctx context.Context) error {
	var errs error
	for _, sheet := range b.order {
		if err := b.client.Update(ctx, sheet, b.updates[sheet]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("flush updates: %w", err))
		}
		if err := b.client.Append(ctx, sheet, b.appends[sheet]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("flush appends: %w", err))
		}
	}
	b.order = nil
	b.appends = map[string][]map[string]string{}
	b.updates = map[string][]CellUpdate{}
	return errs
}
