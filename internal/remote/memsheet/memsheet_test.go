package memsheet

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.CreateSheet(ctx, "requests", []string{"uuid", "date"}))
	require.Error(t, b.CreateSheet(ctx, "requests", nil))

	require.NoError(t, b.AppendRows(ctx, "requests", [][]string{{"", "2025-01-15"}}))
	require.NoError(t, b.UpdateCells(ctx, "requests", []remote.Cell{{Row: 1, Col: 0, Value: "r-1"}, {Row: 0, Col: 2, Value: "note"}}))

	got, err := b.ReadSheet(ctx, "requests")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"uuid", "date", "note"}, {"r-1", "2025-01-15"}}, got)

	assert.Equal(t, []map[string]string{{"uuid": "r-1", "date": "2025-01-15", "note": ""}}, b.Records("requests"))

	names, err := b.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"requests"}, names)
	assert.Equal(t, 6, b.Calls(""))
	assert.Equal(t, 1, b.Calls(OpAppend))
}

func TestBackendMissingSheet(t *testing.T) {
	_, err := New().ReadSheet(context.Background(), "nope")
	kind, ok := common.ConfigKind(err)
	require.True(t, ok)
	assert.Equal(t, common.ConfigNotFound, kind)
}

func TestBackendFaults(t *testing.T) {
	ctx := context.Background()
	b := New()
	b.Seed("a", [][]string{{"x"}})
	b.Seed("b", [][]string{{"x"}})

	boom := errors.New("boom")
	b.Fail(OpRead, "b", boom, 1)
	b.Throttle(OpList, 2)

	_, err := b.ReadSheet(ctx, "a")
	require.NoError(t, err)
	_, err = b.ReadSheet(ctx, "b")
	require.ErrorIs(t, err, boom)
	_, err = b.ReadSheet(ctx, "b")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = b.ListSheets(ctx)
		require.ErrorIs(t, err, common.ErrRateLimited)
	}
	_, err = b.ListSheets(ctx)
	require.NoError(t, err)
}
