package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictService(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	svc := NewConflictService(f.store)

	c := &models.Conflict{
		IdentityKey:    "r-1",
		EntityType:     models.EntityRequest,
		LocalSnapshot:  []byte(`{"note":"local"}`),
		RemoteSnapshot: []byte(`{"note":"remote"}`),
		DetectedAt:     at(0),
	}
	created, err := f.repos().Conflicts.Register(ctx, c)
	require.NoError(t, err)
	require.True(t, created)

	open, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].Open())

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "r-1", got.IdentityKey)
	assert.JSONEq(t, `{"note":"remote"}`, string(got.RemoteSnapshot))

	require.NoError(t, svc.Resolve(ctx, c.ID))
	require.ErrorIs(t, svc.Resolve(ctx, c.ID), common.ErrorNotFound, "a conflict is resolved once")

	open, err = svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Open())

	_, err = svc.Get(ctx, 999)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
