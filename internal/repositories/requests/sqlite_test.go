package requests

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *models.Request {
	return &models.Request{
		UUID: "r-1", DelegateUUID: "d-1", Date: "2025-01-15",
		StartMinutes: 540, EndMinutes: 660, TotalMinutes: 120,
		Note: "pleno", Status: "pending",
		CreatedAt: "2025-01-10T08:00:00Z", UpdatedAt: "2025-01-10T08:00:00Z", SourceDevice: "pc",
	}
}

func TestInsertGetAndList(t *testing.T) {
	r := NewSQLiteRepository(storetest.NewDB(t))
	ctx := context.Background()

	req := sample()
	require.NoError(t, r.Insert(ctx, req))
	require.NotZero(t, req.ID)

	got, err := r.GetByUUID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, *req, *got)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = r.GetByUUID(ctx, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate(t *testing.T) {
	r := NewSQLiteRepository(storetest.NewDB(t))
	ctx := context.Background()

	req := sample()
	require.NoError(t, r.Insert(ctx, req))

	req.FullDay = true
	req.Status = "confirmed"
	req.AuditRef = "pdf-1"
	require.NoError(t, r.Update(ctx, req))

	got, err := r.GetByUUID(ctx, "r-1")
	require.NoError(t, err)
	assert.True(t, got.FullDay)
	assert.Equal(t, "confirmed", got.Status)
	assert.Equal(t, "pdf-1", got.AuditRef)
}

func TestAssignUUIDAndCount(t *testing.T) {
	r := NewSQLiteRepository(storetest.NewDB(t))
	ctx := context.Background()

	req := sample()
	req.UUID = ""
	require.NoError(t, r.Insert(ctx, req))
	require.NoError(t, r.AssignUUID(ctx, req.ID, "r-new"))

	gone := sample()
	gone.UUID = "r-2"
	gone.Deleted = true
	require.NoError(t, r.Insert(ctx, gone))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := r.GetByUUID(ctx, "r-new")
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
}
