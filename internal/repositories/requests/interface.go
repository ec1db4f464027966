package requests

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
)

// Repository describes persistence operations for time-off requests.
type Repository interface {
	// List returns every request, soft-deleted ones included, ordered by id.
	List(ctx context.Context) ([]models.Request, error)

	// GetByUUID returns the request with the given identifier or
	// common.ErrorNotFound.
	GetByUUID(ctx context.Context, uuid string) (*models.Request, error)

	// Insert stores a new request and sets r.ID.
	Insert(ctx context.Context, r *models.Request) error

	// Update rewrites all mutable columns of the row with r.ID.
	Update(ctx context.Context, r *models.Request) error

	// AssignUUID sets the identifier of a row created before it had one.
	AssignUUID(ctx context.Context, id int64, uuid string) error

	// Count returns the number of non-deleted requests.
	Count(ctx context.Context) (int, error)
}
