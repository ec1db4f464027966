package delegates

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
)

// Repository describes persistence operations for Delegate rows.
type Repository interface {
	// List returns every delegate, soft-deleted ones included, ordered by id.
	List(ctx context.Context) ([]models.Delegate, error)

	// GetByUUID returns the delegate with the given identifier or
	// common.ErrorNotFound.
	GetByUUID(ctx context.Context, uuid string) (*models.Delegate, error)

	// Insert stores a new delegate and sets d.ID.
	Insert(ctx context.Context, d *models.Delegate) error

	// Update rewrites all mutable columns of the row with d.ID.
	Update(ctx context.Context, d *models.Delegate) error

	// AssignUUID sets the identifier of a row created before it had one.
	AssignUUID(ctx context.Context, id int64, uuid string) error

	// Count returns the number of non-deleted delegates.
	Count(ctx context.Context) (int, error)
}
