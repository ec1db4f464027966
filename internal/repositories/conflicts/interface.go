package conflicts

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
)

// Repository is the append-only log of divergences awaiting manual review.
// The engine never deletes or rewrites a record; Resolve only stamps it.
type Repository interface {
	// Register stores c unless a record with the same fingerprint already
	// exists. It reports whether a new record was created and sets c.ID and
	// c.Fingerprint.
	Register(ctx context.Context, c *models.Conflict) (bool, error)

	// List returns conflicts ordered by id, optionally only unresolved ones.
	List(ctx context.Context, onlyOpen bool) ([]models.Conflict, error)

	// Get returns one conflict or common.ErrorNotFound.
	Get(ctx context.Context, id int64) (*models.Conflict, error)

	// Resolve marks an open conflict as resolved at the given instant.
	Resolve(ctx context.Context, id int64, at string) error

	// OpenKeys returns the identity keys of entity that have open conflicts.
	OpenKeys(ctx context.Context, entity models.EntityType) (map[string]bool, error)

	// CountOpen returns the number of unresolved conflicts.
	CountOpen(ctx context.Context) (int, error)
}
