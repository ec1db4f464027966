package schedules

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
)

// Repository describes persistence operations for per-weekday schedules.
type Repository interface {
	List(ctx context.Context) ([]models.Schedule, error)
	Insert(ctx context.Context, s *models.Schedule) error
	Update(ctx context.Context, s *models.Schedule) error
	AssignUUID(ctx context.Context, id int64, uuid string) error
	Count(ctx context.Context) (int, error)
}
