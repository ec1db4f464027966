package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/models"
	"github.com/dmitrijs2005/delegsync/internal/normalize"
	"github.com/dmitrijs2005/delegsync/internal/store"
)

// ConflictService is the manual review surface of the conflict log.
type ConflictService interface {
	List(ctx context.Context, onlyOpen bool) ([]models.Conflict, error)
	Get(ctx context.Context, id int64) (*models.Conflict, error)
	// Resolve stamps an open conflict as resolved. The row it holds back is
	// synchronized again from the next cycle on.
	Resolve(ctx context.Context, id int64) error
}

type conflictService struct {
	store *store.Store
	now   func() time.Time
}

func NewConflictService(st *store.Store) ConflictService {
	return &conflictService{store: st, now: time.Now}
}

func (s *conflictService) List(ctx context.Context, onlyOpen bool) ([]models.Conflict, error) {
	list, err := s.store.Repositories(s.store.DB).Conflicts.List(ctx, onlyOpen)
	if err != nil {
		return nil, fmt.Errorf("error listing conflicts: %w", err)
	}
	return list, nil
}

func (s *conflictService) Get(ctx context.Context, id int64) (*models.Conflict, error) {
	return s.store.Repositories(s.store.DB).Conflicts.Get(ctx, id)
}

func (s *conflictService) Resolve(ctx context.Context, id int64) error {
	if err := s.store.Repositories(s.store.DB).Conflicts.Resolve(ctx, id, normalize.FormatInstant(s.now())); err != nil {
		return fmt.Errorf("error resolving conflict %d: %w", id, err)
	}
	return nil
}
