package auditlog

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
)

// Repository persists confirmation-document audit entries. Entries are
// identified by EntryID and are never deleted.
type Repository interface {
	List(ctx context.Context) ([]models.AuditLogEntry, error)
	Insert(ctx context.Context, e *models.AuditLogEntry) error
	Update(ctx context.Context, e *models.AuditLogEntry) error
	Count(ctx context.Context) (int, error)
}
