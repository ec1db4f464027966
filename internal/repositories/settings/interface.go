package settings

import (
	"context"

	"github.com/dmitrijs2005/delegsync/internal/models"
)

// LocalPrefix marks device-local keys (such as the device id). They are
// stored alongside shared settings but never synchronized.
const LocalPrefix = "local."

// DeviceIDKey holds the generated identifier of this device.
const DeviceIDKey = LocalPrefix + "device_id"

type Repository interface {
	// Get returns the setting for key, or nil when it does not exist.
	Get(ctx context.Context, key string) (*models.Setting, error)
	// Set inserts or replaces the setting with s.Key.
	Set(ctx context.Context, s *models.Setting) error
	// List returns every setting ordered by key.
	List(ctx context.Context) ([]models.Setting, error)
}
