package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/delegsync/internal/config"
	"github.com/dmitrijs2005/delegsync/internal/filex"
	"github.com/dmitrijs2005/delegsync/internal/logging"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/dmitrijs2005/delegsync/internal/remote/gsheets"
	"github.com/dmitrijs2005/delegsync/internal/remote/s3sheet"
	"github.com/dmitrijs2005/delegsync/internal/services"
	"github.com/dmitrijs2005/delegsync/internal/store"
	"go.uber.org/multierr"
)

// App holds the services a command runs against.
type App struct {
	config          *config.Config
	syncService     services.SyncService
	conflictService services.ConflictService
	out             io.Writer
	closers         []io.Closer
}

// newApp is a seam for tests.
var newApp = NewApp

// NewApp opens the local store and prepares the services for cfg. The
// remote backend is opened lazily by each cycle.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	if cfg.LogFile != "" {
		if _, err := filex.EnsureParentDir(cfg.LogFile); err != nil {
			return nil, err
		}
	}
	log, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	st, err := store.Open(ctx, cfg.DatabasePath, store.Options{LockRetries: cfg.LockRetries, LockBackoff: cfg.LockBackoff})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("error initializing database: %w", err), logCloser.Close())
	}

	ss := services.NewSyncService(st, backendFactory(cfg), services.Options{
		DeviceID:        cfg.DeviceID,
		BackfillEnabled: cfg.BackfillEnabled,
		Retry: remote.RetryPolicy{
			ReadAttempts:  cfg.ReadAttempts,
			WriteAttempts: cfg.WriteAttempts,
			BaseBackoff:   cfg.BaseBackoff,
			MaxJitter:     cfg.MaxJitter,
		},
	}, log.With("device", cfg.DeviceID))
	cs := services.NewConflictService(st)

	return &App{
		config:          cfg,
		syncService:     ss,
		conflictService: cs,
		out:             out,
		closers:         []io.Closer{st, logCloser},
	}, nil
}

// backendFactory returns the opener of the configured remote dataset.
func backendFactory(cfg *config.Config) services.BackendFactory {
	return func(ctx context.Context) (remote.Backend, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		switch cfg.Backend {
		case config.BackendS3:
			return s3sheet.New(ctx, s3sheet.Options{
				Bucket:    cfg.S3Bucket,
				Prefix:    cfg.S3Prefix,
				Region:    cfg.S3Region,
				Endpoint:  cfg.S3Endpoint,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
			})
		default:
			return gsheets.New(ctx, cfg.SpreadsheetID, cfg.CredentialsFile)
		}
	}
}

// Close releases the store and flushes the log file.
func (a *App) Close() error {
	var err error
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
