package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Supported remote backends.
const (
	BackendSheets = "sheets"
	BackendS3     = "s3"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "DELEGSYNC"

// Config holds runtime settings for a sync run.
//
// DeviceID may be left empty: the store then generates one on first use and
// persists it locally.
type Config struct {
	DatabasePath string
	DeviceID     string

	Backend         string
	SpreadsheetID   string
	CredentialsFile string

	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	BackfillEnabled bool

	ReadAttempts  int
	WriteAttempts int
	BaseBackoff   time.Duration
	MaxJitter     time.Duration

	LockRetries int
	LockBackoff time.Duration

	LogLevel string
	LogFile  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "delegsync.db"
	c.Backend = BackendSheets
	c.S3Prefix = "delegsync/"
	c.S3Region = "us-east-1"
	c.BackfillEnabled = true
	c.ReadAttempts = 5
	c.WriteAttempts = 3
	c.BaseBackoff = time.Second
	c.MaxJitter = 500 * time.Millisecond
	c.LockRetries = 3
	c.LockBackoff = 100 * time.Millisecond
	c.LogLevel = "info"
}

// Validate checks the settings a cycle cannot run without. A missing dataset
// reference is reported as a configuration error of kind missing_dataset.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSheets:
		if strings.TrimSpace(c.SpreadsheetID) == "" {
			return common.NewConfigError(common.ConfigMissingDataset, "spreadsheet-id is not set", nil)
		}
	case BackendS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			return common.NewConfigError(common.ConfigMissingDataset, "s3-bucket is not set", nil)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", common.ErrValidation, c.Backend)
	}

	var errs []error
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.ReadAttempts < 1 || c.WriteAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be positive"))
	}
	if c.BaseBackoff < 0 || c.MaxJitter < 0 || c.LockBackoff < 0 {
		errs = append(errs, errors.New("backoff durations must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrValidation, errors.Join(errs...))
	}
	return nil
}

// RegisterFlags defines one flag per configuration key on fs, defaulted from
// LoadDefaults.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.String("database", d.DatabasePath, "path to the local SQLite database")
	fs.String("device-id", d.DeviceID, "identifier of this device (generated when empty)")
	fs.String("backend", d.Backend, "remote backend: sheets or s3")
	fs.String("spreadsheet-id", d.SpreadsheetID, "Google Sheets spreadsheet id")
	fs.String("credentials-file", d.CredentialsFile, "Google service account credentials file")
	fs.String("s3-bucket", d.S3Bucket, "bucket holding the sheet objects")
	fs.String("s3-prefix", d.S3Prefix, "object key prefix")
	fs.String("s3-region", d.S3Region, "bucket region")
	fs.String("s3-endpoint", d.S3Endpoint, "custom S3 endpoint (MinIO etc.)")
	fs.String("s3-access-key", d.S3AccessKey, "static access key")
	fs.String("s3-secret-key", d.S3SecretKey, "static secret key")
	fs.Bool("backfill", d.BackfillEnabled, "write generated identifiers back to remote rows")
	fs.Int("read-attempts", d.ReadAttempts, "attempts for rate-limited remote reads")
	fs.Int("write-attempts", d.WriteAttempts, "attempts for rate-limited remote writes")
	fs.Duration("base-backoff", d.BaseBackoff, "base of the exponential backoff")
	fs.Duration("max-jitter", d.MaxJitter, "upper bound of the random jitter added to each backoff")
	fs.Int("lock-retries", d.LockRetries, "attempts when the local database is locked")
	fs.Duration("lock-backoff", d.LockBackoff, "linear backoff step for local lock retries")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
	fs.String("log-file", d.LogFile, "write JSON logs to this rotating file")
}

// LoadConfig constructs a Config, applies defaults, then overlays the config
// file at path (when not empty), DELEGSYNC_* environment variables and the
// flags in fs (when not nil). Later sources take precedence over earlier ones.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	var d Config
	d.LoadDefaults()

	v := viper.New()
	setDefaults(v, &d)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	return &Config{
		DatabasePath:    v.GetString("database"),
		DeviceID:        v.GetString("device-id"),
		Backend:         strings.ToLower(v.GetString("backend")),
		SpreadsheetID:   v.GetString("spreadsheet-id"),
		CredentialsFile: v.GetString("credentials-file"),
		S3Bucket:        v.GetString("s3-bucket"),
		S3Prefix:        v.GetString("s3-prefix"),
		S3Region:        v.GetString("s3-region"),
		S3Endpoint:      v.GetString("s3-endpoint"),
		S3AccessKey:     v.GetString("s3-access-key"),
		S3SecretKey:     v.GetString("s3-secret-key"),
		BackfillEnabled: v.GetBool("backfill"),
		ReadAttempts:    v.GetInt("read-attempts"),
		WriteAttempts:   v.GetInt("write-attempts"),
		BaseBackoff:     v.GetDuration("base-backoff"),
		MaxJitter:       v.GetDuration("max-jitter"),
		LockRetries:     v.GetInt("lock-retries"),
		LockBackoff:     v.GetDuration("lock-backoff"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database", d.DatabasePath)
	v.SetDefault("device-id", d.DeviceID)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("spreadsheet-id", d.SpreadsheetID)
	v.SetDefault("credentials-file", d.CredentialsFile)
	v.SetDefault("s3-bucket", d.S3Bucket)
	v.SetDefault("s3-prefix", d.S3Prefix)
	v.SetDefault("s3-region", d.S3Region)
	v.SetDefault("s3-endpoint", d.S3Endpoint)
	v.SetDefault("s3-access-key", d.S3AccessKey)
	v.SetDefault("s3-secret-key", d.S3SecretKey)
	v.SetDefault("backfill", d.BackfillEnabled)
	v.SetDefault("read-attempts", d.ReadAttempts)
	v.SetDefault("write-attempts", d.WriteAttempts)
	v.SetDefault("base-backoff", d.BaseBackoff)
	v.SetDefault("max-jitter", d.MaxJitter)
	v.SetDefault("lock-retries", d.LockRetries)
	v.SetDefault("lock-backoff", d.LockBackoff)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-file", d.LogFile)
}
