// Package common defines shared sentinel errors and the error taxonomy used
// across the local store, the remote adapters and the sync services. Callers
// should use errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrDatabaseLocked marks a transient "database is locked" condition of
	// the local store. It is retried at the persistence layer only.
	ErrDatabaseLocked = errors.New("database is locked")

	// Remote transient errors.
	ErrRateLimited        = errors.New("remote rate limit exceeded")
	ErrRemoteBusy         = errors.New("remote object modified concurrently")
	ErrRateLimitExhausted = errors.New("remote rate limit retries exhausted")

	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("remote configuration error")

	// ErrValidation marks a row that cannot be processed (no date, unknown delegate...).
	ErrValidation = errors.New("validation error")
)

// ConfigErrorKind classifies fatal, non-retryable remote setup problems.
type ConfigErrorKind string

const (
	ConfigMissingDataset     ConfigErrorKind = "missing_dataset"
	ConfigInvalidCredentials ConfigErrorKind = "invalid_credentials"
	ConfigAPIDisabled        ConfigErrorKind = "api_disabled"
	ConfigNotFound           ConfigErrorKind = "not_found"
	ConfigPermissionDenied   ConfigErrorKind = "permission_denied"
)

// ConfigError is a configuration-class failure. It is never retried.
type ConfigError struct {
	Kind   ConfigErrorKind
	Detail string
	Err    error
}

func NewConfigError(kind ConfigErrorKind, detail string, err error) *ConfigError {
	return &ConfigError{Kind: kind, Detail: detail, Err: err}
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("configuration error (%s)", e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfiguration) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// IsTransient reports whether err is a remote condition worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrRemoteBusy)
}

// ConfigKind returns the kind of the ConfigError in err's chain, if any.
func ConfigKind(err error) (ConfigErrorKind, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
