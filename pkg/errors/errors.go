// Package errors defines the sentinel errors shared across dlkeep together with
// small helpers for attaching context to them. Callers classify failures with
// the standard library's errors.Is.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Common error types.
var (
	// Filesystem errors. Fatal to a batch and never retried.
	ErrFilesystem         = fmt.Errorf("filesystem error")
	ErrFileAlreadyExists  = fmt.Errorf("file already exists")
	ErrInvalidProductID   = fmt.Errorf("invalid product id")
	ErrInvalidPath        = fmt.Errorf("invalid path")
	ErrUnsafeArchiveEntry = fmt.Errorf("archive entry escapes destination")

	// Transfer errors.
	ErrConnection              = fmt.Errorf("connection failed")
	ErrRetriesExhausted        = fmt.Errorf("max retry count reached")
	ErrStreamInterrupted       = fmt.Errorf("stream interrupted")
	ErrStreamRestartsExhausted = fmt.Errorf("max stream restart count reached")

	// Manifest errors. Detected before any download begins.
	ErrManifest      = fmt.Errorf("invalid manifest")
	ErrEmptyManifest = fmt.Errorf("manifest document is empty")

	// Orchestration errors.
	ErrSyncInProgress = fmt.Errorf("a catalog sync operation is already running")
	ErrProductBusy    = fmt.Errorf("product is already being downloaded")

	// Config errors.
	ErrEmptyConfigPath          = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath        = fmt.Errorf("invalid config file path")
	ErrConfigParse              = fmt.Errorf("failed to parse config")
	ErrConfigValidation         = fmt.Errorf("invalid configuration")
	ErrConfigEncode             = fmt.Errorf("failed to encode config")
	ErrConfigDirectory          = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate         = fmt.Errorf("failed to create config file")
	ErrConfigFileExists         = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigFileRename         = fmt.Errorf("failed to rename temporary config file")
	ErrUnsupportedConfigVersion = fmt.Errorf("unsupported config version")
	ErrUnknownConfigKey         = fmt.Errorf("unknown configuration key")
	ErrInvalidBoolValue         = fmt.Errorf("invalid boolean value")
	ErrInvalidDurationValue     = fmt.Errorf("invalid duration value")
	ErrInvalidIntValue          = fmt.Errorf("invalid integer value")
	ErrNegativeValue            = fmt.Errorf("value cannot be negative")
	ErrInvalidLogLevel          = fmt.Errorf("invalid log level")
	ErrInvalidLogFormat         = fmt.Errorf("invalid log format")

	// CLI errors.
	ErrInvalidCookie = fmt.Errorf("invalid cookie, expected NAME=VALUE")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapKind wraps err with a formatted message and tags it with kind, so that
// errors.Is matches both the kind and the underlying cause.
func WrapKind(kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), kind, err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidLogFormatWithDetails is a helper to create a wrapped error with the invalid format and valid options.
func ErrInvalidLogFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidLogFormat, format)
}

// ErrUnknownConfigKeyWithName creates an error for an unsupported configuration key.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}

// ErrNegativeValueWithName creates an error for a setting that must not be negative.
func ErrNegativeValueWithName(key string) error {
	return fmt.Errorf("%s: %w", key, ErrNegativeValue)
}
