package errors

import (
	"errors"
	"fmt"
)

// Kind classifies the errors the resolution pipeline can produce.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindInvalidEncoding
	KindMalformedShortcut
	KindUnsupportedExtension
	KindResolutionTimeout
	KindConfig
	KindWatcher
)

// String returns a string representation of the error kind
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindPermissionDenied:
		return "permission-denied"
	case KindInvalidEncoding:
		return "invalid-encoding"
	case KindMalformedShortcut:
		return "malformed-shortcut"
	case KindUnsupportedExtension:
		return "unsupported-extension"
	case KindResolutionTimeout:
		return "resolution-timeout"
	case KindConfig:
		return "config"
	case KindWatcher:
		return "watcher"
	default:
		return "unknown"
	}
}

// AppError represents a structured application error
type AppError struct {
	Kind      Kind
	Operation string
	Path      string
	Message   string
	Err       error
}

func (e *AppError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error in %s [%s]: %s", e.Kind, e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Operation, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two AppErrors by kind alone.
func (e *AppError) Is(target error) bool {
	var ae *AppError
	if errors.As(target, &ae) {
		return ae.Kind == e.Kind
	}
	return false
}

// KindOf extracts the kind from any error in the chain.
// Plain errors classify as KindUnknown.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// New creates an AppError of an arbitrary kind.
func New(kind Kind, operation, path, message string, err error) *AppError {
	return &AppError{
		Kind:      kind,
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// NewNotFoundError creates a not-found error for a path
func NewNotFoundError(operation, path string, err error) *AppError {
	return New(KindNotFound, operation, path, "path does not exist", err)
}

// NewPermissionError creates a permission-denied error for a path
func NewPermissionError(operation, path string, err error) *AppError {
	return New(KindPermissionDenied, operation, path, "access denied", err)
}

// NewEncodingError creates an invalid-encoding error for a path
func NewEncodingError(operation, path, message string) *AppError {
	return New(KindInvalidEncoding, operation, path, message, nil)
}

// NewShortcutError creates a malformed-shortcut parse error
func NewShortcutError(operation, path, message string, err error) *AppError {
	return New(KindMalformedShortcut, operation, path, message, err)
}

// NewLookupError creates an unsupported-extension lookup error
func NewLookupError(operation, path, message string) *AppError {
	return New(KindUnsupportedExtension, operation, path, message, nil)
}

// NewTimeoutError creates a resolution-timeout error for a path
func NewTimeoutError(operation, path string) *AppError {
	return New(KindResolutionTimeout, operation, path, "resolution budget exceeded", nil)
}

// NewConfigError creates a new configuration error
func NewConfigError(operation, message string, err error) *AppError {
	return New(KindConfig, operation, "", message, err)
}

// NewWatcherError creates a new watcher error
func NewWatcherError(operation, path, message string, err error) *AppError {
	return New(KindWatcher, operation, path, message, err)
}
