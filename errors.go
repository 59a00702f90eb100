package stashbox

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an object does not exist in the store
	ErrNotFound = errors.New("not found")
	// ErrValidation is the parent of every upload validation failure
	ErrValidation = errors.New("validation failed")
	// ErrNoFileSelected is returned when an upload carries an empty filename
	ErrNoFileSelected = fmt.Errorf("no selected file: %w", ErrValidation)
	// ErrInvalidFilename is returned when nothing usable survives sanitizing
	ErrInvalidFilename = fmt.Errorf("invalid filename: %w", ErrValidation)
	// ErrDisallowedExtension is returned when the extension is missing or not allowed
	ErrDisallowedExtension = fmt.Errorf("file type not allowed: %w", ErrValidation)
	// ErrPayloadTooLarge is returned when the declared size exceeds the configured maximum
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrPresignUnsupported is returned by stores that cannot produce shareable links
	ErrPresignUnsupported = errors.New("presigned links not supported")
	// ErrUnauthorized is returned when a signed link fails verification
	ErrUnauthorized = errors.New("unauthorized")
)

// StoreError wraps a failure reported by an ObjectStore. The message of the
// underlying error is passed through unchanged so it can be shown to users.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op + ": unknown store error"
	}
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError returns err wrapped in a StoreError, or nil when err is nil.
// An err that already is a StoreError is returned as is.
func NewStoreError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Key: key, Err: err}
}
