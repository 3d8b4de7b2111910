package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotFound        = errors.New("note not found")
	ErrEmptyID         = errors.New("note ID cannot be empty")
	ErrSelfLink        = errors.New("note cannot link to itself")
	ErrTagExists       = errors.New("tag already exists")
	ErrTagNotFound     = errors.New("tag not found")
	ErrEmptyTag        = errors.New("tag name cannot be empty")
	ErrCorrupt         = errors.New("stored data is corrupt")
	ErrNoBackup        = errors.New("no backup available")
	ErrReadOnly        = errors.New("repository is in read-only mode")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// LoadError is returned when persisted data cannot be turned back into notes.
// The application is expected to offer a backup or an empty store instead of
// giving up.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether a backup or a fresh store can replace the data.
// Corrupt payloads are recoverable; I/O and connectivity failures are not.
func (e *LoadError) Recoverable() bool {
	return errors.Is(e.Err, ErrCorrupt)
}

// Corrupt wraps err as a recoverable load error for source.
func Corrupt(source string, err error) error {
	return &LoadError{Source: source, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
}
