package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// DuplicateError reports a uniqueness violation at the storage layer.
// Field names the offending column when it can be recovered.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("duplicate value for %s", e.Field)
	}
	return "duplicate value"
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate reports whether err wraps a DuplicateError and returns it
func IsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
