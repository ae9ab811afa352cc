// Package apperr holds the error categories shared by every domain package.
//
// Domain sentinels wrap exactly one category so that transports can map an
// error to a status code with errors.Is, without knowing the domain.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input the caller can fix and retry.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a lookup that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that lost a race against a concurrent write.
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks an action the caller does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrRemote marks a failure of a backing store or broker.
	ErrRemote = errors.New("remote failure")
)

// New creates a sentinel error under the given category.
func New(category error, msg string) error {
	return fmt.Errorf("%w: %s", category, msg)
}

// Remote wraps a store failure so it matches both ErrRemote and the cause.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemote, err)
}

// Is reports whether err belongs to any of the given categories.
func Is(err error, categories ...error) bool {
	for _, c := range categories {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}
