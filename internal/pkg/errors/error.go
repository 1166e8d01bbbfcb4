// Package xerrors holds the sentinels shared across layers.
package xerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the backend has no row for the requested id.
	ErrNotFound = errors.New("resource not found")
	// ErrSessionExpired means the session record is gone from the store.
	ErrSessionExpired = errors.New("session expired or invalid")
)

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
