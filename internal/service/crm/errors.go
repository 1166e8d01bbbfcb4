// internal/service/crm/errors.go
package crm

import (
	"errors"
	"fmt"

	xerrors "minicrm-service/internal/pkg/errors"
)

// Validation failures. They never reach the repository.
var (
	ErrNameRequired         = errors.New("name is required")
	ErrUnknownStage         = errors.New("unknown pipeline stage")
	ErrInvalidContactType   = errors.New("invalid contact type")
	ErrInvalidAppointment   = errors.New("appointment needs a title and a date (YYYY-MM-DD)")
	ErrConfirmationRequired = errors.New("delete must be confirmed first")
	ErrNotAuthenticated     = errors.New("not authenticated")
)

// ErrNotFound is returned when a referenced customer is not in the snapshot.
var ErrNotFound = xerrors.ErrNotFound

// BackendError wraps any repository failure.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backend(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrInvalidContactType) ||
		errors.Is(err, ErrInvalidAppointment) ||
		errors.Is(err, ErrConfirmationRequired)
}

// IsBackend reports whether err came from the repository.
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
