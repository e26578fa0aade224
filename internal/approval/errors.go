package approval

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Callers classify failures with errors.Is; the HTTP
// layer maps each class to a status code.
var (
	// ErrValidation is returned for malformed workflow, step or action input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for missing records. Ownership mismatches are
	// reported identically so callers cannot probe for existence.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the actor is not in the current
	// step's approver set.
	ErrUnauthorized = errors.New("not authorized")

	// ErrConflict is returned for delete-with-pending-approvals and for
	// concurrent double-actions on the same approval record.
	ErrConflict = errors.New("conflict")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func unauthorizedError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

func conflictError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
