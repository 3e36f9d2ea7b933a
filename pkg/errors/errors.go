package errors

import "errors"

// Sentinels for domain errors.
var (
	// ErrNotFound indicates an unknown worker, task, or session.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the entity is already in the requested state,
	// e.g. canceling a task the engine has already closed.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates a malformed or incomplete inbound payload.
	ErrValidation = errors.New("validation error")
	// ErrUnavailable indicates an upstream collaborator could not be reached.
	ErrUnavailable = errors.New("service unavailable")
)

// Is reports whether err is one of the sentinels.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
