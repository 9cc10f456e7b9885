package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input is missing or
// malformed (e.g. empty plate, unparseable reservation day).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a booking would overlap an existing,
// non-cancelled reservation of the same operator or car.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a lifecycle transition is not allowed from
// the entity's current state. Handlers should map this to HTTP 409.
var ErrInvalidState = errors.New("invalid state")

// ErrStorage is returned when the persistence layer fails or reports that a
// write had no effect. No partial state is left behind, so the whole
// operation may be retried.
var ErrStorage = errors.New("storage error")

// Refined sentinels. Each wraps one of the categories above, so callers can
// match either the precise reason or the category with errors.Is.
var (
	ErrOperatorNotFound = fmt.Errorf("%w: operator", ErrNotFound)

	ErrPlateMismatch = fmt.Errorf("%w: plate does not match the reserved car", ErrValidation)

	ErrOperatorBusy = fmt.Errorf("%w: operator busy", ErrConflict)
	ErrCarBusy      = fmt.Errorf("%w: car busy", ErrConflict)

	ErrCannotCancelActive    = fmt.Errorf("%w: cannot cancel active", ErrInvalidState)
	ErrCannotCancelCompleted = fmt.Errorf("%w: cannot cancel completed", ErrInvalidState)
	ErrAlreadyCancelled      = fmt.Errorf("%w: already cancelled", ErrInvalidState)
	ErrCannotCancelPast      = fmt.Errorf("%w: cannot cancel past reservation", ErrInvalidState)
	ErrTicketClosed          = fmt.Errorf("%w: ticket already closed", ErrInvalidState)
)
