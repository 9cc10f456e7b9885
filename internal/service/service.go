// Package service contains the business logic for the maintenance booking API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetcare/maintenance-booking/internal/domain"
	"github.com/fleetcare/maintenance-booking/internal/events"
)

// Clock is the single authoritative source of "now" for every time guard.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the server's wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Publisher delivers domain events. *events.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// wrap prefixes err with op. Errors that already belong to a domain category
// pass through; anything else comes from the persistence layer and is
// classified as domain.ErrStorage.
func wrap(op string, err error) error {
	for _, known := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrInvalidState,
		domain.ErrStorage,
	} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
