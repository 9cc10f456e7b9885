// Package lock serializes check-then-write sequences that must not interleave,
// such as the conflict check and insert of two bookings for the same car on
// the same day. Keys are opaque strings chosen by the caller.
package lock

import (
	"context"
	"errors"
	"slices"
)

// ErrNotAcquired is returned when a lock could not be obtained before the
// wait deadline or the context expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires a set of keys atomically from the caller's point of view.
// The returned release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// normalize sorts and de-duplicates keys. Every caller taking keys in the
// same order rules out lock-order deadlocks.
func normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}
