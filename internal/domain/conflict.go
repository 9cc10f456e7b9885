package domain

import "time"

// HasConflict reports whether candidate overlaps any reservation in existing
// that starts on the same calendar day (in loc) and still occupies its slot.
// Cancelled reservations never conflict.
func HasConflict(candidate Window, existing []Reservation, loc *time.Location) bool {
	for _, r := range existing {
		if !r.Status.Occupies() {
			continue
		}
		if !SameDay(candidate.Start, r.StartTime, loc) {
			continue
		}
		if candidate.Overlaps(r.Window()) {
			return true
		}
	}
	return false
}
