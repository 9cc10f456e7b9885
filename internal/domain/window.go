package domain

import "time"

// SlotLength is the fixed duration of every maintenance reservation.
const SlotLength = time.Hour

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewSlot returns the one-hour window starting at start, normalized to UTC.
func NewSlot(start time.Time) Window {
	s := start.UTC()
	return Window{Start: s, End: s.Add(SlotLength)}
}

// Overlaps reports whether w and other share any instant.
// Windows that only touch (w.End == other.Start) do not overlap.
func (w Window) Overlaps(other Window) bool {
	return IsBetween(w.Start, w.End, other.Start, other.End)
}

// Day returns the calendar day of w.Start in loc, truncated to midnight.
func (w Window) Day(loc *time.Location) time.Time {
	return StartOfDay(w.Start, loc)
}

// IsBetween reports whether the half-open intervals [candStart, candEnd) and
// [exStart, exEnd) intersect. Empty intervals never intersect anything.
func IsBetween(candStart, candEnd, exStart, exEnd time.Time) bool {
	return candStart.Before(exEnd) && exStart.Before(candEnd)
}

// StartOfDay returns midnight of t's calendar day as observed in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}
