package booking

import (
	"github.com/greenthumb-app/greenthumb/internal/interval"
	"github.com/greenthumb-app/greenthumb/internal/model"
)

// IsCoverable reports whether the candidate fits entirely inside one single
// occurrence. Adjacent occurrences are not merged: a request straddling two
// of them is rejected even when the gap between them is zero-width.
func IsCoverable(candidate interval.Interval, occurrences []model.Occurrence) bool {
	for _, o := range occurrences {
		if interval.Contains(interval.Interval{Start: o.Start, End: o.End}, candidate) {
			return true
		}
	}
	return false
}

// HasConflict reports whether the candidate overlaps any active booking.
// Cancelled bookings never block.
func HasConflict(candidate interval.Interval, existing []model.Booking) bool {
	for _, b := range existing {
		if !b.Status.Active() {
			continue
		}
		if interval.Overlaps(candidate, interval.Interval{Start: b.Start, End: b.End}) {
			return true
		}
	}
	return false
}
