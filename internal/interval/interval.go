package interval

import "time"

// Interval is a half-open time interval [Start, End). Half-open semantics let
// back-to-back bookings share an endpoint without counting as an overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval is non-empty (Start strictly before End).
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether a and b share any instant. Intervals that merely
// touch at an endpoint (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner Interval) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// OverlapsAny reports whether iv overlaps at least one of the given intervals.
func OverlapsAny(iv Interval, others []Interval) bool {
	for _, o := range others {
		if Overlaps(iv, o) {
			return true
		}
	}
	return false
}
