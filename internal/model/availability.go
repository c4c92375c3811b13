package model

import "time"

// AvailabilityTemplate is one recurring weekly slot: it repeats every week on
// Weekday while Active. Clock times are stored as minutes after local
// midnight, so a template is timezone-agnostic until it is expanded.
type AvailabilityTemplate struct {
	ID          int64
	ResourceID  string
	Weekday     int // ISO: 1=Monday .. 7=Sunday
	StartMinute int
	EndMinute   int
	Active      bool
}

// AvailabilityWindow is one literal, absolute bookable window. Windows are
// replaced wholesale when an owner saves their availability.
type AvailabilityWindow struct {
	ID         int64
	ResourceID string
	Start      time.Time
	End        time.Time
}

// Occurrence is a concrete bookable window computed from declared
// availability for a query range. It is never persisted.
type Occurrence struct {
	ResourceID string
	Start      time.Time
	End        time.Time
}
