package model

import "time"

// BookingStatus is the booking lifecycle state. Cancelled is terminal;
// bookings are never physically deleted.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Active reports whether a booking in this status counts toward conflicts.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID          string
	ResourceID  string
	RequesterID string
	Start       time.Time
	End         time.Time
	Status      BookingStatus
	Comment     string
	CancelledAt *time.Time
	CreatedAt   time.Time
}
