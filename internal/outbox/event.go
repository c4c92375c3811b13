package outbox

// Event is the domain event envelope written to the outbox table. The Kafka
// topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Booking lifecycle event types.
const (
	EventBookingCreated   = "booking.created.v1"
	EventBookingConfirmed = "booking.confirmed.v1"
	EventBookingCancelled = "booking.cancelled.v1"
)
