package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/greenthumb-app/greenthumb/internal/availability"
	"github.com/greenthumb-app/greenthumb/internal/interval"
	"github.com/greenthumb-app/greenthumb/internal/model"
)

// Policy selects the status a booking is created in.
type Policy string

const (
	// PolicyDirectConfirm inserts the booking as confirmed: the create action
	// itself is the confirmation step.
	PolicyDirectConfirm Policy = "direct-confirm"
	// PolicyRequestHold inserts as pending, expecting a later confirm call
	// from an external approval step.
	PolicyRequestHold Policy = "request-hold"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyDirectConfirm, PolicyRequestHold:
		return Policy(s), nil
	case "":
		return PolicyRequestHold, nil
	default:
		return "", fmt.Errorf("unknown booking policy %q", s)
	}
}

// ResourceLookup resolves a resource's ownership and listing state. It is an
// external collaborator from the engine's point of view.
type ResourceLookup interface {
	// Lookup returns ErrResourceNotFound when no such resource exists.
	Lookup(ctx context.Context, resourceID string) (model.Resource, error)
}

// Store is the booking persistence contract. Insert must be atomic with
// respect to the no-overlap invariant: when a concurrent active booking
// overlaps, it returns ErrSlotConflict and persists nothing. Update runs
// apply under a row lock in one transaction; apply reports whether the
// booking changed.
type Store interface {
	Insert(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id string) (model.Booking, error)
	Update(ctx context.Context, id string, apply func(b *model.Booking) (bool, error)) (model.Booking, error)
	ListActive(ctx context.Context, resourceID string) ([]model.Booking, error)
	ListActiveOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]model.Booking, error)
}

// Ledger is the authoritative state machine and single point of mutation for
// bookings. All writers go through it.
type Ledger struct {
	store     Store
	resources ResourceLookup
	expander  *availability.Expander
	loc       *time.Location
	now       func() time.Time
}

func NewLedger(store Store, resources ResourceLookup, expander *availability.Expander, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{
		store:     store,
		resources: resources,
		expander:  expander,
		loc:       loc,
		now:       time.Now,
	}
}

type CreateRequest struct {
	ResourceID  string
	RequesterID string
	Start       time.Time
	End         time.Time
	Comment     string
	Policy      Policy
}

// Create validates the request against declared availability and existing
// active bookings, then inserts. Each precondition is hard; the first failure
// wins. The advisory conflict scan gives a precise error up front, but the
// storage layer's insert is the authoritative race arbiter: two concurrent
// overlapping creates resolve so that exactly one succeeds.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	candidate := interval.Interval{Start: req.Start, End: req.End}
	if req.Start.IsZero() || req.End.IsZero() || !candidate.Valid() {
		return model.Booking{}, ErrInvalidInterval
	}

	res, err := l.resources.Lookup(ctx, req.ResourceID)
	if err != nil {
		return model.Booking{}, err
	}
	if !res.Listed {
		return model.Booking{}, ErrResourceNotFound
	}
	if req.RequesterID == res.OwnerID {
		return model.Booking{}, ErrSelfBooking
	}

	occurrences, err := l.expander.Expand(ctx, res, l.dateRangeCovering(candidate))
	if err != nil {
		return model.Booking{}, fmt.Errorf("expand availability: %w", err)
	}
	if !IsCoverable(candidate, occurrences) {
		return model.Booking{}, ErrOutsideAvailability
	}

	existing, err := l.store.ListActiveOverlapping(ctx, req.ResourceID, req.Start, req.End)
	if err != nil {
		return model.Booking{}, fmt.Errorf("scan active bookings: %w", err)
	}
	if HasConflict(candidate, existing) {
		return model.Booking{}, ErrSlotConflict
	}

	status := model.StatusPending
	if req.Policy == PolicyDirectConfirm {
		status = model.StatusConfirmed
	}
	b := model.Booking{
		ID:          uuid.NewString(),
		ResourceID:  req.ResourceID,
		RequesterID: req.RequesterID,
		Start:       req.Start,
		End:         req.End,
		Status:      status,
		Comment:     req.Comment,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.store.Insert(ctx, &b); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// Confirm moves a pending booking to confirmed. Confirming from any other
// state is ErrInvalidTransition.
func (l *Ledger) Confirm(ctx context.Context, bookingID string) (model.Booking, error) {
	return l.store.Update(ctx, bookingID, func(b *model.Booking) (bool, error) {
		if b.Status != model.StatusPending {
			return false, ErrInvalidTransition
		}
		b.Status = model.StatusConfirmed
		return true, nil
	})
}

// Cancel moves a pending or confirmed booking to cancelled and frees its
// interval. Cancelling an already-cancelled booking is a no-op returning the
// same terminal record.
func (l *Ledger) Cancel(ctx context.Context, bookingID string) (model.Booking, error) {
	return l.store.Update(ctx, bookingID, func(b *model.Booking) (bool, error) {
		if b.Status == model.StatusCancelled {
			return false, nil
		}
		at := l.now().UTC()
		b.Status = model.StatusCancelled
		b.CancelledAt = &at
		return true, nil
	})
}

// ListActive returns the resource's bookings in pending or confirmed status.
func (l *Ledger) ListActive(ctx context.Context, resourceID string) ([]model.Booking, error) {
	return l.store.ListActive(ctx, resourceID)
}

// ListActiveBetween returns active bookings overlapping [start, end), for
// callers that mask occupied slots.
func (l *Ledger) ListActiveBetween(ctx context.Context, resourceID string, start, end time.Time) ([]model.Booking, error) {
	return l.store.ListActiveOverlapping(ctx, resourceID, start, end)
}

// ExpandOccurrences exposes the expander behind the same resource checks the
// create path uses.
func (l *Ledger) ExpandOccurrences(ctx context.Context, resourceID string, r availability.DateRange) ([]model.Occurrence, error) {
	res, err := l.resources.Lookup(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !res.Listed {
		return nil, ErrResourceNotFound
	}
	return l.expander.Expand(ctx, res, r)
}

// dateRangeCovering returns the smallest civil date range whose days cover
// the candidate interval in the engine's reference location.
func (l *Ledger) dateRangeCovering(iv interval.Interval) availability.DateRange {
	start := iv.Start.In(l.loc)
	end := iv.End.In(l.loc)
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, l.loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, l.loc)
	if end.After(to) {
		to = to.AddDate(0, 0, 1)
	}
	return availability.DateRange{From: from, To: to}
}
