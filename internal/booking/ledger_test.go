package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenthumb-app/greenthumb/internal/availability"
	"github.com/greenthumb-app/greenthumb/internal/interval"
	"github.com/greenthumb-app/greenthumb/internal/model"
)

// memStore mimics the storage layer, including the database's no-overlap
// guarantee on insert.
type memStore struct {
	bookings  map[string]model.Booking
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{bookings: make(map[string]model.Booking)}
}

func (s *memStore) Insert(ctx context.Context, b *model.Booking) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	candidate := interval.Interval{Start: b.Start, End: b.End}
	for _, other := range s.bookings {
		if other.ResourceID != b.ResourceID || !other.Status.Active() {
			continue
		}
		if interval.Overlaps(candidate, interval.Interval{Start: other.Start, End: other.End}) {
			return ErrSlotConflict
		}
	}
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) Get(ctx context.Context, id string) (model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (s *memStore) Update(ctx context.Context, id string, apply func(b *model.Booking) (bool, error)) (model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, ErrBookingNotFound
	}
	changed, err := apply(&b)
	if err != nil {
		return model.Booking{}, err
	}
	if changed {
		s.bookings[id] = b
	}
	return b, nil
}

func (s *memStore) ListActive(ctx context.Context, resourceID string) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ResourceID == resourceID && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) ListActiveOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]model.Booking, error) {
	candidate := interval.Interval{Start: start, End: end}
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ResourceID != resourceID || !b.Status.Active() {
			continue
		}
		if interval.Overlaps(candidate, interval.Interval{Start: b.Start, End: b.End}) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memResources struct {
	resources map[string]model.Resource
}

func (r *memResources) Lookup(ctx context.Context, resourceID string) (model.Resource, error) {
	res, ok := r.resources[resourceID]
	if !ok {
		return model.Resource{}, ErrResourceNotFound
	}
	return res, nil
}

type memTemplates struct {
	templates []model.AvailabilityTemplate
}

func (s *memTemplates) ActiveTemplates(ctx context.Context, resourceID string) ([]model.AvailabilityTemplate, error) {
	var out []model.AvailabilityTemplate
	for _, t := range s.templates {
		if t.ResourceID == resourceID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memWindows struct {
	windows []model.AvailabilityWindow
}

func (s *memWindows) WindowsIntersecting(ctx context.Context, resourceID string, from, to time.Time) ([]model.AvailabilityWindow, error) {
	var out []model.AvailabilityWindow
	for _, w := range s.windows {
		if w.ResourceID == resourceID && w.End.After(from) && w.Start.Before(to) {
			out = append(out, w)
		}
	}
	return out, nil
}

type fixture struct {
	ledger *Ledger
	store  *memStore
}

// newFixture wires a ledger over a gardener available Mondays 09:00-18:00 and
// a garden with one literal window on Tuesday 10:00-16:00.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	resources := &memResources{resources: map[string]model.Resource{
		"gardener-1": {ID: "gardener-1", OwnerID: "owner-1", Kind: model.KindGardener, Listed: true},
		"garden-1":   {ID: "garden-1", OwnerID: "owner-2", Kind: model.KindGarden, Listed: true},
		"delisted-1": {ID: "delisted-1", OwnerID: "owner-3", Kind: model.KindGardener, Listed: false},
	}}
	templates := &memTemplates{templates: []model.AvailabilityTemplate{
		{ResourceID: "gardener-1", Weekday: 1, StartMinute: 9 * 60, EndMinute: 18 * 60, Active: true},
	}}
	windows := &memWindows{windows: []model.AvailabilityWindow{
		{ResourceID: "garden-1", Start: at(10, 0).AddDate(0, 0, 1), End: at(16, 0).AddDate(0, 0, 1)},
	}}
	expander := availability.NewExpander(templates, windows)
	ledger := NewLedger(store, resources, expander, time.UTC)
	ledger.now = func() time.Time { return at(8, 0) }
	return &fixture{ledger: ledger, store: store}
}

func (f *fixture) create(t *testing.T, req CreateRequest) model.Booking {
	t.Helper()
	b, err := f.ledger.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return b
}

func TestCreatePendingByDefault(t *testing.T) {
	f := newFixture(t)

	b := f.create(t, CreateRequest{
		ResourceID:  "gardener-1",
		RequesterID: "user-1",
		Start:       at(10, 0),
		End:         at(12, 0),
		Comment:     "rose pruning",
	})

	if b.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", b.Status)
	}
	if b.ID == "" {
		t.Error("expected a generated booking id")
	}
	stored, err := f.store.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Comment != "rose pruning" {
		t.Errorf("stored comment = %q", stored.Comment)
	}
}

func TestCreateDirectConfirm(t *testing.T) {
	f := newFixture(t)

	b := f.create(t, CreateRequest{
		ResourceID:  "gardener-1",
		RequesterID: "user-1",
		Start:       at(10, 0),
		End:         at(12, 0),
		Policy:      PolicyDirectConfirm,
	})

	if b.Status != model.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", b.Status)
	}
}

func TestCreateInvalidInterval(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"zero start", time.Time{}, at(12, 0)},
		{"zero end", at(10, 0), time.Time{}},
		{"inverted", at(12, 0), at(10, 0)},
		{"zero length", at(10, 0), at(10, 0)},
	}
	for _, tc := range cases {
		_, err := f.ledger.Create(context.Background(), CreateRequest{
			ResourceID:  "gardener-1",
			RequesterID: "user-1",
			Start:       tc.start,
			End:         tc.end,
		})
		if !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("%s: err = %v, want ErrInvalidInterval", tc.name, err)
		}
	}
}

func TestCreateResourceChecks(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Create(context.Background(), CreateRequest{
		ResourceID: "nope", RequesterID: "user-1", Start: at(10, 0), End: at(11, 0),
	})
	if !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("unknown resource: err = %v, want ErrResourceNotFound", err)
	}

	// Delisted resources are indistinguishable from missing ones.
	_, err = f.ledger.Create(context.Background(), CreateRequest{
		ResourceID: "delisted-1", RequesterID: "user-1", Start: at(10, 0), End: at(11, 0),
	})
	if !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("delisted resource: err = %v, want ErrResourceNotFound", err)
	}

	_, err = f.ledger.Create(context.Background(), CreateRequest{
		ResourceID: "gardener-1", RequesterID: "owner-1", Start: at(10, 0), End: at(11, 0),
	})
	if !errors.Is(err, ErrSelfBooking) {
		t.Errorf("owner booking own resource: err = %v, want ErrSelfBooking", err)
	}
}

func TestCreateOutsideAvailability(t *testing.T) {
	f := newFixture(t)

	// Monday template runs 09:00-18:00; 18:00-19:00 spills past it.
	_, err := f.ledger.Create(context.Background(), CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-1", Start: at(17, 0), End: at(19, 0),
	})
	if !errors.Is(err, ErrOutsideAvailability) {
		t.Errorf("spilling interval: err = %v, want ErrOutsideAvailability", err)
	}

	// Tuesday has no template at all.
	_, err = f.ledger.Create(context.Background(), CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-1",
		Start: at(10, 0).AddDate(0, 0, 1), End: at(11, 0).AddDate(0, 0, 1),
	})
	if !errors.Is(err, ErrOutsideAvailability) {
		t.Errorf("day without availability: err = %v, want ErrOutsideAvailability", err)
	}
}

func TestCreateGardenLiteralWindow(t *testing.T) {
	f := newFixture(t)

	b := f.create(t, CreateRequest{
		ResourceID:  "garden-1",
		RequesterID: "user-1",
		Start:       at(11, 0).AddDate(0, 0, 1),
		End:         at(13, 0).AddDate(0, 0, 1),
	})
	if b.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", b.Status)
	}

	_, err := f.ledger.Create(context.Background(), CreateRequest{
		ResourceID:  "garden-1",
		RequesterID: "user-2",
		Start:       at(15, 0).AddDate(0, 0, 1),
		End:         at(17, 0).AddDate(0, 0, 1),
	})
	if !errors.Is(err, ErrOutsideAvailability) {
		t.Errorf("past window end: err = %v, want ErrOutsideAvailability", err)
	}
}

func TestCreateSlotConflict(t *testing.T) {
	f := newFixture(t)
	f.create(t, CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-1", Start: at(10, 0), End: at(12, 0),
	})

	_, err := f.ledger.Create(context.Background(), CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-2", Start: at(11, 0), End: at(13, 0),
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Errorf("overlapping create: err = %v, want ErrSlotConflict", err)
	}

	// Back-to-back is fine: intervals are half-open.
	f.create(t, CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-2", Start: at(12, 0), End: at(13, 0),
	})
}

func TestCreateCancelledBookingFreesSlot(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-1", Start: at(10, 0), End: at(12, 0),
	})
	if _, err := f.ledger.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	f.create(t, CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-2", Start: at(10, 0), End: at(12, 0),
	})
}

func TestCreateLosesInsertRace(t *testing.T) {
	f := newFixture(t)
	// The advisory scan sees nothing, but a concurrent writer wins the insert:
	// the storage layer surfaces its constraint as a conflict.
	f.store.insertErr = ErrSlotConflict

	_, err := f.ledger.Create(context.Background(), CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-1", Start: at(10, 0), End: at(12, 0),
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Errorf("lost race: err = %v, want ErrSlotConflict", err)
	}
}

func TestConfirmTransitions(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-1", Start: at(10, 0), End: at(12, 0),
	})

	confirmed, err := f.ledger.Confirm(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", confirmed.Status)
	}

	if _, err := f.ledger.Confirm(context.Background(), b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("confirm twice: err = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.ledger.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.ledger.Confirm(context.Background(), b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("confirm cancelled: err = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.ledger.Confirm(context.Background(), "missing"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("confirm missing: err = %v, want ErrBookingNotFound", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, CreateRequest{
		ResourceID: "gardener-1", RequesterID: "user-1", Start: at(10, 0), End: at(12, 0),
	})

	first, err := f.ledger.Cancel(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if first.Status != model.StatusCancelled {
		t.Errorf("status = %q, want cancelled", first.Status)
	}
	if first.CancelledAt == nil {
		t.Fatal("expected CancelledAt to be set")
	}

	second, err := f.ledger.Cancel(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if second.CancelledAt == nil || !second.CancelledAt.Equal(*first.CancelledAt) {
		t.Error("second cancel must not touch the record")
	}

	if _, err := f.ledger.Cancel(context.Background(), "missing"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("cancel missing: err = %v, want ErrBookingNotFound", err)
	}
}

func TestExpandOccurrencesChecksResource(t *testing.T) {
	f := newFixture(t)
	monday := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	week := availability.DateRange{From: monday, To: monday.AddDate(0, 0, 7)}

	occurrences, err := f.ledger.ExpandOccurrences(context.Background(), "gardener-1", week)
	if err != nil {
		t.Fatalf("ExpandOccurrences: %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occurrences))
	}

	if _, err := f.ledger.ExpandOccurrences(context.Background(), "delisted-1", week); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("delisted: err = %v, want ErrResourceNotFound", err)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyRequestHold {
		t.Errorf("empty policy: got %q, %v", p, err)
	}
	if p, err := ParsePolicy("direct-confirm"); err != nil || p != PolicyDirectConfirm {
		t.Errorf("direct-confirm: got %q, %v", p, err)
	}
	if _, err := ParsePolicy("yolo"); err == nil {
		t.Error("unknown policy should error")
	}
}
