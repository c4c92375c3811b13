package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/greenthumb-app/greenthumb/internal/booking"
	"github.com/greenthumb-app/greenthumb/internal/model"
	"github.com/greenthumb-app/greenthumb/internal/outbox"
	"github.com/greenthumb-app/greenthumb/libs/db"
)

// exclusionViolation is the Postgres error code raised when the bookings
// no-overlap exclusion constraint rejects an insert.
const exclusionViolation = "23P01"

// BookingRepository implements booking.Store on Postgres. A partial gist
// exclusion constraint over (resource_id, tstzrange(start_ts, end_ts)) on
// active rows makes the insert the race arbiter: of two concurrent
// overlapping creates, the second fails and surfaces as ErrSlotConflict.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

func (r *BookingRepository) Insert(ctx context.Context, b *model.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, resource_id, requester_id, start_ts, end_ts, status, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.ResourceID, b.RequesterID, b.Start, b.End, b.Status, b.Comment, b.CreatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return booking.ErrSlotConflict
		}
		return err
	}

	if err := r.insertEvent(ctx, tx, outbox.EventBookingCreated, *b); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, selectBooking+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	return b, err
}

// Update loads the booking under FOR UPDATE, applies the ledger's state
// machine closure and persists the result. When apply reports no change the
// row is left untouched and no event is emitted.
func (r *BookingRepository) Update(ctx context.Context, id string, apply func(b *model.Booking) (bool, error)) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := scanBooking(tx.QueryRow(ctx, selectBooking+` WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}

	changed, err := apply(&b)
	if err != nil {
		return model.Booking{}, err
	}
	if !changed {
		return b, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2, cancelled_at = $3
		WHERE id = $1
	`, b.ID, b.Status, b.CancelledAt)
	if err != nil {
		return model.Booking{}, err
	}

	eventType := ""
	switch b.Status {
	case model.StatusConfirmed:
		eventType = outbox.EventBookingConfirmed
	case model.StatusCancelled:
		eventType = outbox.EventBookingCancelled
	}
	if eventType != "" {
		if err := r.insertEvent(ctx, tx, eventType, b); err != nil {
			return model.Booking{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) ListActive(ctx context.Context, resourceID string) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, selectBooking+`
		WHERE resource_id = $1
			AND status IN ('pending', 'confirmed')
		ORDER BY start_ts ASC
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepository) ListActiveOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, selectBooking+`
		WHERE resource_id = $1
			AND status IN ('pending', 'confirmed')
			AND start_ts < $3
			AND end_ts > $2
		ORDER BY start_ts ASC
	`, resourceID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

const selectBooking = `
	SELECT id::text, resource_id::text, requester_id::text, start_ts, end_ts,
		status, COALESCE(comment, ''), cancelled_at, created_at
	FROM bookings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var b model.Booking
	var cancelledAt *time.Time
	err := row.Scan(
		&b.ID,
		&b.ResourceID,
		&b.RequesterID,
		&b.Start,
		&b.End,
		&b.Status,
		&b.Comment,
		&cancelledAt,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.CancelledAt = cancelledAt
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BookingRepository) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, b model.Booking) error {
	payload, err := json.Marshal(map[string]any{
		"booking_id":   b.ID,
		"resource_id":  b.ResourceID,
		"requester_id": b.RequesterID,
		"start_ts":     b.Start.UTC().Format(time.RFC3339),
		"end_ts":       b.End.UTC().Format(time.RFC3339),
		"status":       b.Status,
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}
