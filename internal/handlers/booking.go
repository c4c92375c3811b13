package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/greenthumb-app/greenthumb/internal/availability"
	"github.com/greenthumb-app/greenthumb/internal/booking"
	"github.com/greenthumb-app/greenthumb/internal/model"
)

// BookingHandler exposes the booking engine over HTTP. Caller identity is
// resolved upstream and arrives as the X-User-Id header.
type BookingHandler struct {
	ledger *booking.Ledger
	logger *slog.Logger
	loc    *time.Location
}

func NewBookingHandler(ledger *booking.Ledger, logger *slog.Logger, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{ledger: ledger, logger: logger, loc: loc}
}

// Bookings dispatches the bookings collection endpoint: POST creates, GET
// lists a resource's active bookings.
func (h *BookingHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createBookingRequest struct {
	ResourceID string `json:"resource_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Comment    string `json:"comment"`
	Policy     string `json:"policy"`
}

type bookingItem struct {
	BookingID   string `json:"booking_id"`
	ResourceID  string `json:"resource_id"`
	RequesterID string `json:"requester_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Status      string `json:"status"`
	Comment     string `json:"comment,omitempty"`
	CancelledAt string `json:"cancelled_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type occurrenceItem struct {
	ResourceID string `json:"resource_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	callerID := requesterID(r)
	if callerID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ResourceID = strings.TrimSpace(req.ResourceID)
	if req.ResourceID == "" {
		http.Error(w, "resource_id is required", http.StatusBadRequest)
		return
	}

	policy, err := booking.ParsePolicy(strings.TrimSpace(req.Policy))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Unparseable timestamps are an invalid interval, same as start >= end.
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}

	b, err := h.ledger.Create(r.Context(), booking.CreateRequest{
		ResourceID:  req.ResourceID,
		RequesterID: callerID,
		Start:       startTime,
		End:         endTime,
		Comment:     strings.TrimSpace(req.Comment),
		Policy:      policy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingItem(b))
}

type bookingIDRequest struct {
	BookingID string `json:"booking_id"`
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookingIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	b, err := h.ledger.Confirm(r.Context(), req.BookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookingIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	b, err := h.ledger.Cancel(r.Context(), req.BookingID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resourceID := strings.TrimSpace(r.URL.Query().Get("resource_id"))
	if resourceID == "" {
		http.Error(w, "resource_id is required", http.StatusBadRequest)
		return
	}

	bookings, err := h.ledger.ListActive(r.Context(), resourceID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, items)
}

type occupiedItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Occupied lists the active booking intervals on a resource so callers can
// mask taken slots without seeing who booked them.
func (h *BookingHandler) Occupied(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resourceID := strings.TrimSpace(r.URL.Query().Get("resource_id"))
	if resourceID == "" {
		http.Error(w, "resource_id is required", http.StatusBadRequest)
		return
	}

	var bookings []model.Booking
	var err error
	fromRaw := strings.TrimSpace(r.URL.Query().Get("from"))
	toRaw := strings.TrimSpace(r.URL.Query().Get("to"))
	if fromRaw != "" && toRaw != "" {
		from, errFrom := time.Parse(time.RFC3339, fromRaw)
		to, errTo := time.Parse(time.RFC3339, toRaw)
		if errFrom != nil || errTo != nil || !to.After(from) {
			http.Error(w, "from and to must be RFC3339 with from < to", http.StatusBadRequest)
			return
		}
		bookings, err = h.ledger.ListActiveBetween(r.Context(), resourceID, from, to)
	} else {
		bookings, err = h.ledger.ListActive(r.Context(), resourceID)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]occupiedItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, occupiedItem{
			StartTime: b.Start.UTC().Format(time.RFC3339),
			EndTime:   b.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Occurrences expands declared availability over a civil date range
// [from, to), both YYYY-MM-DD in the engine's reference location.
func (h *BookingHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resourceID := strings.TrimSpace(r.URL.Query().Get("resource_id"))
	fromRaw := strings.TrimSpace(r.URL.Query().Get("from"))
	toRaw := strings.TrimSpace(r.URL.Query().Get("to"))
	if resourceID == "" || fromRaw == "" || toRaw == "" {
		http.Error(w, "resource_id, from and to are required", http.StatusBadRequest)
		return
	}

	from, errFrom := time.ParseInLocation("2006-01-02", fromRaw, h.loc)
	to, errTo := time.ParseInLocation("2006-01-02", toRaw, h.loc)
	if errFrom != nil || errTo != nil {
		http.Error(w, "from and to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	occurrences, err := h.ledger.ExpandOccurrences(r.Context(), resourceID, availability.DateRange{From: from, To: to})
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]occurrenceItem, 0, len(occurrences))
	for _, o := range occurrences {
		items = append(items, occurrenceItem{
			ResourceID: o.ResourceID,
			StartTime:  o.Start.UTC().Format(time.RFC3339),
			EndTime:    o.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	status, ok := statusForError(err)
	if !ok {
		h.logger.Error("booking request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}

// statusForError maps the engine's error taxonomy to HTTP statuses. Anything
// outside the taxonomy is an infrastructure failure and reported retryable.
func statusForError(err error) (int, bool) {
	switch {
	case errors.Is(err, booking.ErrInvalidInterval):
		return http.StatusBadRequest, true
	case errors.Is(err, booking.ErrResourceNotFound), errors.Is(err, booking.ErrBookingNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, booking.ErrSelfBooking):
		return http.StatusForbidden, true
	case errors.Is(err, booking.ErrOutsideAvailability):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, booking.ErrSlotConflict), errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusConflict, true
	default:
		return http.StatusInternalServerError, false
	}
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		BookingID:   b.ID,
		ResourceID:  b.ResourceID,
		RequesterID: b.RequesterID,
		StartTime:   b.Start.UTC().Format(time.RFC3339),
		EndTime:     b.End.UTC().Format(time.RFC3339),
		Status:      string(b.Status),
		Comment:     b.Comment,
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		item.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func requesterID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
