package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/greenthumb-app/greenthumb/internal/booking"
	"github.com/greenthumb-app/greenthumb/internal/model"
)

const minutesPerDay = 24 * 60

// AvailabilityEditor is the slice of the availability store the handler
// needs for owner-side editing.
type AvailabilityEditor interface {
	ListTemplates(ctx context.Context, resourceID string) ([]model.AvailabilityTemplate, error)
	UpsertTemplate(ctx context.Context, t model.AvailabilityTemplate) error
	ReplaceWindows(ctx context.Context, resourceID string, windows []model.AvailabilityWindow) error
}

// AvailabilityHandler lets resource owners declare when their resource can
// be booked. Recurring templates apply to gardener resources, literal
// windows to garden resources; mixing the two is rejected.
type AvailabilityHandler struct {
	editor    AvailabilityEditor
	resources booking.ResourceLookup
	logger    *slog.Logger
}

func NewAvailabilityHandler(editor AvailabilityEditor, resources booking.ResourceLookup, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{editor: editor, resources: resources, logger: logger}
}

type templateItem struct {
	ResourceID  string `json:"resource_id"`
	Weekday     int    `json:"weekday"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Active      bool   `json:"active"`
}

func (h *AvailabilityHandler) Templates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTemplates(w, r)
	case http.MethodPut:
		h.upsertTemplate(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AvailabilityHandler) listTemplates(w http.ResponseWriter, r *http.Request) {
	resourceID := strings.TrimSpace(r.URL.Query().Get("resource_id"))
	if resourceID == "" {
		http.Error(w, "resource_id is required", http.StatusBadRequest)
		return
	}

	templates, err := h.editor.ListTemplates(r.Context(), resourceID)
	if err != nil {
		h.logger.Error("list availability templates failed", "err", err)
		http.Error(w, "failed to list templates", http.StatusInternalServerError)
		return
	}

	items := make([]templateItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, templateItem{
			ResourceID:  t.ResourceID,
			Weekday:     t.Weekday,
			StartMinute: t.StartMinute,
			EndMinute:   t.EndMinute,
			Active:      t.Active,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AvailabilityHandler) upsertTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ResourceID = strings.TrimSpace(req.ResourceID)
	if req.ResourceID == "" {
		http.Error(w, "resource_id is required", http.StatusBadRequest)
		return
	}
	if req.Weekday < 1 || req.Weekday > 7 {
		http.Error(w, "weekday must be 1 (Monday) through 7 (Sunday)", http.StatusBadRequest)
		return
	}
	if req.StartMinute < 0 || req.EndMinute > minutesPerDay || req.StartMinute >= req.EndMinute {
		http.Error(w, fmt.Sprintf("minutes must satisfy 0 <= start < end <= %d", minutesPerDay), http.StatusBadRequest)
		return
	}

	res, ok := h.authorizeOwner(w, r, req.ResourceID)
	if !ok {
		return
	}
	if res.Kind != model.KindGardener {
		http.Error(w, "recurring templates apply to gardener resources only", http.StatusBadRequest)
		return
	}

	err := h.editor.UpsertTemplate(r.Context(), model.AvailabilityTemplate{
		ResourceID:  req.ResourceID,
		Weekday:     req.Weekday,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		Active:      req.Active,
	})
	if err != nil {
		h.logger.Error("upsert availability template failed", "err", err)
		http.Error(w, "failed to save template", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type windowItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type replaceWindowsRequest struct {
	ResourceID string       `json:"resource_id"`
	Windows    []windowItem `json:"windows"`
}

// Windows replaces a garden resource's literal windows wholesale.
func (h *AvailabilityHandler) Windows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req replaceWindowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ResourceID = strings.TrimSpace(req.ResourceID)
	if req.ResourceID == "" {
		http.Error(w, "resource_id is required", http.StatusBadRequest)
		return
	}

	windows := make([]model.AvailabilityWindow, 0, len(req.Windows))
	for i, win := range req.Windows {
		start, errStart := time.Parse(time.RFC3339, win.StartTime)
		end, errEnd := time.Parse(time.RFC3339, win.EndTime)
		if errStart != nil || errEnd != nil || !end.After(start) {
			http.Error(w, fmt.Sprintf("windows[%d]: start_time and end_time must be RFC3339 with start < end", i), http.StatusBadRequest)
			return
		}
		windows = append(windows, model.AvailabilityWindow{
			ResourceID: req.ResourceID,
			Start:      start,
			End:        end,
		})
	}

	res, ok := h.authorizeOwner(w, r, req.ResourceID)
	if !ok {
		return
	}
	if res.Kind != model.KindGarden {
		http.Error(w, "literal windows apply to garden resources only", http.StatusBadRequest)
		return
	}

	if err := h.editor.ReplaceWindows(r.Context(), req.ResourceID, windows); err != nil {
		h.logger.Error("replace availability windows failed", "err", err)
		http.Error(w, "failed to save windows", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(windows)})
}

func (h *AvailabilityHandler) authorizeOwner(w http.ResponseWriter, r *http.Request, resourceID string) (model.Resource, bool) {
	callerID := requesterID(r)
	if callerID == "" {
		http.Error(w, "missing X-User-Id", http.StatusUnauthorized)
		return model.Resource{}, false
	}

	res, err := h.resources.Lookup(r.Context(), resourceID)
	if err != nil {
		h.writeError(w, err)
		return model.Resource{}, false
	}
	if res.OwnerID != callerID {
		http.Error(w, "only the resource owner may edit availability", http.StatusForbidden)
		return model.Resource{}, false
	}
	return res, true
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, err error) {
	status, ok := statusForError(err)
	if !ok {
		h.logger.Error("availability request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}
