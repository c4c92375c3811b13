package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/greenthumb-app/greenthumb/internal/model"
)

// TemplateStore reads a resource's recurring weekly declarations.
type TemplateStore interface {
	ActiveTemplates(ctx context.Context, resourceID string) ([]model.AvailabilityTemplate, error)
}

// WindowStore reads a resource's literal windows intersecting [from, to).
type WindowStore interface {
	WindowsIntersecting(ctx context.Context, resourceID string, from, to time.Time) ([]model.AvailabilityWindow, error)
}

// DateRange is a half-open civil date range [From, To). From and To are local
// midnights in the engine's reference location.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Source turns one availability representation into concrete occurrences for
// a date range. Implementations exist per representation; callers pick the
// variant by resource kind through Expander.
type Source interface {
	Occurrences(ctx context.Context, resourceID string, r DateRange) ([]model.Occurrence, error)
}

// Expander dispatches to the right Source for a resource's kind.
type Expander struct {
	recurring Source
	literal   Source
}

func NewExpander(templates TemplateStore, windows WindowStore) *Expander {
	return &Expander{
		recurring: &RecurringSource{Templates: templates},
		literal:   &LiteralSource{Windows: windows},
	}
}

// Expand returns the concrete occurrences for res intersecting r, ordered by
// start time. Boundary occurrences are returned in full, not clipped to r.
func (e *Expander) Expand(ctx context.Context, res model.Resource, r DateRange) ([]model.Occurrence, error) {
	switch res.Kind {
	case model.KindGardener:
		return e.recurring.Occurrences(ctx, res.ID, r)
	case model.KindGarden:
		return e.literal.Occurrences(ctx, res.ID, r)
	default:
		return nil, fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// isoWeekday maps time.Weekday to ISO numbering (1=Monday .. 7=Sunday).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
