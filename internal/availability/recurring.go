package availability

import (
	"context"
	"sort"
	"time"

	"github.com/greenthumb-app/greenthumb/internal/model"
)

// RecurringSource expands weekly templates into occurrences. For every
// calendar day in the range it materializes the templates whose weekday
// matches, building absolute timestamps from the day plus the template's
// clock minutes.
type RecurringSource struct {
	Templates TemplateStore
}

func (s *RecurringSource) Occurrences(ctx context.Context, resourceID string, r DateRange) ([]model.Occurrence, error) {
	if !r.From.Before(r.To) {
		return nil, nil
	}

	templates, err := s.Templates.ActiveTemplates(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, nil
	}

	byWeekday := make(map[int][]model.AvailabilityTemplate, len(templates))
	for _, t := range templates {
		byWeekday[t.Weekday] = append(byWeekday[t.Weekday], t)
	}

	var out []model.Occurrence
	for d := r.From; d.Before(r.To); d = d.AddDate(0, 0, 1) {
		for _, t := range byWeekday[isoWeekday(d)] {
			occ := model.Occurrence{
				ResourceID: resourceID,
				Start:      d.Add(time.Duration(t.StartMinute) * time.Minute),
				End:        d.Add(time.Duration(t.EndMinute) * time.Minute),
			}
			// Boundary occurrences are kept whole; callers must not assume
			// clipping to the query range.
			if occ.End.After(r.From) && occ.Start.Before(r.To) {
				out = append(out, occ)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
