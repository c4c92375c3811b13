package availability

import (
	"context"

	"github.com/greenthumb-app/greenthumb/internal/model"
)

// LiteralSource passes stored one-shot windows through unchanged: they are
// already concrete.
type LiteralSource struct {
	Windows WindowStore
}

func (s *LiteralSource) Occurrences(ctx context.Context, resourceID string, r DateRange) ([]model.Occurrence, error) {
	if !r.From.Before(r.To) {
		return nil, nil
	}

	windows, err := s.Windows.WindowsIntersecting(ctx, resourceID, r.From, r.To)
	if err != nil {
		return nil, err
	}

	out := make([]model.Occurrence, 0, len(windows))
	for _, w := range windows {
		out = append(out, model.Occurrence{ResourceID: w.ResourceID, Start: w.Start, End: w.End})
	}
	return out, nil
}
