package reporting

import (
	"context"
	"errors"
	"time"

	"intake-platform/internal/intake"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts read access to call records. Both the Postgres and
// the in-memory store satisfy it.
type Repository interface {
	ListCalls(ctx context.Context, from, to time.Time) ([]intake.CallRecord, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) IntakeSummary(ctx context.Context, req IntakeSummaryRequest) (IntakeSummary, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return IntakeSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return IntakeSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return IntakeSummary{}, err
	}

	var out IntakeSummary
	for _, rec := range rows {
		out.TotalCalls++
		switch rec.Status {
		case intake.StatusComplete:
			out.CompletedCalls++
		case intake.StatusHandoff:
			out.HandoffCalls++
		case intake.StatusAbandoned:
			out.AbandonedCalls++
		default:
			out.InFlightCalls++
		}
		switch rec.NotificationStatus {
		case intake.NotificationSent:
			out.NotificationsSent++
		case intake.NotificationFailed:
			out.NotificationsFailed++
		}
		if rec.Urgency >= 1 && rec.Urgency <= 5 {
			out.UrgencyCounts[rec.Urgency]++
			if rec.Urgency >= 4 {
				out.HighUrgencyCalls++
			}
		}
	}
	if out.TotalCalls > 0 {
		out.HandoffRate = float64(out.HandoffCalls) / float64(out.TotalCalls)
	}
	return out, nil
}
