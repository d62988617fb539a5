package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for intake events.
// It MUST be append-only; there are no Update/Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByCall(ctx context.Context, callID string) ([]Event, error)
}

var ErrInvalidEvent = errors.New("events: invalid event")

// Service writes the intake lifecycle log.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("events: repository not configured")
	}
	if e.CallID == "" || e.Kind == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record satisfies the state machine's EventSink contract: best-effort,
// never fails the caller.
func (s *Service) Record(ctx context.Context, callID, kind, message string) {
	if err := s.Append(ctx, Event{CallID: callID, Kind: kind, Message: message}); err != nil {
		s.log.Warn("intake event not recorded", "call_id", callID, "kind", kind, "err", err)
	}
}

// ListByCall returns the lifecycle trail for one call, oldest first.
func (s *Service) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("events: repository not configured")
	}
	if callID == "" {
		return nil, ErrInvalidEvent
	}
	return s.repo.ListByCall(ctx, callID)
}
