package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_AppendFillsDefaults(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Unix(1700000000, 0).UTC()
	svc.clock = func() time.Time { return now }

	if err := svc.Append(context.Background(), Event{CallID: "c1", Kind: "call_started"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got := repo.Events()
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	if got[0].ID == "" || !got[0].CreatedAt.Equal(now) {
		t.Fatalf("defaults not applied: %+v", got[0])
	}
}

func TestService_AppendRejectsInvalid(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	if err := svc.Append(context.Background(), Event{Kind: "x"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing call id, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{CallID: "c1"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing kind, got %v", err)
	}
}

type failingRepo struct{}

func (failingRepo) Append(ctx context.Context, e Event) error { return errors.New("db down") }
func (failingRepo) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	return nil, errors.New("db down")
}

func TestService_RecordNeverPanicsOnFailure(t *testing.T) {
	svc := NewService(failingRepo{}, nil)
	// Record is fire-and-forget; a repo failure only logs.
	svc.Record(context.Background(), "c1", "handoff", "store down")
}

func TestService_ListByCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	svc.Record(ctx, "c1", "call_started", "")
	svc.Record(ctx, "c2", "call_started", "")
	svc.Record(ctx, "c1", "handoff", "empty transcript")

	got, err := svc.ListByCall(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Kind != "call_started" || got[1].Kind != "handoff" {
		t.Fatalf("unexpected trail: %+v", got)
	}

	if _, err := svc.ListByCall(ctx, ""); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for empty call id, got %v", err)
	}
}
