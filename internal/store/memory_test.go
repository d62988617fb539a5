package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"intake-platform/internal/intake"
)

func TestMemory_ReadYourWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec, err := m.Create(ctx, "c1", "+15551230000", "CA1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Status != intake.StatusStarted || rec.NotificationStatus != intake.NotificationNotAttempted {
		t.Fatalf("unexpected initial record: %+v", rec)
	}

	fields := intake.CustomerFields{FirstName: "Sam", VehicleMake: "Honda"}
	if err := m.MergeFields(ctx, "c1", fields); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, err := m.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerFields != fields {
		t.Fatalf("merge not visible: %+v", got.CustomerFields)
	}
}

func TestMemory_FieldSetReplacedAtomically(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Create(ctx, "c1", "p", "CA1")

	first := intake.CustomerFields{FirstName: "Sam", LastName: "Jones", Phone: "5551234567"}
	m.MergeFields(ctx, "c1", first)

	// A later merge replaces the whole set; fields absent from the new set
	// do not survive from the old one.
	second := intake.CustomerFields{FirstName: "Sam"}
	m.MergeFields(ctx, "c1", second)

	got, _ := m.Get(ctx, "c1")
	if got.CustomerFields != second {
		t.Fatalf("expected full replacement, got %+v", got.CustomerFields)
	}
}

func TestMemory_UrgencyImmutableOnceSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Create(ctx, "c1", "p", "CA1")

	if err := m.SetUrgency(ctx, "c1", 4); err != nil {
		t.Fatalf("set urgency: %v", err)
	}
	if err := m.SetUrgency(ctx, "c1", 1); err != nil {
		t.Fatalf("second set urgency: %v", err)
	}
	got, _ := m.Get(ctx, "c1")
	if got.Urgency != 4 {
		t.Fatalf("urgency changed after being set: %d", got.Urgency)
	}
}

func TestMemory_CrossCallIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Create(ctx, "c1", "p1", "CA1")
	m.Create(ctx, "c2", "p2", "CA2")

	m.MergeFields(ctx, "c1", intake.CustomerFields{FirstName: "A"})
	m.SetStatus(ctx, "c1", intake.StatusComplete)

	got, _ := m.Get(ctx, "c2")
	if got.CustomerFields != (intake.CustomerFields{}) || got.Status != intake.StatusStarted {
		t.Fatalf("writes to c1 leaked into c2: %+v", got)
	}
}

func TestMemory_UnknownCallReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "nope"); !errors.Is(err, intake.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.MergeFields(ctx, "nope", intake.CustomerFields{FirstName: "x"}); !errors.Is(err, intake.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.SetStatus(ctx, "nope", intake.StatusComplete); !errors.Is(err, intake.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_FailureHooks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.FailNextCreate = true
	if _, err := m.Create(ctx, "c1", "p", "CA1"); err == nil {
		t.Fatalf("expected create failure")
	}
	// The hook is one-shot.
	if _, err := m.Create(ctx, "c1", "p", "CA1"); err != nil {
		t.Fatalf("create after hook: %v", err)
	}

	m.FailNextMerge = true
	if err := m.MergeFields(ctx, "c1", intake.CustomerFields{FirstName: "x"}); err == nil {
		t.Fatalf("expected merge failure")
	}
	if err := m.MergeFields(ctx, "c1", intake.CustomerFields{FirstName: "x"}); err != nil {
		t.Fatalf("merge after hook: %v", err)
	}
}

func TestMemory_ListNotificationFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Create(ctx, "c1", "p1", "CA1")
	m.Create(ctx, "c2", "p2", "CA2")
	m.SetNotificationStatus(ctx, "c1", intake.NotificationFailed)
	m.SetNotificationStatus(ctx, "c2", intake.NotificationSent)

	rows, err := m.ListNotificationFailures(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].CallID != "c1" {
		t.Fatalf("unexpected follow-up list: %+v", rows)
	}
}

func TestMemory_ListCallsWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	m := NewMemory().WithClock(func() time.Time { return now })

	m.Create(ctx, "c1", "p", "CA1")

	rows, err := m.ListCalls(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected record inside window, got %v rows err=%v", len(rows), err)
	}

	rows, _ = m.ListCalls(ctx, now.Add(time.Minute), now.Add(time.Hour))
	if len(rows) != 0 {
		t.Fatalf("expected no records outside window, got %d", len(rows))
	}

	// [from, to): a record created exactly at to is excluded.
	rows, _ = m.ListCalls(ctx, now.Add(-time.Hour), now)
	if len(rows) != 0 {
		t.Fatalf("expected half-open window, got %d", len(rows))
	}
}
