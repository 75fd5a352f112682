package staffing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

func TestNextAvailableDate_CountsEndDayInclusive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	eng := createEngineer(t, store, models.CapacityPartTime)
	proj := createProject(t, store)
	seedAssignment(t, store, eng.ID, proj.ID, 50, "2025-01-01", "2025-03-31")

	clock := fixedClock("2025-03-31T15:00:00Z")

	upper := NewService(store, WithClock(clock), WithAvailabilityMode(AvailabilityUpperBound))
	got, err := upper.NextAvailableDate(ctx, eng.ID)
	if err != nil {
		t.Fatalf("NextAvailableDate: %v", err)
	}
	if got.AvailableNow || got.AllocatedNow != 50 {
		t.Errorf("assignment should still count on its end day: %+v", got)
	}
	if models.FormatDate(got.AvailableFrom) != "2025-03-31" {
		t.Errorf("upper bound = %s, want 2025-03-31", models.FormatDate(got.AvailableFrom))
	}

	exact := NewService(store, WithClock(clock))
	got, err = exact.NextAvailableDate(ctx, eng.ID)
	if err != nil {
		t.Fatalf("NextAvailableDate: %v", err)
	}
	if !got.AvailableFrom.Equal(day("2025-04-01")) {
		t.Errorf("exact = %s, want 2025-04-01", got.AvailableFrom)
	}
}

func TestNextAvailableDate_ExactSweepFindsEarlierSlot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	clock := fixedClock("2025-02-01T08:00:00Z")

	eng := createEngineer(t, store, 100)
	proj := createProject(t, store)
	seedAssignment(t, store, eng.ID, proj.ID, 50, "2025-01-01", "2025-03-31")
	seedAssignment(t, store, eng.ID, proj.ID, 50, "2025-01-01", "2025-06-30")
	// Already over: ended before today, ignored as a candidate.
	seedAssignment(t, store, eng.ID, proj.ID, 20, "2024-10-01", "2024-12-31")

	exact := NewService(store, WithClock(clock))
	got, err := exact.NextAvailableDate(ctx, eng.ID)
	if err != nil {
		t.Fatalf("NextAvailableDate: %v", err)
	}
	if models.FormatDate(got.AvailableFrom) != "2025-04-01" {
		t.Errorf("exact = %s, want 2025-04-01", models.FormatDate(got.AvailableFrom))
	}

	upper := NewService(store, WithClock(clock), WithAvailabilityMode(AvailabilityUpperBound))
	got, err = upper.NextAvailableDate(ctx, eng.ID)
	if err != nil {
		t.Fatalf("NextAvailableDate: %v", err)
	}
	if models.FormatDate(got.AvailableFrom) != "2025-06-30" {
		t.Errorf("upper bound = %s, want 2025-06-30", models.FormatDate(got.AvailableFrom))
	}
}

func TestNextAvailableDate_SkipsDaysStillCoveredByLaterWork(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	eng := createEngineer(t, store, 100)
	proj := createProject(t, store)
	seedAssignment(t, store, eng.ID, proj.ID, 100, "2025-01-01", "2025-01-31")
	// Starts the day the first one frees up.
	seedAssignment(t, store, eng.ID, proj.ID, 100, "2025-02-01", "2025-02-28")

	svc := NewService(store, WithClock(fixedClock("2025-01-15T00:00:00Z")))
	got, err := svc.NextAvailableDate(ctx, eng.ID)
	if err != nil {
		t.Fatalf("NextAvailableDate: %v", err)
	}
	if models.FormatDate(got.AvailableFrom) != "2025-03-01" {
		t.Errorf("exact = %s, want 2025-03-01", models.FormatDate(got.AvailableFrom))
	}
}

func TestNextAvailableDate_AvailableNow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	clock := fixedClock("2025-02-01T08:30:00Z")

	eng := createEngineer(t, store, 100)
	proj := createProject(t, store)
	seedAssignment(t, store, eng.ID, proj.ID, 60, "2025-01-01", "2025-12-31")

	svc := NewService(store, WithClock(clock))
	got, err := svc.NextAvailableDate(ctx, eng.ID)
	if err != nil {
		t.Fatalf("NextAvailableDate: %v", err)
	}
	if !got.AvailableNow || !got.AvailableFrom.Equal(clock()) {
		t.Errorf("expected available now at %s, got %+v", clock(), got)
	}
}

func TestNextAvailableDate_RejectsNonEngineers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	svc := NewService(store)
	mgr := createManager(t, store)

	if _, err := svc.NextAvailableDate(ctx, mgr.ID); KindOf(err) != KindNotFound {
		t.Errorf("manager: err = %v, want NotFound", err)
	}
	if _, err := svc.NextAvailableDate(ctx, uuid.New().String()); KindOf(err) != KindNotFound {
		t.Errorf("unknown: err = %v, want NotFound", err)
	}
	if _, err := svc.Capacity(ctx, "not-a-uuid"); KindOf(err) != KindInvalidReference {
		t.Errorf("malformed: err = %v, want InvalidReference", err)
	}
}

func TestCapacity_Report(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	eng := createEngineer(t, store, 100)
	proj := createProject(t, store)
	seedAssignment(t, store, eng.ID, proj.ID, 60, "2025-01-01", "2025-03-31")
	seedAssignment(t, store, eng.ID, proj.ID, 50, "2025-03-01", "2025-04-30")
	seedAssignment(t, store, eng.ID, proj.ID, 30, "2025-05-01", "2025-05-31")

	svc := NewService(store, WithClock(fixedClock("2025-03-15T10:00:00Z")))
	report, err := svc.Capacity(ctx, eng.ID)
	if err != nil {
		t.Fatalf("Capacity: %v", err)
	}
	if report.Allocated != 110 || report.Available != 0 || report.ActiveAssignments != 2 || report.MaxCapacity != 100 {
		t.Errorf("report = %+v", report)
	}

	svc = NewService(store, WithClock(func() time.Time { return day("2025-05-10") }))
	report, _ = svc.Capacity(ctx, eng.ID)
	if report.Allocated != 30 || report.Available != 70 {
		t.Errorf("report = %+v", report)
	}
}
