package maintenance

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/simplewatch/simplewatch/internal/storage"
)

func testStore(t *testing.T) storage.Store {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "simplewatch-maintenance-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := storage.NewSQLiteStore(tmpFile.Name(), 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testManager(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	return NewManager(store, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func createService(t *testing.T, store storage.Store) *storage.Service {
	t.Helper()
	svc := &storage.Service{Name: "Test", Active: true}
	if err := store.CreateService(context.Background(), svc); err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestCreateValidation(t *testing.T) {
	store := testStore(t)
	mgr := testManager(t, store)
	svc := createService(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	// end before start
	err := mgr.Create(ctx, &storage.MaintenanceWindow{
		ServiceID: svc.ID,
		StartTime: now.Add(2 * time.Hour),
		EndTime:   now.Add(time.Hour),
	})
	if err == nil {
		t.Fatal("expected error for end before start")
	}

	// fully in the past
	err = mgr.Create(ctx, &storage.MaintenanceWindow{
		ServiceID: svc.ID,
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Hour),
	})
	if err == nil {
		t.Fatal("expected error for past window")
	}

	// unknown recurrence
	err = mgr.Create(ctx, &storage.MaintenanceWindow{
		ServiceID:      svc.ID,
		StartTime:      now.Add(time.Hour),
		EndTime:        now.Add(2 * time.Hour),
		RecurrenceType: "fortnightly",
	})
	if err == nil {
		t.Fatal("expected error for unknown recurrence type")
	}
}

func TestCreateStraddlingWindowIsActive(t *testing.T) {
	store := testStore(t)
	mgr := testManager(t, store)
	svc := createService(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	w := &storage.MaintenanceWindow{
		ServiceID: svc.ID,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}
	if err := mgr.Create(ctx, w); err != nil {
		t.Fatal(err)
	}
	if w.Status != storage.WindowActive {
		t.Fatalf("expected active, got %s", w.Status)
	}

	active, err := store.HasActiveMaintenance(ctx, svc.ID, now)
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Fatal("expected service to be in maintenance")
	}
}

func TestSweepActivatesAndCompletes(t *testing.T) {
	store := testStore(t)
	mgr := testManager(t, store)
	svc := createService(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	w := &storage.MaintenanceWindow{
		ServiceID: svc.ID,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
		Status:    storage.WindowScheduled,
	}
	if err := store.CreateMaintenanceWindow(ctx, w); err != nil {
		t.Fatal(err)
	}

	// Before the start nothing changes.
	mgr.Sweep(ctx, now)
	got, _ := store.GetMaintenanceWindow(ctx, w.ID)
	if got.Status != storage.WindowScheduled {
		t.Fatalf("expected scheduled, got %s", got.Status)
	}

	// Past the start it activates.
	mgr.Sweep(ctx, now.Add(time.Hour+time.Minute))
	got, _ = store.GetMaintenanceWindow(ctx, w.ID)
	if got.Status != storage.WindowActive {
		t.Fatalf("expected active, got %s", got.Status)
	}

	// Past the end it completes.
	mgr.Sweep(ctx, now.Add(2*time.Hour+time.Minute))
	got, _ = store.GetMaintenanceWindow(ctx, w.ID)
	if got.Status != storage.WindowCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestSweepSynthesizesRecurrence(t *testing.T) {
	store := testStore(t)
	mgr := testManager(t, store)
	svc := createService(t, store)
	ctx := context.Background()

	start := time.Date(2025, 6, 4, 2, 0, 0, 0, time.UTC) // Wednesday
	w := &storage.MaintenanceWindow{
		ServiceID:        svc.ID,
		StartTime:        start,
		EndTime:          start.Add(90 * time.Minute),
		RecurrenceType:   storage.RecurrenceWeekly,
		RecurrenceConfig: &storage.RecurrenceConfig{Weekdays: []int{1, 3, 5}},
		Status:           storage.WindowActive,
	}
	if err := store.CreateMaintenanceWindow(ctx, w); err != nil {
		t.Fatal(err)
	}

	mgr.Sweep(ctx, start.Add(2*time.Hour))

	got, _ := store.GetMaintenanceWindow(ctx, w.ID)
	if got.Status != storage.WindowCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}

	scheduled, err := store.ListMaintenanceWindows(ctx, svc.ID, []string{storage.WindowScheduled})
	if err != nil {
		t.Fatal(err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("expected 1 synthesized window, got %d", len(scheduled))
	}

	next := scheduled[0]
	wantStart := time.Date(2025, 6, 6, 2, 0, 0, 0, time.UTC) // Friday
	if !next.StartTime.Equal(wantStart) {
		t.Fatalf("next start = %v, want %v", next.StartTime, wantStart)
	}
	if next.EndTime.Sub(next.StartTime) != 90*time.Minute {
		t.Fatal("expected duration to be preserved")
	}
	if next.RecurrenceType != storage.RecurrenceWeekly {
		t.Fatal("expected recurrence carried forward")
	}
}

func TestCancelIsTerminalAndSkipsRecurrence(t *testing.T) {
	store := testStore(t)
	mgr := testManager(t, store)
	svc := createService(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	w := &storage.MaintenanceWindow{
		ServiceID:      svc.ID,
		StartTime:      now.Add(-time.Hour),
		EndTime:        now.Add(time.Hour),
		RecurrenceType: storage.RecurrenceDaily,
		Status:         storage.WindowActive,
	}
	if err := store.CreateMaintenanceWindow(ctx, w); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Cancel(ctx, w.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetMaintenanceWindow(ctx, w.ID)
	if got.Status != storage.WindowCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.EndTime.After(time.Now().UTC().Add(time.Second)) {
		t.Fatal("expected end_time clamped to now")
	}

	// Cancelled windows are terminal.
	if err := mgr.Cancel(ctx, w.ID); err == nil {
		t.Fatal("expected error cancelling a cancelled window")
	}

	// A later sweep never resurrects or recurs a cancelled window.
	mgr.Sweep(ctx, now.Add(3*time.Hour))
	scheduled, err := store.ListMaintenanceWindows(ctx, svc.ID, []string{storage.WindowScheduled})
	if err != nil {
		t.Fatal(err)
	}
	if len(scheduled) != 0 {
		t.Fatal("cancellation must not synthesize a recurrence")
	}
}
