package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simplewatch/simplewatch/internal/storage"
)

// Manager runs the maintenance window sweeps on its own timer, independent
// of the poller: scheduled windows activate when their start passes, active
// windows complete when their end passes, and recurring windows synthesize
// their next occurrence on completion.
type Manager struct {
	store    storage.Store
	interval time.Duration
	logger   *slog.Logger
}

func NewManager(store storage.Store, interval time.Duration, logger *slog.Logger) *Manager {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Manager{store: store, interval: interval, logger: logger}
}

func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Sweep(ctx, time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, time.Now().UTC())
		}
	}
}

// Sweep advances every non-terminal window whose boundary has passed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) {
	windows, err := m.store.ListMaintenanceWindows(ctx, 0, []string{storage.WindowScheduled, storage.WindowActive})
	if err != nil {
		m.logger.Error("maintenance sweep: list windows failed", "error", err)
		return
	}

	for _, w := range windows {
		if err := m.advance(ctx, w, now); err != nil {
			m.logger.Error("maintenance sweep failed", "window_id", w.ID, "error", err)
		}
	}
}

func (m *Manager) advance(ctx context.Context, w *storage.MaintenanceWindow, now time.Time) error {
	switch w.Status {
	case storage.WindowScheduled:
		if w.StartTime.After(now) {
			return nil
		}
		if w.EndTime.After(now) {
			w.Status = storage.WindowActive
			if err := m.store.UpdateMaintenanceWindow(ctx, w); err != nil {
				return err
			}
			m.logger.Info("maintenance window activated", "window_id", w.ID, "service_id", w.ServiceID)
			return nil
		}
		// The whole window elapsed between sweeps; complete it directly.
		return m.complete(ctx, w, now)
	case storage.WindowActive:
		if w.EndTime.After(now) {
			return nil
		}
		return m.complete(ctx, w, now)
	}
	return nil
}

func (m *Manager) complete(ctx context.Context, w *storage.MaintenanceWindow, now time.Time) error {
	w.Status = storage.WindowCompleted
	if err := m.store.UpdateMaintenanceWindow(ctx, w); err != nil {
		return err
	}
	m.logger.Info("maintenance window completed", "window_id", w.ID, "service_id", w.ServiceID)

	if w.RecurrenceType == "" || w.RecurrenceType == storage.RecurrenceNone {
		return nil
	}

	nextStart, ok := NextOccurrence(w.StartTime, w.RecurrenceType, w.RecurrenceConfig)
	if !ok {
		// e.g. the 5th Tuesday of a month that only has four.
		m.logger.Warn("no next occurrence for recurring window", "window_id", w.ID, "recurrence", w.RecurrenceType)
		return nil
	}

	next := &storage.MaintenanceWindow{
		ServiceID:        w.ServiceID,
		StartTime:        nextStart,
		EndTime:          nextStart.Add(w.EndTime.Sub(w.StartTime)),
		RecurrenceType:   w.RecurrenceType,
		RecurrenceConfig: w.RecurrenceConfig,
		Reason:           w.Reason,
		Status:           storage.WindowScheduled,
	}
	if err := m.store.CreateMaintenanceWindow(ctx, next); err != nil {
		return err
	}
	m.logger.Info("recurring maintenance window scheduled",
		"window_id", next.ID, "service_id", next.ServiceID, "start", nextStart.Format(time.RFC3339))
	return nil
}

// Create validates and persists a new window. Windows already fully in the
// past are rejected; a window straddling now starts out active.
func (m *Manager) Create(ctx context.Context, w *storage.MaintenanceWindow) error {
	if !w.EndTime.After(w.StartTime) {
		return fmt.Errorf("end time must be after start time")
	}

	now := time.Now().UTC()
	switch {
	case !w.EndTime.After(now):
		return fmt.Errorf("cannot create maintenance window in the past")
	case !w.StartTime.After(now):
		w.Status = storage.WindowActive
	default:
		w.Status = storage.WindowScheduled
	}

	switch w.RecurrenceType {
	case "", storage.RecurrenceNone, storage.RecurrenceDaily, storage.RecurrenceWeekly,
		storage.RecurrenceMonthly, storage.RecurrenceMonthlyWeekday:
	default:
		return fmt.Errorf("unknown recurrence type: %s", w.RecurrenceType)
	}

	if err := m.store.CreateMaintenanceWindow(ctx, w); err != nil {
		return err
	}
	m.logger.Info("maintenance window created", "window_id", w.ID, "service_id", w.ServiceID, "status", w.Status)
	return nil
}

// Cancel terminates a scheduled or active window early. Cancelled windows
// are terminal and never synthesize a recurrence.
func (m *Manager) Cancel(ctx context.Context, id int64) error {
	w, err := m.store.GetMaintenanceWindow(ctx, id)
	if err != nil {
		return err
	}
	if w.Status == storage.WindowCompleted || w.Status == storage.WindowCancelled {
		return fmt.Errorf("maintenance window already %s", w.Status)
	}

	w.Status = storage.WindowCancelled
	w.EndTime = time.Now().UTC()
	if err := m.store.UpdateMaintenanceWindow(ctx, w); err != nil {
		return err
	}
	m.logger.Info("maintenance window cancelled", "window_id", w.ID, "service_id", w.ServiceID)
	return nil
}
