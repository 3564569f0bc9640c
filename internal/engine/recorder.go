// Package engine drives the monitoring flow: the poller selects due
// monitors, the pool runs their checks, and every result from polling or
// ingestion funnels through the recorder's single record path.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simplewatch/simplewatch/internal/checker"
	"github.com/simplewatch/simplewatch/internal/incident"
	"github.com/simplewatch/simplewatch/internal/notify"
	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// Recorder is the shared record path. Persisting a result, recomputing the
// service aggregate, syncing the incident state machine, and deciding on
// notifications happen here and only here; the poller and the ingestion
// endpoints both terminate in Record.
type Recorder struct {
	store      storage.Store
	tracker    *incident.Tracker
	dispatcher *notify.Dispatcher
	logger     *slog.Logger

	notifyCh chan *notify.Context
}

func NewRecorder(store storage.Store, tracker *incident.Tracker, dispatcher *notify.Dispatcher, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:      store,
		tracker:    tracker,
		dispatcher: dispatcher,
		logger:     logger,
		notifyCh:   make(chan *notify.Context, 64),
	}
}

// Run drains the notification queue, delivering one event at a time in the
// order the record path produced them, so a slow channel never stalls the
// recording of other monitors' results.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case nc := <-r.notifyCh:
			r.dispatcher.Dispatch(ctx, nc)
		}
	}
}

// Record persists one check outcome and applies its consequences.
func (r *Recorder) Record(ctx context.Context, monitor *storage.Monitor, result *checker.Result) error {
	now := time.Now().UTC()

	update := &storage.StatusUpdate{
		ServiceID:      monitor.ServiceID,
		MonitorID:      &monitor.ID,
		Status:         result.Status,
		Timestamp:      now,
		ResponseTimeMS: result.ResponseTimeMS,
		Metadata:       result.Metadata,
	}
	if err := r.store.InsertStatusUpdate(ctx, update); err != nil {
		return fmt.Errorf("insert status update: %w", err)
	}

	latest, err := r.store.LatestMonitorStatuses(ctx, monitor.ServiceID)
	if err != nil {
		return fmt.Errorf("latest monitor statuses: %w", err)
	}

	statuses := make(map[int64]status.Status, len(latest))
	var affectedIDs []int64
	for _, ml := range latest {
		statuses[ml.Monitor.ID] = ml.Status
		if ml.Status != status.Operational && ml.Status != status.Unknown {
			affectedIDs = append(affectedIDs, ml.Monitor.ID)
		}
	}
	aggregated := status.AggregateMap(statuses)

	if _, _, err := r.tracker.Sync(ctx, monitor.ServiceID, aggregated, affectedIDs); err != nil {
		return fmt.Errorf("incident sync: %w", err)
	}

	return r.maybeNotify(ctx, monitor.ServiceID, aggregated, latest, now)
}

func (r *Recorder) maybeNotify(ctx context.Context, serviceID int64, aggregated status.Status, latest []*storage.MonitorLatest, now time.Time) error {
	if aggregated == status.Unknown {
		return nil
	}

	settings, err := r.store.GetOrCreateNotificationSettings(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("notification settings: %w", err)
	}
	if !notify.ShouldNotify(settings, aggregated, now) {
		return nil
	}

	// Expected downtime: an active maintenance window suppresses delivery
	// entirely, without consuming the cooldown.
	inMaintenance, err := r.store.HasActiveMaintenance(ctx, serviceID, now)
	if err != nil {
		return fmt.Errorf("check maintenance: %w", err)
	}
	if inMaintenance {
		r.logger.Info("notification suppressed by maintenance window", "service_id", serviceID, "status", aggregated)
		return nil
	}

	svc, err := r.store.GetService(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("get service: %w", err)
	}

	nc := &notify.Context{
		ServiceID:   serviceID,
		ServiceName: svc.Name,
		OldStatus:   settings.LastNotifiedStatus,
		NewStatus:   aggregated,
		Timestamp:   now.Format(time.RFC3339),
	}
	for _, ml := range latest {
		detail := monitorDetail(ml)
		nc.Summary = append(nc.Summary, detail)
		if ml.Status != status.Operational && ml.Status != status.Unknown {
			nc.Affected = append(nc.Affected, detail)
		}
	}

	// Stamp the send now so the cooldown covers the queued event; delivery
	// happens on the Run goroutine.
	if err := r.dispatcher.MarkNotified(ctx, serviceID, aggregated, now); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	select {
	case r.notifyCh <- nc:
	default:
		r.logger.Warn("notification queue full, event dropped", "service_id", serviceID, "status", aggregated)
	}
	return nil
}

func monitorDetail(ml *storage.MonitorLatest) notify.MonitorDetail {
	d := notify.MonitorDetail{
		MonitorID:      ml.Monitor.ID,
		Name:           ml.Monitor.Name(),
		Status:         ml.Status,
		ResponseTimeMS: ml.ResponseTimeMS,
	}
	if errMsg, ok := ml.Metadata["error"].(string); ok {
		d.Error = errMsg
	}
	return d
}
