package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simplewatch/simplewatch/internal/checker"
	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// valueEvaluator is implemented by passive checkers that grade externally
// pushed values.
type valueEvaluator interface {
	EvaluateValue(monitor *storage.Monitor, value float64) (*checker.Result, error)
}

// Ingestor is the push-side entry point: heartbeats and metric values arrive
// here and produce the same side effects a poll would, through the shared
// record path.
type Ingestor struct {
	store    storage.Store
	registry *checker.Registry
	recorder *Recorder
	logger   *slog.Logger
}

func NewIngestor(store storage.Store, registry *checker.Registry, recorder *Recorder, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: store, registry: registry, recorder: recorder, logger: logger}
}

// RecordHeartbeat registers a liveness signal for a heartbeat-style monitor.
// It stamps last_check_at (which the poller leaves alone for these types)
// and records an operational status.
func (i *Ingestor) RecordHeartbeat(ctx context.Context, monitorID int64) error {
	m, err := i.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return fmt.Errorf("get monitor: %w", err)
	}
	if !i.registry.ExternalLiveness(m.Type) {
		return fmt.Errorf("monitor %d (%s) does not accept heartbeats", m.ID, m.Type)
	}
	if !m.Active {
		return fmt.Errorf("monitor %d is not active", m.ID)
	}

	now := time.Now().UTC()
	if err := i.store.UpdateMonitorSchedule(ctx, m.ID, &now, nil); err != nil {
		return fmt.Errorf("update last check: %w", err)
	}

	result := &checker.Result{
		Status:  status.Operational,
		Message: "heartbeat received",
		Metadata: map[string]any{
			"heartbeat_at": now.Format(time.RFC3339),
		},
	}
	i.logger.Debug("heartbeat received", "monitor_id", m.ID)
	return i.recorder.Record(ctx, m, result)
}

// RecordMetric grades an externally pushed value against the monitor's
// thresholds and records the outcome.
func (i *Ingestor) RecordMetric(ctx context.Context, monitorID int64, value float64) error {
	m, err := i.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return fmt.Errorf("get monitor: %w", err)
	}
	if !m.Active {
		return fmt.Errorf("monitor %d is not active", m.ID)
	}

	c, err := i.registry.Get(m.Type)
	if err != nil {
		return err
	}
	evaluator, ok := c.(valueEvaluator)
	if !ok {
		return fmt.Errorf("monitor %d (%s) does not accept metric values", m.ID, m.Type)
	}

	result, err := evaluator.EvaluateValue(m, value)
	if err != nil {
		return fmt.Errorf("evaluate value: %w", err)
	}

	now := time.Now().UTC()
	if err := i.store.UpdateMonitorSchedule(ctx, m.ID, &now, nil); err != nil {
		return fmt.Errorf("update last check: %w", err)
	}

	i.logger.Debug("metric value recorded", "monitor_id", m.ID, "value", value, "status", result.Status)
	return i.recorder.Record(ctx, m, result)
}
