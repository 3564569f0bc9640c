package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// DeadmanConfig is the opaque monitor config for deadman (heartbeat) checks.
type DeadmanConfig struct {
	Name string `json:"name,omitempty"`
	// ExpectedIntervalMinutes is how often a heartbeat must arrive.
	ExpectedIntervalMinutes int `json:"expected_interval_minutes"`
	// GraceMinutes extends the deadline before the monitor is declared down.
	GraceMinutes int `json:"grace_minutes,omitempty"`
}

// DeadmanChecker evaluates heartbeat staleness. The monitor's last_check_at
// is owned by the ingestion path; the poller only reads it here to decide
// whether the external process has gone silent.
type DeadmanChecker struct{}

func (c *DeadmanChecker) Type() string { return "deadman" }

func (c *DeadmanChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg DeadmanConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.ExpectedIntervalMinutes <= 0 {
		return down("expected_interval_minutes not configured", 0, nil), nil
	}

	// A producer that never reported is exactly the silence this monitor
	// exists to catch.
	if monitor.LastCheckAt == nil {
		return &Result{
			Status:  status.Down,
			Message: "no heartbeat received yet",
			Metadata: map[string]any{
				"expected_interval_minutes": cfg.ExpectedIntervalMinutes,
				"error":                     "no heartbeat received yet",
			},
		}, nil
	}

	expected := time.Duration(cfg.ExpectedIntervalMinutes) * time.Minute
	deadline := expected + time.Duration(cfg.GraceMinutes)*time.Minute
	silence := time.Since(*monitor.LastCheckAt)

	meta := map[string]any{
		"last_heartbeat_at":         monitor.LastCheckAt.UTC().Format(time.RFC3339),
		"silence_seconds":           int64(silence.Seconds()),
		"expected_interval_minutes": cfg.ExpectedIntervalMinutes,
	}

	if silence > deadline {
		meta["error"] = fmt.Sprintf("no heartbeat for %s (deadline %s)", silence.Round(time.Second), deadline)
		return &Result{
			Status:   status.Down,
			Message:  fmt.Sprintf("heartbeat overdue by %s", (silence - deadline).Round(time.Second)),
			Metadata: meta,
		}, nil
	}

	// Past 80% of the expected interval the heartbeat is due soon; surface
	// that before the grace period turns it into an outage.
	if silence > expected*4/5 {
		return &Result{
			Status:   status.Degraded,
			Message:  fmt.Sprintf("heartbeat due soon (last %s ago)", silence.Round(time.Second)),
			Metadata: meta,
		}, nil
	}

	return &Result{
		Status:   status.Operational,
		Message:  fmt.Sprintf("last heartbeat %s ago", silence.Round(time.Second)),
		Metadata: meta,
	}, nil
}
