package checker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// MetricConfig is the opaque monitor config for metric threshold monitors.
type MetricConfig struct {
	Name              string   `json:"name,omitempty"`
	WarningThreshold  *float64 `json:"warning_threshold"`
	CriticalThreshold *float64 `json:"critical_threshold"`
	// Comparison is "greater" (value above threshold is bad, the default)
	// or "less" (value below threshold is bad).
	Comparison string `json:"comparison,omitempty"`
	Unit       string `json:"unit,omitempty"`
}

// MetricChecker is passive: values arrive through the ingestion path and are
// graded against the configured thresholds. Check is never polled.
type MetricChecker struct{}

func (c *MetricChecker) Type() string { return "metric_threshold" }

func (c *MetricChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	return &Result{
		Status:  status.Unknown,
		Message: "metric monitors are passive and receive values via ingestion",
	}, nil
}

// EvaluateValue grades a pushed metric value against the monitor's
// thresholds.
func (c *MetricChecker) EvaluateValue(monitor *storage.Monitor, value float64) (*Result, error) {
	var cfg MetricConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.WarningThreshold == nil || cfg.CriticalThreshold == nil {
		return nil, fmt.Errorf("warning_threshold and critical_threshold must be configured")
	}

	meta := map[string]any{
		"value":              value,
		"warning_threshold":  *cfg.WarningThreshold,
		"critical_threshold": *cfg.CriticalThreshold,
	}
	if cfg.Unit != "" {
		meta["unit"] = cfg.Unit
	}

	breaches := func(threshold float64) bool {
		if cfg.Comparison == "less" {
			return value <= threshold
		}
		return value >= threshold
	}

	switch {
	case breaches(*cfg.CriticalThreshold):
		msg := fmt.Sprintf("value %g breaches critical threshold %g", value, *cfg.CriticalThreshold)
		meta["error"] = msg
		return &Result{Status: status.Down, Message: msg, Metadata: meta}, nil
	case breaches(*cfg.WarningThreshold):
		msg := fmt.Sprintf("value %g breaches warning threshold %g", value, *cfg.WarningThreshold)
		meta["error"] = msg
		return &Result{Status: status.Degraded, Message: msg, Metadata: meta}, nil
	default:
		return &Result{
			Status:   status.Operational,
			Message:  fmt.Sprintf("value %g within normal range", value),
			Metadata: meta,
		}, nil
	}
}
