// Package uptime reconstructs a service's aggregated-status timeline to
// compute time-weighted availability and SLA error budgets.
package uptime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// SLA status values, ordered by error budget consumption.
const (
	SLAOk       = "ok"       // < 50% of budget consumed
	SLAAtRisk   = "at_risk"  // < 80%
	SLABreached = "breached" // >= 80%
)

// Result is a computed uptime figure for a display period.
type Result struct {
	Percentage  float64 `json:"percentage"`
	PeriodDays  int     `json:"period_days"`
	PeriodLabel string  `json:"period_label"`
}

// SLAResult reports uptime against a service's configured SLA target.
type SLAResult struct {
	Percentage         float64 `json:"percentage"`
	Status             string  `json:"status"`
	ErrorBudgetSeconds int64   `json:"error_budget_seconds"`
}

// Calculator replays the status history from the store. Results are derived
// from StatusUpdate rows only; the service's cached fields are never read.
type Calculator struct {
	store  storage.Store
	logger *slog.Logger
}

func NewCalculator(store storage.Store, logger *slog.Logger) *Calculator {
	return &Calculator{store: store, logger: logger}
}

// ComputeWindow returns the uptime percentage over (from, now], rounded to
// one decimal. Returns nil when the service has no active monitors or no
// status updates inside the window: "no data" is distinct from 100%.
func (c *Calculator) ComputeWindow(ctx context.Context, serviceID int64, from, now time.Time) (*float64, error) {
	monitors, err := c.store.ListMonitors(ctx, serviceID, true)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	if len(monitors) == 0 {
		return nil, nil
	}

	updates, err := c.store.ListStatusUpdates(ctx, serviceID, from, now)
	if err != nil {
		return nil, fmt.Errorf("list status updates: %w", err)
	}
	if len(updates) == 0 {
		return nil, nil
	}

	// Seed each monitor with its last known status before the window.
	// Monitors with no history yet count as operational.
	current := make(map[int64]status.Status, len(monitors))
	for _, m := range monitors {
		latest, err := c.store.GetLatestStatusBefore(ctx, m.ID, from)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				current[m.ID] = status.Operational
				continue
			}
			return nil, fmt.Errorf("seed monitor %d: %w", m.ID, err)
		}
		current[m.ID] = latest.Status
	}

	var operationalSeconds float64
	prevStatus := status.AggregateMap(current)
	prevTime := from

	for _, u := range updates {
		if prevStatus == status.Operational {
			operationalSeconds += u.Timestamp.Sub(prevTime).Seconds()
		}
		// Rows for monitors no longer active, and legacy rows without a
		// monitor id, advance time without changing the map.
		if u.MonitorID != nil {
			if _, ok := current[*u.MonitorID]; ok {
				current[*u.MonitorID] = u.Status
			}
		}
		prevStatus = status.AggregateMap(current)
		prevTime = u.Timestamp
	}

	if prevStatus == status.Operational {
		operationalSeconds += now.Sub(prevTime).Seconds()
	}

	total := now.Sub(from).Seconds()
	if total <= 0 {
		pct := 100.0
		return &pct, nil
	}
	pct := math.Round(operationalSeconds/total*1000) / 10
	return &pct, nil
}

// Compute returns uptime over the display period: the last year for services
// older than a year, otherwise since creation.
func (c *Calculator) Compute(ctx context.Context, serviceID int64) (*Result, error) {
	svc, err := c.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}

	now := time.Now().UTC()
	var from time.Time
	var periodDays int
	var label string

	if now.Sub(svc.CreatedAt) >= 365*24*time.Hour {
		periodDays = 365
		label = "1y"
		from = now.AddDate(0, 0, -365)
		if svc.CreatedAt.After(from) {
			from = svc.CreatedAt
		}
	} else {
		days := int(now.Sub(svc.CreatedAt).Hours() / 24)
		if days < 1 {
			days = 1
		}
		periodDays = days
		label = fmt.Sprintf("%dd", days)
		from = svc.CreatedAt
	}

	pct, err := c.ComputeWindow(ctx, serviceID, from, now)
	if err != nil || pct == nil {
		return nil, err
	}
	return &Result{Percentage: *pct, PeriodDays: periodDays, PeriodLabel: label}, nil
}

// ComputeSLA evaluates the service's uptime against its configured SLA
// target. Returns nil when the service has no SLA configured or no data in
// the timeframe.
func (c *Calculator) ComputeSLA(ctx context.Context, serviceID int64) (*SLAResult, error) {
	svc, err := c.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc.SLATarget == nil || svc.SLATimeframeDays == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -*svc.SLATimeframeDays)
	if svc.CreatedAt.After(from) {
		from = svc.CreatedAt
	}

	uptimePct, err := c.ComputeWindow(ctx, serviceID, from, now)
	if err != nil || uptimePct == nil {
		return nil, err
	}

	return evaluateSLA(*uptimePct, *svc.SLATarget, *svc.SLATimeframeDays), nil
}

// evaluateSLA is the pure budget computation: the error budget is the
// downtime the target permits over the full timeframe, and consumption is
// measured against it.
func evaluateSLA(uptimePct, target float64, timeframeDays int) *SLAResult {
	totalSeconds := float64(timeframeDays) * 86400
	budgetSeconds := (100 - target) / 100 * totalSeconds
	consumedSeconds := (100 - uptimePct) / 100 * totalSeconds

	remaining := budgetSeconds - consumedSeconds
	if remaining < 0 {
		remaining = 0
	}

	var consumedPct float64
	if budgetSeconds > 0 {
		consumedPct = consumedSeconds / budgetSeconds * 100
	} else if consumedSeconds > 0 {
		// A 100% target has no budget; any downtime is a breach.
		consumedPct = 100
	}

	slaStatus := SLAOk
	switch {
	case consumedPct < 50:
		slaStatus = SLAOk
	case consumedPct < 80:
		slaStatus = SLAAtRisk
	default:
		slaStatus = SLABreached
	}

	return &SLAResult{
		Percentage:         math.Round(uptimePct*100) / 100,
		Status:             slaStatus,
		ErrorBudgetSeconds: int64(remaining),
	}
}
