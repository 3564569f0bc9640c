package uptime

import (
	"context"
	"log/slog"
	"time"

	"github.com/simplewatch/simplewatch/internal/storage"
)

// Refresher periodically recomputes uptime and SLA figures into the
// services' cached fields. The cache is a display convenience only.
type Refresher struct {
	store    storage.Store
	calc     *Calculator
	interval time.Duration
	logger   *slog.Logger
}

func NewRefresher(store storage.Store, calc *Calculator, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{store: store, calc: calc, interval: interval, logger: logger}
}

func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	services, err := r.store.ListServices(ctx, true)
	if err != nil {
		r.logger.Error("cache refresh: list services failed", "error", err)
		return
	}

	for _, svc := range services {
		if err := r.refresh(ctx, svc.ID); err != nil {
			r.logger.Error("cache refresh failed", "service_id", svc.ID, "error", err)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, serviceID int64) error {
	var uptimePct *float64
	var uptimeLabel string
	if res, err := r.calc.Compute(ctx, serviceID); err != nil {
		return err
	} else if res != nil {
		uptimePct = &res.Percentage
		uptimeLabel = res.PeriodLabel
	}

	var slaPct *float64
	var slaStatus string
	var slaBudget *int64
	if sla, err := r.calc.ComputeSLA(ctx, serviceID); err != nil {
		return err
	} else if sla != nil {
		slaPct = &sla.Percentage
		slaStatus = sla.Status
		slaBudget = &sla.ErrorBudgetSeconds
	}

	return r.store.UpdateServiceCache(ctx, serviceID, uptimePct, uptimeLabel, slaPct, slaStatus, slaBudget, time.Now().UTC())
}
