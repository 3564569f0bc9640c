package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/simplewatch/simplewatch/internal/checker"
	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// PollerConfig tunes the polling loop.
type PollerConfig struct {
	Tick          time.Duration // how often due monitors are selected
	Workers       int
	CheckTimeout  time.Duration
	ChecksPerSec  float64 // outbound rate limit across all workers
	InitWindow    time.Duration
}

func (c *PollerConfig) withDefaults() PollerConfig {
	out := *c
	if out.Tick <= 0 {
		out.Tick = 30 * time.Second
	}
	if out.Workers <= 0 {
		out.Workers = 10
	}
	if out.CheckTimeout <= 0 {
		out.CheckTimeout = 30 * time.Second
	}
	if out.ChecksPerSec <= 0 {
		out.ChecksPerSec = 25
	}
	if out.InitWindow <= 0 {
		out.InitWindow = time.Minute
	}
	return out
}

// Poller selects due monitors from the store on a fixed tick and hands them
// to the worker pool. Schedules live in the database, so a restart resumes
// where the previous process stopped.
type Poller struct {
	store    storage.Store
	registry *checker.Registry
	recorder *Recorder
	cfg      PollerConfig
	logger   *slog.Logger

	jobs    chan Job
	results chan WorkerResult
}

func NewPoller(store storage.Store, registry *checker.Registry, recorder *Recorder, cfg PollerConfig, logger *slog.Logger) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		store:    store,
		registry: registry,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		jobs:     make(chan Job, cfg.Workers*2),
		results:  make(chan WorkerResult, cfg.Workers*2),
	}
}

func (p *Poller) Run(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Limit(p.cfg.ChecksPerSec), p.cfg.Workers)
	pool := NewPool(p.cfg.Workers, p.registry, limiter, p.cfg.CheckTimeout, p.jobs, p.results, p.logger)
	go pool.Run(ctx)
	go p.processResults(ctx)

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	p.tick(ctx, time.Now().UTC())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.tick(ctx, now.UTC())
		}
	}
}

func (p *Poller) tick(ctx context.Context, now time.Time) {
	// Monitors created since the last tick have no schedule yet; give them
	// one slightly in the future instead of firing the whole batch at once.
	if n, err := p.store.InitializeNextChecks(ctx, now.Add(p.cfg.InitWindow)); err != nil {
		p.logger.Error("poller: initialize schedules failed", "error", err)
	} else if n > 0 {
		p.logger.Info("poller: initialized monitor schedules", "count", n)
	}

	due, err := p.store.ListDueMonitors(ctx, now)
	if err != nil {
		p.logger.Error("poller: list due monitors failed", "error", err)
		return
	}

	dispatched := 0
	for _, m := range due {
		if p.registry.IsPassive(m.Type) {
			continue
		}
		select {
		case p.jobs <- Job{Monitor: m}:
			// Reschedule at dispatch so a check that runs close to the tick
			// stays out of the next due set instead of being dispatched
			// again while still in flight.
			next := now.Add(time.Duration(m.Interval) * time.Minute)
			if err := p.store.UpdateMonitorSchedule(ctx, m.ID, nil, &next); err != nil {
				p.logger.Error("poller: update monitor schedule failed", "monitor_id", m.ID, "error", err)
			}
			dispatched++
		default:
			// Left unscheduled on purpose: the monitor stays due and is
			// retried next tick.
			p.logger.Warn("poller: job channel full, deferring monitor", "monitor_id", m.ID)
		}
	}
	if dispatched > 0 {
		p.logger.Debug("poller tick", "due", len(due), "dispatched", dispatched)
	}
}

func (p *Poller) processResults(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case wr, ok := <-p.results:
			if !ok {
				return
			}
			p.handleResult(ctx, wr)
		}
	}
}

// handleResult records one outcome and stamps last_check_at. Rescheduling
// happened at dispatch; failures are contained per monitor so the rest of
// the batch keeps flowing.
func (p *Poller) handleResult(ctx context.Context, wr WorkerResult) {
	m := wr.Monitor

	result := wr.Result
	if wr.Err != nil {
		p.logger.Error("check failed", "monitor_id", m.ID, "type", m.Type, "error", wr.Err)
		result = &checker.Result{
			Status:   status.Down,
			Message:  wr.Err.Error(),
			Metadata: map[string]any{"error": wr.Err.Error()},
		}
	}

	if err := p.recorder.Record(ctx, m, result); err != nil {
		p.logger.Error("record check result failed", "monitor_id", m.ID, "error", err)
	}

	if p.registry.ExternalLiveness(m.Type) {
		// Liveness for these types is signaled by heartbeats, not polls.
		return
	}
	now := time.Now().UTC()
	if err := p.store.UpdateMonitorSchedule(ctx, m.ID, &now, nil); err != nil {
		p.logger.Error("update monitor schedule failed", "monitor_id", m.ID, "error", err)
	}
}
