package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/simplewatch/simplewatch/internal/checker"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// Job is one check to execute.
type Job struct {
	Monitor *storage.Monitor
}

// WorkerResult holds the outcome of a check job.
type WorkerResult struct {
	Monitor *storage.Monitor
	Result  *checker.Result
	Err     error
}

// Pool runs checks on a fixed set of worker goroutines. Outbound checks are
// throttled by a shared rate limiter so a large due batch cannot stampede
// targets or exhaust local sockets.
type Pool struct {
	workers      int
	registry     *checker.Registry
	limiter      *rate.Limiter
	checkTimeout time.Duration
	jobs         <-chan Job
	results      chan<- WorkerResult
	logger       *slog.Logger
}

func NewPool(workers int, registry *checker.Registry, limiter *rate.Limiter, checkTimeout time.Duration, jobs <-chan Job, results chan<- WorkerResult, logger *slog.Logger) *Pool {
	if checkTimeout <= 0 {
		checkTimeout = 30 * time.Second
	}
	return &Pool{
		workers:      workers,
		registry:     registry,
		limiter:      limiter,
		checkTimeout: checkTimeout,
		jobs:         jobs,
		results:      results,
		logger:       logger,
	}
}

func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
	<-ctx.Done()
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.executeJob(ctx, job)
		}
	}
}

func (p *Pool) executeJob(ctx context.Context, job Job) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()

	result, err := p.runCheck(checkCtx, job.Monitor)

	select {
	case p.results <- WorkerResult{Monitor: job.Monitor, Result: result, Err: err}:
	case <-ctx.Done():
	}
}

// runCheck contains the panic boundary: a buggy checker takes down its own
// result, never the worker.
func (p *Pool) runCheck(ctx context.Context, m *storage.Monitor) (result *checker.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("checker panicked", "monitor_id", m.ID, "type", m.Type, "panic", r)
			result = nil
			err = fmt.Errorf("checker panic: %v", r)
		}
	}()

	c, err := p.registry.Get(m.Type)
	if err != nil {
		return nil, err
	}
	return c.Check(ctx, m)
}
