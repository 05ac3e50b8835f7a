package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// IntervalRunnerParams configure an interval runner.
type IntervalRunnerParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.SweepJobMetrics
	Interval time.Duration
}

// IntervalRunner executes registered sweep jobs on a fixed cadence. The first
// cycle runs immediately so a restarted worker does not wait a full interval
// to catch up.
type IntervalRunner struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.SweepJobMetrics
	interval time.Duration
}

// NewIntervalRunner builds an interval runner.
func NewIntervalRunner(params IntervalRunnerParams) (*IntervalRunner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &IntervalRunner{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run starts the sweep loop until the context is canceled. An in-flight
// cycle finishes before the loop observes cancellation.
func (r *IntervalRunner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.runCycle(ctx); err != nil {
		r.logg.Error(ctx, "sweep cycle failed", err)
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "interval runner context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := r.runCycle(ctx); err != nil {
				r.logg.Error(ctx, "sweep cycle failed", err)
			}
		}
	}
}

func (r *IntervalRunner) runCycle(ctx context.Context) error {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		r.logg.Info(ctx, "another sweep instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := r.lock.Release(ctx); relErr != nil {
			r.logg.Error(ctx, "failed to release sweep lock", relErr)
		}
	}()

	for _, job := range r.registry.Jobs() {
		runJob(ctx, r.logg, r.metrics, job)
	}
	return nil
}

// runJob executes one job with logging and metrics. Shared by both runners.
func runJob(ctx context.Context, logg *logger.Logger, m *metrics.SweepJobMetrics, job Job) {
	jobCtx := logg.WithField(ctx, "job", job.Name())
	logg.Info(jobCtx, "sweep job start")
	start := time.Now()
	items, err := job.Run(jobCtx)
	duration := time.Since(start)
	if m != nil {
		m.ObserveDuration(job.Name(), duration)
		m.AddItems(job.Name(), items)
	}
	jobCtx = logg.WithFields(jobCtx, map[string]any{
		"duration_ms": duration.Milliseconds(),
		"items":       items,
	})
	if err != nil {
		logg.Error(jobCtx, "sweep job failed", err)
		if m != nil {
			m.IncFailure(job.Name())
		}
		return
	}
	logg.Info(jobCtx, "sweep job completed")
	if m != nil {
		m.IncSuccess(job.Name())
	}
}
