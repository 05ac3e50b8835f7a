package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/metrics"
)

const defaultCooldown = 5 * time.Minute

// NextMidnightUTC returns the first midnight strictly after now. Anchoring
// each wait to the absolute wall-clock target keeps the schedule drift-free
// no matter how long a run takes.
func NextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// WaitUntil sleeps until target or until the context is canceled. It returns
// false when the wait was interrupted.
func WaitUntil(ctx context.Context, target time.Time) bool {
	delay := time.Until(target)
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// AnchoredRunnerParams configure an anchored runner.
type AnchoredRunnerParams struct {
	Logger   *logger.Logger
	Job      Job
	Lock     Lock
	Metrics  *metrics.SweepJobMetrics
	Cooldown time.Duration
}

// AnchoredRunner executes one job daily at an absolute wall-clock anchor
// (midnight UTC). After each run it cools down before computing the next
// anchor, so a run finishing just before midnight cannot fire twice.
type AnchoredRunner struct {
	logg     *logger.Logger
	job      Job
	lock     Lock
	metrics  *metrics.SweepJobMetrics
	cooldown time.Duration

	nextAnchor func(time.Time) time.Time
	now        func() time.Time
}

// NewAnchoredRunner builds an anchored runner.
func NewAnchoredRunner(params AnchoredRunnerParams) (*AnchoredRunner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Job == nil {
		return nil, fmt.Errorf("job required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	cooldown := params.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &AnchoredRunner{
		logg:       params.Logger,
		job:        params.Job,
		lock:       params.Lock,
		metrics:    params.Metrics,
		cooldown:   cooldown,
		nextAnchor: NextMidnightUTC,
		now:        time.Now,
	}, nil
}

// Run waits for each anchor and executes the job until the context is
// canceled. An in-flight run finishes before cancellation is observed.
func (r *AnchoredRunner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		target := r.nextAnchor(r.now())
		logCtx := r.logg.WithField(ctx, "next_run", target.Format(time.RFC3339))
		r.logg.Info(logCtx, "waiting for next anchored run")

		if !WaitUntil(ctx, target) {
			r.logg.Info(ctx, "anchored runner context canceled")
			return ctx.Err()
		}

		r.runOnce(ctx)

		if !WaitUntil(ctx, r.now().Add(r.cooldown)) {
			r.logg.Info(ctx, "anchored runner context canceled")
			return ctx.Err()
		}
	}
}

func (r *AnchoredRunner) runOnce(ctx context.Context) {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		r.logg.Error(ctx, "lock acquire failed", err)
		return
	}
	if !locked {
		r.logg.Info(ctx, "another sweep instance is running; skipping this run")
		return
	}
	defer func() {
		if relErr := r.lock.Release(ctx); relErr != nil {
			r.logg.Error(ctx, "failed to release sweep lock", relErr)
		}
	}()

	runJob(ctx, r.logg, r.metrics, r.job)
}
