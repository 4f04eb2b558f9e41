package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

// ErrLockHeld is returned by RunOnce when another worker owns the sweep lock.
var ErrLockHeld = errors.New("sweep lock held by another worker")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.SweepMetrics
	Interval time.Duration
}

// Service runs the registered sweeps on a fixed cadence, one worker at a time.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.SweepMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run sweeps immediately and then on every tick until ctx is done. Job
// failures are logged; they never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	jobs := s.registry.Jobs()
	s.cycle(ctx, jobs)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "sweep worker stopping")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx, jobs)
		}
	}
}

// RunOnce runs the named jobs (all when names is empty) a single time and
// returns their combined errors.
func (s *Service) RunOnce(ctx context.Context, names ...string) error {
	jobs, err := s.registry.Select(names...)
	if err != nil {
		return err
	}
	ran, err := s.runLocked(ctx, jobs)
	if err != nil {
		return err
	}
	if !ran {
		return ErrLockHeld
	}
	return nil
}

func (s *Service) cycle(ctx context.Context, jobs []Job) {
	ran, err := s.runLocked(ctx, jobs)
	if !ran && err == nil {
		s.logg.Info(ctx, "another worker holds the sweep lock; skipping this cycle")
		return
	}
	if err != nil {
		s.logg.Error(ctx, "sweep cycle finished with errors", err)
	}
}

// runLocked reports whether the lock was acquired and the jobs ran.
func (s *Service) runLocked(ctx context.Context, jobs []Job) (bool, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.LockMissed()
		return false, nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release sweep lock", relErr)
		}
	}()

	var combined error
	for _, job := range jobs {
		if ctx.Err() != nil {
			return true, multierr.Append(combined, ctx.Err())
		}
		combined = multierr.Append(combined, s.runJob(ctx, job))
	}
	return true, combined
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithJob(ctx, name)

	start := time.Now()
	result, err := job.Run(jobCtx)
	took := time.Since(start)

	if result.Skipped && err == nil {
		s.metrics.ObserveSkip(name)
		s.logg.Debug(jobCtx, "job not due")
		return nil
	}
	s.metrics.ObserveRun(name, took, result.Processed, err)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": took.Milliseconds(),
		"processed":   result.Processed,
	})
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}
