package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/coursehub-backend/pkg/logger"
	"github.com/angelmondragon/coursehub-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// ErrLocked is returned by RunOnce when another worker holds the cycle lock.
var ErrLocked = errors.New("cron lock held by another worker")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	Clock    func() time.Time
}

// Service runs every registered job once per tick while holding Lock.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Lock == nil:
		return nil, fmt.Errorf("lock required")
	case params.Registry == nil || len(params.Registry.Jobs()) == 0:
		return nil, fmt.Errorf("at least one cron job required")
	}
	s := &Service{
		logg:     params.Logger,
		jobs:     params.Registry.Jobs(),
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      params.Clock,
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Run executes a cycle immediately and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		switch err := s.RunOnce(ctx); {
		case errors.Is(err, ErrLocked):
			s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		case err != nil:
			s.logg.Error(ctx, "scheduled run failed", err)
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle and returns the combined job failures.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	cycleAt := s.now()
	cycleCtx := s.logg.WithField(ctx, "cycle_at", cycleAt.UTC().Format(time.RFC3339))
	s.logg.Info(cycleCtx, "scheduled run starting")
	for _, job := range s.jobs {
		if jobErr := s.runJob(cycleCtx, job, cycleAt); jobErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	s.logg.Info(cycleCtx, "scheduled run complete")
	return err
}

func (s *Service) runJob(ctx context.Context, job Job, cycleAt time.Time) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	s.logg.Info(ctx, "job start")

	started := time.Now()
	err := job.Run(ctx, cycleAt)
	took := time.Since(started)
	s.metrics.ObserveJob(job.Name(), took, cycleAt.Add(took), err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		return err
	}
	s.logg.Info(ctx, "job completed")
	return nil
}
