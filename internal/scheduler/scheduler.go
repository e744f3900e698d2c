package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"funnelcli/internal/config"
	"funnelcli/internal/errors"
	"funnelcli/internal/infrastructure"
)

// Job is one scheduled unit of work, usually a full ETL run
type Job func(ctx context.Context) error

// Scheduler runs a Job once a day at a fixed UTC time and retries failed runs
type Scheduler struct {
	cfg    config.ScheduleConfig
	job    Job
	logger *slog.Logger
}

// New creates a scheduler for job
func New(cfg config.ScheduleConfig, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		job:    job,
		logger: infrastructure.WithComponent(logger, "scheduler"),
	}
}

// Start schedules the daily run and blocks until ctx is cancelled.
// Runs never overlap; a run still in progress when the next one is due
// makes the scheduler skip that tick.
func (s *Scheduler) Start(ctx context.Context) error {
	cron, job, err := s.schedule(ctx)
	if err != nil {
		return err
	}

	cron.StartAsync()
	s.logger.InfoContext(ctx, "scheduler started",
		slog.String("at", s.cfg.At),
		slog.Time("next_run", job.NextRun()))

	<-ctx.Done()
	cron.Stop()
	s.logger.InfoContext(ctx, "scheduler stopped")
	return nil
}

func (s *Scheduler) schedule(ctx context.Context) (*gocron.Scheduler, *gocron.Job, error) {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	job, err := cron.Every(1).Day().At(s.cfg.At).Do(func() {
		if err := s.RunWithRetry(ctx); err != nil {
			s.logger.ErrorContext(ctx, "scheduled run failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, nil, errors.NewConfigError(fmt.Sprintf("invalid schedule time %q", s.cfg.At), err)
	}
	return cron, job, nil
}

// RunWithRetry runs the job up to Retries+1 times, waiting RetryDelay between
// attempts. It returns the last error, or the context error when cancelled
// while waiting.
func (s *Scheduler) RunWithRetry(ctx context.Context) error {
	attempts := s.cfg.Retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		runID := infrastructure.GenerateRunID()
		runCtx := infrastructure.WithRunID(ctx, runID)
		logger := infrastructure.LoggerWithContext(runCtx, s.logger)

		start := time.Now()
		lastErr = s.job(runCtx)
		if lastErr == nil {
			logger.InfoContext(runCtx, "run succeeded",
				slog.Int("attempt", attempt),
				slog.Duration("duration", time.Since(start)))
			return nil
		}

		infrastructure.WithError(logger, lastErr).WarnContext(runCtx, "run failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts))

		if ctx.Err() != nil {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(s.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
