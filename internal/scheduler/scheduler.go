package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Task is one unit of scheduled work, typically a snapshot run.
type Task func(ctx context.Context) error

// Scheduler owns the watch loop: it runs a task immediately and then once
// per interval until its context is cancelled.
type Scheduler struct {
	name     string
	task     Task
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs task every interval.
func NewScheduler(name string, task Task, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		name:     name,
		task:     task,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. A failing run is logged and the next one is still
// scheduled. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "task", s.name, "interval", s.interval.String())

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler", "task", s.name)
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.task(ctx); err != nil {
		s.logger.Error("scheduled run failed", "task", s.name, "error", err)
		return
	}
	s.logger.Debug("scheduled run complete", "task", s.name, "duration", time.Since(start).Round(time.Millisecond))
}
