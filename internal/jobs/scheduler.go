package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of periodic work driven by the scheduler.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler drives the missed-ping sweep on a fixed schedule. Overlapping
// runs are skipped so sweeps never execute concurrently, and a panicking
// job never takes down the host process.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	started atomic.Bool
}

// NewScheduler creates a new job scheduler.
func NewScheduler(log *zap.Logger) *Scheduler {
	cronLog := &cronLogger{log: log.With(zap.String("component", "scheduler"))}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(
				cron.SkipIfStillRunning(cronLog),
				cron.Recover(cronLog),
			),
		),
		log: log.With(zap.String("component", "scheduler")),
	}
}

// AddJob registers a job on the given cron schedule (with a seconds field).
// Errors returned by the job are logged and do not stop future runs.
func (s *Scheduler) AddJob(schedule, name string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(context.Background()); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.started.Store(true)
	s.log.Info("job scheduler started")
}

// Stop stops the scheduler and waits for an in-flight job to finish, up to
// the given grace period.
func (s *Scheduler) Stop(grace time.Duration) {
	stopCtx := s.cron.Stop()
	s.started.Store(false)

	select {
	case <-stopCtx.Done():
	case <-time.After(grace):
		s.log.Warn("job still running after grace period, abandoning")
	}
	s.log.Info("job scheduler stopped")
}

// Running reports whether the periodic jobs are active. The health endpoint
// uses this as the scheduler liveness signal.
func (s *Scheduler) Running() bool {
	return s.started.Load()
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	log *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Infow(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
