package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"marquee/internal/logging"
)

// ErrAlreadyRunning reports that another scheduler holds the lock.
var ErrAlreadyRunning = errors.New("another marquee scheduler instance is already running")

// Job is one scheduled generation.
type Job func(ctx context.Context) error

// Options configures a Scheduler.
type Options struct {
	Spec       string
	Timezone   string
	LockPath   string
	RunAtStart bool
	Logger     *slog.Logger
}

// Scheduler runs a job on a cron schedule while holding a single-instance lock.
type Scheduler struct {
	spec       string
	schedule   cron.Schedule
	location   *time.Location
	lockPath   string
	runAtStart bool
	logger     *slog.Logger
}

// New validates the cron expression and timezone.
func New(opts Options) (*Scheduler, error) {
	spec := strings.TrimSpace(opts.Spec)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	timezone := strings.TrimSpace(opts.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if strings.TrimSpace(opts.LockPath) == "" {
		return nil, errors.New("scheduler lock path required")
	}
	return &Scheduler{
		spec:       spec,
		schedule:   schedule,
		location:   location,
		lockPath:   opts.LockPath,
		runAtStart: opts.RunAtStart,
		logger:     logging.NewComponentLogger(opts.Logger, "scheduler"),
	}, nil
}

// Next returns the first activation after now in the scheduler's timezone.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now.In(s.location))
}

// Run blocks until ctx is cancelled, invoking job on every activation. An
// activation that fires while the previous one is still running is skipped.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(s.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release scheduler lock", logging.Error(err))
		}
	}()

	runner := cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	wrapped := cron.FuncJob(func() {
		started := time.Now()
		if err := job(ctx); err != nil {
			logging.ErrorWithContext(s.logger, "scheduled run failed", "scheduled_run_failed",
				logging.Error(err),
				logging.Duration("duration", time.Since(started)),
			)
			return
		}
		s.logger.Info("scheduled run finished", logging.Duration("duration", time.Since(started)))
	})
	entry := runner.Schedule(s.schedule, wrapped)

	runner.Start()
	s.logger.Info("scheduler started",
		logging.String("cron", s.spec),
		logging.String("timezone", s.location.String()),
		logging.String("lock", s.lockPath),
		logging.String("next_run", s.Next(time.Now()).Format(time.RFC3339)),
	)
	// cron only waits for jobs it started itself; the start-up run is
	// tracked here so the lock outlives it.
	var startup sync.WaitGroup
	if s.runAtStart {
		startup.Go(runner.Entry(entry).WrappedJob.Run)
	}

	<-ctx.Done()
	stopped := runner.Stop()
	<-stopped.Done()
	startup.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{logging.Error(err)}, keysAndValues...)...)
}
