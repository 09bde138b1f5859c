package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/resourcesync/internal/generator"
	"git.home.luguber.info/inful/resourcesync/internal/logfields"
)

// Runner executes one generator workflow.
type Runner interface {
	Run(ctx context.Context, mode generator.Mode) (*generator.Result, error)
}

// Scheduler wraps gocron scheduler for periodic generator runs.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    Runner
	ctx       context.Context
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(runner Runner) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, runner: runner, ctx: context.Background()}, nil
}

// Start begins the scheduler. Runs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.ctx = ctx
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// SchedulePeriodicRun schedules mode every interval. A run that is still
// going when the next one is due makes gocron reschedule instead of
// starting a second copy. Returns the job ID.
func (s *Scheduler) SchedulePeriodicRun(interval time.Duration, mode generator.Mode) (string, error) {
	name := fmt.Sprintf("%s-run", mode)
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.executeRun, mode),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic %s job: %w", mode, err)
	}
	slog.Info("Scheduled periodic run", logfields.ScheduleName(name), slog.Duration("interval", interval))
	return job.ID().String(), nil
}

// executeRun is called by gocron. Errors are already logged by the generator.
func (s *Scheduler) executeRun(mode generator.Mode) {
	if s.ctx.Err() != nil {
		return
	}
	slog.Debug("Executing scheduled run", logfields.Mode(string(mode)))
	_, _ = s.runner.Run(s.ctx, mode)
}
