package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner is what the Scheduler triggers.
type Runner interface {
	RunAutoLock(ctx context.Context, runDate time.Time, trigger Trigger) (*Run, AutoLockReport, error)
	RunPlanChange(ctx context.Context, runDate time.Time, trigger Trigger) (*Run, PlanChangeReport, error)
}

type SchedulerConfig struct {
	Location *time.Location
	// AutoLockDay and AutoLockHour give the monthly auto-lock trigger.
	AutoLockDay  int
	AutoLockHour int
	// PlanChangeHour is the daily plan-change trigger.
	PlanChangeHour int
	TickInterval   time.Duration
	Logger         *slog.Logger
}

// Scheduler fires the jobs on their calendar triggers. It holds no business
// logic; each trigger fires at most once per cycle within a process and the
// jobs themselves are idempotent across restarts.
type Scheduler struct {
	runner Runner
	cfg    SchedulerConfig
	now    func() time.Time

	mu           sync.Mutex
	lastAutoLock string
	lastPlan     string
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewScheduler(runner Runner, cfg SchedulerConfig) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if cfg.AutoLockDay < 1 || cfg.AutoLockDay > 28 {
		cfg.AutoLockDay = 1
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler{runner: runner, cfg: cfg, now: time.Now}
}

// Start runs the tick loop in the background until Stop or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)

	go s.loop(ctx)

	s.cfg.Logger.Info("reconcile scheduler started",
		"time_zone", s.cfg.Location.String(),
		"auto_lock_day", s.cfg.AutoLockDay,
		"auto_lock_hour", s.cfg.AutoLockHour,
		"plan_change_hour", s.cfg.PlanChangeHour,
		"tick", s.cfg.TickInterval,
	)
}

// Stop cancels any running job and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()
	s.cfg.Logger.Info("reconcile scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.RunDue(ctx, s.now())

	for {
		select {
		case <-ticker.C:
			s.RunDue(ctx, s.now())
		case <-ctx.Done():
			return
		}
	}
}

// RunDue fires every trigger that is due at now and has not fired yet in its
// cycle. It returns the jobs it started.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) []Job {
	local := now.In(s.cfg.Location)

	var fired []Job

	if key, due := s.autoLockDue(local); due {
		s.fire(JobAutoLock, now, func() error {
			_, _, err := s.runner.RunAutoLock(ctx, now, TriggerSchedule)
			return err
		})

		s.mu.Lock()
		s.lastAutoLock = key
		s.mu.Unlock()

		fired = append(fired, JobAutoLock)
	}

	if key, due := s.planDue(local); due {
		s.fire(JobPlanChange, now, func() error {
			_, _, err := s.runner.RunPlanChange(ctx, now, TriggerSchedule)
			return err
		})

		s.mu.Lock()
		s.lastPlan = key
		s.mu.Unlock()

		fired = append(fired, JobPlanChange)
	}

	return fired
}

func (s *Scheduler) autoLockDue(local time.Time) (string, bool) {
	key := local.Format("2006-01")

	s.mu.Lock()
	defer s.mu.Unlock()

	return key, local.Day() == s.cfg.AutoLockDay &&
		local.Hour() >= s.cfg.AutoLockHour &&
		s.lastAutoLock != key
}

func (s *Scheduler) planDue(local time.Time) (string, bool) {
	key := local.Format(time.DateOnly)

	s.mu.Lock()
	defer s.mu.Unlock()

	return key, local.Hour() >= s.cfg.PlanChangeHour && s.lastPlan != key
}

func (s *Scheduler) fire(job Job, now time.Time, run func() error) {
	s.cfg.Logger.Info("reconcile job triggered", "job", job, "run_date", now)

	if err := run(); err != nil {
		s.cfg.Logger.Error("reconcile job failed", "job", job, "error", err)
	}
}
