package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

//go:generate mockgen -source=service.go -destination=runstore_mock.go -package=reconcile
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

type RunFilter struct {
	Job   *Job
	Limit int
}

// Service runs the jobs and keeps a log of every run.
type Service struct {
	autoLock   *AutoLockJob
	planChange *PlanChangeJob
	runs       RunStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(autoLock *AutoLockJob, planChange *PlanChangeJob, runs RunStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		autoLock:   autoLock,
		planChange: planChange,
		runs:       runs,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) RunAutoLock(ctx context.Context, runDate time.Time, trigger Trigger) (*Run, AutoLockReport, error) {
	started := s.now()

	rep, err := s.autoLock.Run(ctx, runDate)
	if err != nil && rep.Processed == 0 && rep.Failed == 0 {
		return nil, rep, fmt.Errorf("running auto-lock: %w", err)
	}

	run, saveErr := s.record(ctx, JobAutoLock, runDate, started, trigger, rep)
	if saveErr != nil {
		return nil, rep, saveErr
	}

	return run, rep, err
}

func (s *Service) RunPlanChange(ctx context.Context, runDate time.Time, trigger Trigger) (*Run, PlanChangeReport, error) {
	started := s.now()

	rep, err := s.planChange.Run(ctx, runDate)
	if err != nil && rep.Processed == 0 && rep.Failed == 0 {
		return nil, rep, fmt.Errorf("running plan change: %w", err)
	}

	run, saveErr := s.record(ctx, JobPlanChange, runDate, started, trigger, rep)
	if saveErr != nil {
		return nil, rep, saveErr
	}

	return run, rep, err
}

func (s *Service) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	return s.runs.ListRuns(ctx, filter)
}

// record persists a run. A partially completed run, cut short by
// cancellation, is stored too.
func (s *Service) record(ctx context.Context, job Job, runDate, started time.Time, trigger Trigger, report any) (*Run, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding %s report: %w", job, err)
	}

	run := &Run{
		Job:        job,
		RunDate:    runDate,
		StartedAt:  started,
		FinishedAt: s.now(),
		Trigger:    trigger,
		Report:     body,
	}

	// The run's own context may be cancelled already.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.runs.SaveRun(saveCtx, run); err != nil {
		s.logger.Error("saving reconciliation run", "job", job, "error", err)
		return nil, fmt.Errorf("saving %s run: %w", job, err)
	}

	return run, nil
}
