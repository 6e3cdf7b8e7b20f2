package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
)

// Tenants is the slice of client.Service the jobs need.
type Tenants interface {
	ListClientIDs(ctx context.Context) ([]uuid.UUID, error)
	Mutate(ctx context.Context, id uuid.UUID, fn client.MutateFunc) (*client.Client, error)
}

// JobConfig is shared by both jobs.
type JobConfig struct {
	Location *time.Location
	// TenantPause is slept between tenants to spread load on the mail API.
	TenantPause time.Duration
	Logger      *slog.Logger
	Notifier    client.Notifier
	Now         func() time.Time
}

func (c JobConfig) withDefaults() JobConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	return c
}

// forEachTenant runs fn for every tenant in order. A failing or panicking
// tenant is turned into a Failure; only listing errors and cancellation stop
// the loop.
func forEachTenant(ctx context.Context, tenants Tenants, cfg JobConfig, fn func(id uuid.UUID) error) ([]Failure, error) {
	ids, err := tenants.ListClientIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}

	var failures []Failure

	for i, id := range ids {
		if i > 0 && cfg.TenantPause > 0 {
			select {
			case <-ctx.Done():
				return failures, ctx.Err()
			case <-time.After(cfg.TenantPause):
			}
		}

		if err := ctx.Err(); err != nil {
			return failures, err
		}

		if err := safeCall(id, fn); err != nil {
			cfg.Logger.Error("reconciling tenant", "client_id", id, "error", err)
			failures = append(failures, Failure{ClientID: id, Error: err.Error()})
		}
	}

	return failures, nil
}

func safeCall(id uuid.UUID, fn func(uuid.UUID) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn(id)
}

// AutoLockJob locks, for every tenant, the month before the run date.
type AutoLockJob struct {
	tenants Tenants
	cfg     JobConfig
}

func NewAutoLockJob(tenants Tenants, cfg JobConfig) *AutoLockJob {
	return &AutoLockJob{tenants: tenants, cfg: cfg.withDefaults()}
}

// Target is the calendar month preceding runDate in the job's zone.
func (j *AutoLockJob) Target(runDate time.Time) ledger.Period {
	return ledger.PeriodOf(runDate, j.cfg.Location).Previous()
}

// Run creates the target month where missing and locks it. Re-running in the
// same cycle only counts the months as already locked.
func (j *AutoLockJob) Run(ctx context.Context, runDate time.Time) (AutoLockReport, error) {
	target := j.Target(runDate)
	rep := AutoLockReport{Target: target, Failures: []Failure{}}

	failures, err := forEachTenant(ctx, j.tenants, j.cfg, func(id uuid.UUID) error {
		var (
			outcome ledger.LockOutcome
			status  ledger.ActiveStatus
		)

		c, err := j.tenants.Mutate(ctx, id, func(c *client.Client) (bool, error) {
			now := j.cfg.Now()

			m, created, err := c.Tree.GetOrCreate(target, c.ActivityWindow().StatusFor(target, j.cfg.Location), now)
			if err != nil {
				return false, err
			}

			status = m.ActiveStatus
			outcome = ledger.Lock(m, ledger.SystemActor, now)

			if outcome == ledger.LockApplied {
				m.AutoLockDate = &now
			}

			return created || outcome == ledger.LockApplied, nil
		})
		if err != nil {
			return err
		}

		rep.Processed++

		if status == ledger.StatusInactive {
			rep.InactiveMonths++
		}

		switch outcome {
		case ledger.LockApplied:
			rep.NewlyLocked++

			if j.cfg.Notifier != nil {
				j.cfg.Notifier.MonthLocked(ctx, c, target, ledger.SystemActor)
			}
		case ledger.LockAlreadyHeld:
			rep.AlreadyLocked++
		}

		return nil
	})

	rep.Failures = append(rep.Failures, failures...)
	rep.Failed = len(rep.Failures)

	j.cfg.Logger.Info("auto-lock run finished",
		"target", target.String(),
		"processed", rep.Processed,
		"newly_locked", rep.NewlyLocked,
		"already_locked", rep.AlreadyLocked,
		"inactive_months", rep.InactiveMonths,
		"failed", rep.Failed,
	)

	return rep, err
}

// PlanChangeJob moves pending plans into place on the first day of a month.
type PlanChangeJob struct {
	tenants Tenants
	plans   *plan.Scheduler
	cfg     JobConfig
}

func NewPlanChangeJob(tenants Tenants, plans *plan.Scheduler, cfg JobConfig) *PlanChangeJob {
	cfg = cfg.withDefaults()

	if plans == nil {
		plans = plan.NewScheduler(nil, cfg.Location)
	}

	return &PlanChangeJob{tenants: tenants, plans: plans, cfg: cfg}
}

// Run is a no-op unless runDate is the first day of its month.
func (j *PlanChangeJob) Run(ctx context.Context, runDate time.Time) (PlanChangeReport, error) {
	rep := PlanChangeReport{Failures: []Failure{}}

	if !j.plans.IsPeriodStart(runDate) {
		rep.Skipped = true
		return rep, nil
	}

	failures, err := forEachTenant(ctx, j.tenants, j.cfg, func(id uuid.UUID) error {
		var record plan.ChangeRecord

		c, err := j.tenants.Mutate(ctx, id, func(c *client.Client) (bool, error) {
			record = plan.ChangeRecord{}

			sub := &c.Subscription
			if sub.PendingPlan == "" || (sub.PendingFrom != nil && sub.PendingFrom.After(runDate)) {
				return false, nil
			}

			var applied bool

			record, applied = j.plans.ApplyPending(sub, runDate)

			return applied, nil
		})
		if err != nil {
			return err
		}

		rep.Processed++

		if record.ToPlan == "" {
			return nil
		}

		rep.Applied++

		if j.cfg.Notifier != nil {
			p, _ := j.plans.Catalog().Lookup(record.ToPlan)
			j.cfg.Notifier.PlanChanged(ctx, c, plan.Outcome{
				ActivePlan:    record.ToPlan,
				EffectiveFrom: record.EffectiveFrom,
				Immediate:     true,
				Fee:           p.MonthlyFee,
			})
		}

		return nil
	})

	rep.Failures = append(rep.Failures, failures...)
	rep.Failed = len(rep.Failures)

	j.cfg.Logger.Info("plan-change run finished",
		"run_date", runDate.Format(time.DateOnly),
		"processed", rep.Processed,
		"applied", rep.Applied,
		"failed", rep.Failed,
	)

	return rep, err
}
