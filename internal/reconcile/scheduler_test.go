package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

type fakeRunner struct {
	mu         sync.Mutex
	autoLocks  []time.Time
	planRuns   []time.Time
	autoLockFn func() error
}

func (f *fakeRunner) RunAutoLock(_ context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.AutoLockReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.autoLocks = append(f.autoLocks, runDate)

	var err error
	if f.autoLockFn != nil {
		err = f.autoLockFn()
	}

	return &reconcile.Run{Job: reconcile.JobAutoLock, Trigger: trigger}, reconcile.AutoLockReport{}, err
}

func (f *fakeRunner) RunPlanChange(_ context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.PlanChangeReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.planRuns = append(f.planRuns, runDate)

	return &reconcile.Run{Job: reconcile.JobPlanChange, Trigger: trigger}, reconcile.PlanChangeReport{}, nil
}

func TestScheduler_RunDue(t *testing.T) {
	runner := &fakeRunner{}
	s := reconcile.NewScheduler(runner, reconcile.SchedulerConfig{
		AutoLockDay:    1,
		AutoLockHour:   1,
		PlanChangeHour: 2,
	})
	ctx := context.Background()

	type step struct {
		at   time.Time
		want []reconcile.Job
	}

	steps := []step{
		{at: time.Date(2025, 7, 1, 0, 30, 0, 0, time.UTC), want: nil},
		{at: time.Date(2025, 7, 1, 1, 0, 0, 0, time.UTC), want: []reconcile.Job{reconcile.JobAutoLock}},
		{at: time.Date(2025, 7, 1, 1, 30, 0, 0, time.UTC), want: nil},
		{at: time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC), want: []reconcile.Job{reconcile.JobPlanChange}},
		{at: time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC), want: nil},
		{at: time.Date(2025, 7, 2, 3, 0, 0, 0, time.UTC), want: []reconcile.Job{reconcile.JobPlanChange}},
		{at: time.Date(2025, 8, 1, 5, 0, 0, 0, time.UTC), want: []reconcile.Job{reconcile.JobAutoLock, reconcile.JobPlanChange}},
	}

	for _, st := range steps {
		assert.Equal(t, st.want, s.RunDue(ctx, st.at), st.at.String())
	}

	assert.Len(t, runner.autoLocks, 2)
	assert.Len(t, runner.planRuns, 3)
}

func TestScheduler_TimeZone(t *testing.T) {
	runner := &fakeRunner{}
	tz := time.FixedZone("UTC-3", -3*60*60)

	s := reconcile.NewScheduler(runner, reconcile.SchedulerConfig{
		Location:       tz,
		AutoLockDay:    1,
		AutoLockHour:   0,
		PlanChangeHour: 23,
	})

	// 02:00 UTC on July 1st is still June 30th, 23:00 at UTC-3.
	fired := s.RunDue(context.Background(), time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, []reconcile.Job{reconcile.JobPlanChange}, fired)

	fired = s.RunDue(context.Background(), time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, []reconcile.Job{reconcile.JobAutoLock}, fired)
}

func TestScheduler_FailedRunIsNotRetriedInCycle(t *testing.T) {
	runner := &fakeRunner{autoLockFn: func() error { return errors.New("db down") }}
	s := reconcile.NewScheduler(runner, reconcile.SchedulerConfig{AutoLockDay: 1, PlanChangeHour: 23})

	at := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	s.RunDue(context.Background(), at)
	s.RunDue(context.Background(), at.Add(time.Hour))

	assert.Len(t, runner.autoLocks, 1)
}

func TestScheduler_StartStop(t *testing.T) {
	runner := &fakeRunner{}
	s := reconcile.NewScheduler(runner, reconcile.SchedulerConfig{TickInterval: 10 * time.Millisecond})

	s.Start(context.Background())
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()

		return len(runner.planRuns) == 1
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestService_RunAutoLockRecordsRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tenants := newTenantSet(newTenant("a"))
	runs := reconcile.NewMockRunStore(ctrl)

	runs.EXPECT().
		SaveRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *reconcile.Run) error {
			assert.Equal(t, reconcile.JobAutoLock, run.Job)
			assert.Equal(t, reconcile.TriggerManual, run.Trigger)
			assert.Equal(t, julyFirst, run.RunDate)

			rep, err := run.AutoLock()
			require.NoError(t, err)
			assert.Equal(t, 1, rep.NewlyLocked)

			return nil
		})

	svc := reconcile.NewService(
		reconcile.NewAutoLockJob(tenants, reconcile.JobConfig{}),
		reconcile.NewPlanChangeJob(tenants, nil, reconcile.JobConfig{}),
		runs,
		nil,
	)

	run, rep, err := svc.RunAutoLock(context.Background(), julyFirst, reconcile.TriggerManual)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 1, rep.Processed)
}

func TestService_ListRunsDefaultsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runs := reconcile.NewMockRunStore(ctrl)
	runs.EXPECT().ListRuns(gomock.Any(), reconcile.RunFilter{Limit: 50}).Return(nil, nil)

	svc := reconcile.NewService(nil, nil, runs, nil)

	_, err := svc.ListRuns(context.Background(), reconcile.RunFilter{})
	require.NoError(t, err)
}
