package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/cli"
	"github.com/MrJamesThe3rd/ledgerly/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

var (
	lisbon = time.FixedZone("WEST", 60*60)
	now    = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	failed = uuid.MustParse("7d1f3c2e-4b5a-4c6d-8e9f-0a1b2c3d4e5f")
)

type fakeReconcile struct {
	runDate time.Time
	trigger reconcile.Trigger
	filter  reconcile.RunFilter
	err     error
}

func (f *fakeReconcile) RunAutoLock(_ context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.AutoLockReport, error) {
	f.runDate, f.trigger = runDate, trigger

	rep := reconcile.AutoLockReport{
		Target:      ledger.Period{Year: 2025, Month: 6},
		Processed:   3,
		NewlyLocked: 2,
		Failed:      1,
		Failures:    []reconcile.Failure{{ClientID: failed, Error: "quarantined"}},
	}

	return &reconcile.Run{Job: reconcile.JobAutoLock, Trigger: trigger, RunDate: runDate}, rep, f.err
}

func (f *fakeReconcile) RunPlanChange(_ context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.PlanChangeReport, error) {
	f.runDate, f.trigger = runDate, trigger

	if f.err != nil {
		return nil, reconcile.PlanChangeReport{}, f.err
	}

	rep := reconcile.PlanChangeReport{Skipped: runDate.In(lisbon).Day() != 1, Failures: []reconcile.Failure{}}
	if !rep.Skipped {
		rep.Processed, rep.Applied = 4, 1
	}

	return &reconcile.Run{Job: reconcile.JobPlanChange, Trigger: trigger, RunDate: runDate}, rep, nil
}

func (f *fakeReconcile) ListRuns(_ context.Context, filter reconcile.RunFilter) ([]*reconcile.Run, error) {
	f.filter = filter

	return []*reconcile.Run{{
		Job:        reconcile.JobAutoLock,
		Trigger:    reconcile.TriggerSchedule,
		RunDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, lisbon),
		StartedAt:  now.Add(-2 * time.Hour),
		FinishedAt: now.Add(-2*time.Hour + 1500*time.Millisecond),
		Report:     []byte(`{"processed":12,"newlyLocked":9,"failed":0}`),
	}}, nil
}

type fakeRoster struct {
	got string
}

func (f *fakeRoster) ImportRoster(_ context.Context, r io.Reader) (*assignment.ImportResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f.got = string(b)

	return &assignment.ImportResult{
		Created: 2,
		Skipped: 1,
		Errors:  []assignment.RowError{{Row: 5, Err: errors.New("invalid month")}},
	}, nil
}

func testApp(rec *fakeReconcile) *cli.App {
	return &cli.App{
		Reconcile: rec,
		Roster:    &fakeRoster{},
		Tokens:    auth.New("secret", "ledgerly").WithClock(func() time.Time { return now }),
		Location:  lisbon,
		Now:       func() time.Time { return now },
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()

	root := cli.NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()

	return buf.String(), err
}

func TestAutoLockCmd(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		err      error
		wantDate time.Time
		wantOut  []string
		wantErr  string
	}{
		{
			name:     "ExplicitDate",
			args:     []string{"autolock", "--date", "2025-07-01"},
			wantDate: time.Date(2025, 7, 1, 0, 0, 0, 0, lisbon),
			wantOut:  []string{"auto-lock 2025-06: processed 3, locked 2", failed.String() + ": quarantined"},
		},
		{
			name:     "DefaultsToNow",
			args:     []string{"autolock"},
			wantDate: now,
			wantOut:  []string{"processed 3"},
		},
		{
			name:     "PartialRunStillReports",
			args:     []string{"autolock", "--date", "2025-07-01T00:30:00Z"},
			err:      context.Canceled,
			wantDate: time.Date(2025, 7, 1, 0, 30, 0, 0, time.UTC),
			wantOut:  []string{"processed 3"},
			wantErr:  context.Canceled.Error(),
		},
		{
			name:    "BadDate",
			args:    []string{"autolock", "--date", "July"},
			wantErr: "invalid date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconcile{err: tt.err}

			out, err := executeCmd(t, testApp(rec), tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			if !tt.wantDate.IsZero() {
				assert.True(t, tt.wantDate.Equal(rec.runDate), "run date %s", rec.runDate)
				assert.Equal(t, reconcile.TriggerManual, rec.trigger)
			}

			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestAutoLockCmd_JSON(t *testing.T) {
	out, err := executeCmd(t, testApp(&fakeReconcile{}), "autolock", "--date", "2025-07-01", "--json")
	require.NoError(t, err)

	var resp struct {
		Run    reconcile.Run            `json:"run"`
		Report reconcile.AutoLockReport `json:"report"`
		Error  string                   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, reconcile.JobAutoLock, resp.Run.Job)
	assert.Equal(t, 2, resp.Report.NewlyLocked)
	assert.Empty(t, resp.Error)
}

func TestPlansCmd(t *testing.T) {
	out, err := executeCmd(t, testApp(&fakeReconcile{}), "plans", "--date", "2025-07-01")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 4, applied 1, failed 0")

	out, err = executeCmd(t, testApp(&fakeReconcile{}), "plans", "--date", "2025-07-02")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")

	_, err = executeCmd(t, testApp(&fakeReconcile{err: errors.New("listing clients: db down")}), "plans")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRunsCmd(t *testing.T) {
	rec := &fakeReconcile{}

	out, err := executeCmd(t, testApp(rec), "runs", "--job", "auto_lock", "--limit", "5")
	require.NoError(t, err)
	require.NotNil(t, rec.filter.Job)
	assert.Equal(t, reconcile.JobAutoLock, *rec.filter.Job)
	assert.Equal(t, 5, rec.filter.Limit)

	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "auto_lock")
	assert.Contains(t, out, "2025-07-01")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "12")

	_, err = executeCmd(t, testApp(rec), "runs", "--job", "backup")
	assert.ErrorContains(t, err, "unknown job")

	_, err = executeCmd(t, testApp(rec), "runs", "--limit=-1")
	assert.ErrorContains(t, err, "invalid limit")
}

func TestRosterImportCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("employee_id;client_id;year;month\n"), 0o600))

	app := testApp(&fakeReconcile{})

	out, err := executeCmd(t, app, "roster", "import", path)
	require.NoError(t, err)
	assert.Equal(t, "employee_id;client_id;year;month\n", app.Roster.(*fakeRoster).got)
	assert.Contains(t, out, "created 2, skipped 1")
	assert.Contains(t, out, "invalid month")

	_, err = executeCmd(t, app, "roster", "import", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "opening roster")

	_, err = executeCmd(t, app, "roster", "import")
	assert.Error(t, err)
}

func TestTokenIssueCmd(t *testing.T) {
	id := uuid.New()
	app := testApp(&fakeReconcile{})

	out, err := executeCmd(t, app, "token", "issue", "--role", "employee", "--id", id.String(), "--name", "Ana", "--ttl", "1h")
	require.NoError(t, err)

	actor, err := auth.New("secret", "ledgerly").WithClock(func() time.Time { return now }).Parse(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, ledger.RoleEmployee, actor.Role)
	assert.Equal(t, "Ana", actor.Name)

	_, err = executeCmd(t, app, "token", "issue", "--role", "system", "--id", id.String())
	assert.ErrorContains(t, err, "unknown role")

	_, err = executeCmd(t, app, "token", "issue", "--role", "admin", "--id", "nope")
	assert.ErrorContains(t, err, "invalid id")
}

func TestRootCmd_HidesUnwiredCommands(t *testing.T) {
	_, err := executeCmd(t, &cli.App{Roster: &fakeRoster{}}, "autolock")
	assert.ErrorContains(t, err, "unknown command")
}
