package view

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

var operator = client.Actor{Role: ledger.RoleAdmin, ID: uuid.New(), Name: "operator"}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type fakeClients struct {
	clients     []*client.Client
	filter      client.ListFilter
	deactivated []uuid.UUID
	locked      []ledger.Period
}

func (f *fakeClients) List(_ context.Context, filter client.ListFilter) ([]*client.Client, error) {
	f.filter = filter
	return f.clients, nil
}

func (f *fakeClients) Deactivate(_ context.Context, id uuid.UUID, _ client.Actor) (*client.Client, error) {
	f.deactivated = append(f.deactivated, id)
	return &client.Client{ID: id}, nil
}

func (f *fakeClients) Reactivate(_ context.Context, id uuid.UUID, _ client.Actor) (*client.Client, error) {
	return nil, errors.New("not expected")
}

func (f *fakeClients) LockMonth(_ context.Context, _ uuid.UUID, _ client.Actor, p ledger.Period) (ledger.LockOutcome, error) {
	f.locked = append(f.locked, p)
	return ledger.LockApplied, nil
}

func (f *fakeClients) UnlockMonth(_ context.Context, _ uuid.UUID, _ client.Actor, _ ledger.Period) (ledger.LockOutcome, error) {
	return ledger.LockNotHeld, nil
}

func (f *fakeClients) RequestPlanChange(_ context.Context, _ uuid.UUID, _ client.Actor, newPlan string) (plan.Outcome, error) {
	return plan.Outcome{
		ActivePlan:    "basic",
		PendingPlan:   newPlan,
		EffectiveFrom: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func TestClientsModel_LoadAndDeactivate(t *testing.T) {
	acme := &client.Client{
		ID:           uuid.New(),
		Name:         "Acme Lda",
		Email:        "books@acme.example",
		Active:       true,
		Subscription: plan.Subscription{ActivePlan: "basic"},
		Tree:         ledger.NewTree(),
	}
	svc := &fakeClients{clients: []*client.Client{acme}}

	m := NewClientsModel(svc, operator, time.UTC, []string{"basic", "standard"})

	updated, _ := m.Update(m.Init()())
	m = updated.(ClientsModel)

	assert.False(t, m.loading)
	assert.Contains(t, m.View(), "Acme Lda")

	updated, cmd := m.Update(key("d"))
	m = updated.(ClientsModel)
	require.NotNil(t, cmd)

	updated, reload := m.Update(cmd())
	m = updated.(ClientsModel)

	assert.Equal(t, []uuid.UUID{acme.ID}, svc.deactivated)
	assert.Equal(t, "Acme Lda deactivated", m.status)
	assert.NotNil(t, reload)

	msg := m.planCmd("standard")().(clientActionMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, "Acme Lda moves to standard on 2025-08-01", msg.status)

	msg = m.periodCmdFor(periodLock, "2025-06")().(clientActionMsg)
	require.NoError(t, msg.err)
	assert.Equal(t, "Acme Lda 2025-06: applied", msg.status)
	assert.Equal(t, []ledger.Period{{Year: 2025, Month: 6}}, svc.locked)
}

func TestClientsModel_ActiveFilterCycles(t *testing.T) {
	svc := &fakeClients{}
	m := NewClientsModel(svc, operator, time.UTC, []string{"basic", "standard"})

	updated, cmd := m.Update(key("a"))
	m = updated.(ClientsModel)
	cmd()
	require.NotNil(t, svc.filter.Active)
	assert.True(t, *svc.filter.Active)

	updated, cmd = m.Update(key("a"))
	m = updated.(ClientsModel)
	cmd()
	require.NotNil(t, svc.filter.Active)
	assert.False(t, *svc.filter.Active)

	_, cmd = m.Update(key("a"))
	cmd()
	assert.Nil(t, svc.filter.Active)
}

type fakeInbox struct {
	items []notes.AnnotatedNote
	sel   notes.Selection
	seen  uuid.UUID
}

func (f *fakeInbox) Inbox(_ context.Context, _ client.Actor, filter notes.Filter) ([]notes.AnnotatedNote, error) {
	if !filter.UnreadOnly {
		return nil, errors.New("inbox should start with unread notes")
	}

	return f.items, nil
}

func (f *fakeInbox) MarkNotesViewed(_ context.Context, id uuid.UUID, _ client.Actor, sel notes.Selection) (notes.MarkResult, error) {
	f.seen, f.sel = id, sel
	return notes.MarkResult{Marked: 1, RemainingUnread: 3}, nil
}

func TestInboxModel_MarkViewed(t *testing.T) {
	note := notes.AnnotatedNote{
		ClientID: uuid.New(),
		Note:     ledger.Note{ID: uuid.New(), Text: "missing receipt", AddedBy: "Rita", AddedAt: time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)},
		Location: ledger.Location{Kind: ledger.LocationMonth, Period: ledger.Period{Year: 2025, Month: 6}},
		Unread:   true,
	}
	svc := &fakeInbox{items: []notes.AnnotatedNote{note}}

	m := NewInboxModel(svc, operator, time.UTC)

	updated, _ := m.Update(m.Init()())
	m = updated.(InboxModel)
	require.NoError(t, m.err)
	assert.Contains(t, m.View(), "missing receipt")

	_, cmd := m.Update(key("v"))
	require.NotNil(t, cmd)

	updated, _ = m.Update(cmd())
	m = updated.(InboxModel)

	assert.Equal(t, note.ClientID, svc.seen)
	assert.Equal(t, []uuid.UUID{note.Note.ID}, svc.sel.IDs)
	assert.True(t, strings.HasPrefix(m.status, "Marked 1"))
}

type fakeReconcile struct {
	runDate time.Time
}

func (f *fakeReconcile) RunAutoLock(_ context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.AutoLockReport, error) {
	f.runDate = runDate

	return &reconcile.Run{Job: reconcile.JobAutoLock, Trigger: trigger}, reconcile.AutoLockReport{
		Target:      ledger.Period{Year: 2025, Month: 6},
		Processed:   2,
		NewlyLocked: 1,
		Failed:      1,
		Failures:    []reconcile.Failure{{ClientID: uuid.New(), Error: "tenant busy"}},
	}, nil
}

func (f *fakeReconcile) RunPlanChange(_ context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.PlanChangeReport, error) {
	f.runDate = runDate
	return &reconcile.Run{Job: reconcile.JobPlanChange, Trigger: trigger}, reconcile.PlanChangeReport{Skipped: true}, nil
}

func (f *fakeReconcile) ListRuns(_ context.Context, _ reconcile.RunFilter) ([]*reconcile.Run, error) {
	return nil, nil
}

func TestRunsModel_RunCmd(t *testing.T) {
	lisbon := time.FixedZone("WEST", 60*60)
	svc := &fakeReconcile{}
	m := NewRunsModel(svc, lisbon)

	msg := m.runCmd(reconcile.JobAutoLock, "2025-07-01")().(runResultMsg)
	require.NoError(t, msg.err)
	assert.True(t, time.Date(2025, 7, 1, 0, 0, 0, 0, lisbon).Equal(svc.runDate))
	assert.Contains(t, msg.summary, "Target 2025-06")
	assert.Contains(t, msg.summary, "tenant busy")

	msg = m.runCmd(reconcile.JobPlanChange, "2025-07-02")().(runResultMsg)
	require.NoError(t, msg.err)
	assert.Contains(t, msg.summary, "Skipped")

	msg = m.runCmd(reconcile.JobAutoLock, "July")().(runResultMsg)
	assert.Error(t, msg.err)

	m.state = runsStateRunning
	updated, cmd := m.Update(runResultMsg{summary: "done"})
	m = updated.(RunsModel)
	assert.Equal(t, runsStateResult, m.state)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Run complete")
}
