package view

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/export"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

type ClientService interface {
	List(ctx context.Context, filter client.ListFilter) ([]*client.Client, error)
	Deactivate(ctx context.Context, id uuid.UUID, actor client.Actor) (*client.Client, error)
	Reactivate(ctx context.Context, id uuid.UUID, actor client.Actor) (*client.Client, error)
	LockMonth(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period) (ledger.LockOutcome, error)
	UnlockMonth(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period) (ledger.LockOutcome, error)
	RequestPlanChange(ctx context.Context, id uuid.UUID, actor client.Actor, newPlan string) (plan.Outcome, error)
}

type InboxService interface {
	Inbox(ctx context.Context, actor client.Actor, filter notes.Filter) ([]notes.AnnotatedNote, error)
	MarkNotesViewed(ctx context.Context, id uuid.UUID, actor client.Actor, sel notes.Selection) (notes.MarkResult, error)
}

type ReconcileService interface {
	RunAutoLock(ctx context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.AutoLockReport, error)
	RunPlanChange(ctx context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.PlanChangeReport, error)
	ListRuns(ctx context.Context, filter reconcile.RunFilter) ([]*reconcile.Run, error)
}

type RosterService interface {
	ImportRoster(ctx context.Context, r io.Reader) (*assignment.ImportResult, error)
}

type ExportService interface {
	Export(ctx context.Context, id uuid.UUID, actor client.Actor, p ledger.Period, outputDir string) ([]export.Item, error)
	GenerateSummary(items []export.Item) string
}
