// Package cli holds the ledgerctl command tree.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

type ReconcileService interface {
	RunAutoLock(ctx context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.AutoLockReport, error)
	RunPlanChange(ctx context.Context, runDate time.Time, trigger reconcile.Trigger) (*reconcile.Run, reconcile.PlanChangeReport, error)
	ListRuns(ctx context.Context, filter reconcile.RunFilter) ([]*reconcile.Run, error)
}

type RosterService interface {
	ImportRoster(ctx context.Context, r io.Reader) (*assignment.ImportResult, error)
}

type TokenIssuer interface {
	Issue(actor client.Actor, ttl time.Duration) (string, error)
}

// App holds what the commands need. Nil services disable the matching
// commands.
type App struct {
	Reconcile ReconcileService
	Roster    RosterService
	Tokens    TokenIssuer
	Location  *time.Location

	// JSON switches output to JSON; main turns it on when stdout is not a
	// terminal.
	JSON bool
	Now  func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}

	return time.Now()
}

func (a *App) location() *time.Location {
	if a.Location != nil {
		return a.Location
	}

	return time.UTC
}

// NewRootCmd creates the top-level "ledgerctl" command.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the ledger: run jobs, import rosters, issue tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&app.JSON, "json", app.JSON, "Print JSON instead of tables")

	if app.Reconcile != nil {
		root.AddCommand(
			newAutoLockCmd(app),
			newPlansCmd(app),
			newRunsCmd(app),
		)
	}

	if app.Roster != nil {
		root.AddCommand(newRosterCmd(app))
	}

	if app.Tokens != nil {
		root.AddCommand(newTokenCmd(app))
	}

	return root
}
