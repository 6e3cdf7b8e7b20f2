package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

type runOutput struct {
	Run    *reconcile.Run `json:"run,omitempty"`
	Report any            `json:"report"`
	Error  string         `json:"error,omitempty"`
}

func newAutoLockCmd(app *App) *cobra.Command {
	date := &dateFlag{loc: app.location()}

	cmd := &cobra.Command{
		Use:   "autolock",
		Short: "Lock the month the auto-lock job targets for every active client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, rep, err := app.Reconcile.RunAutoLock(cmd.Context(), date.value(app.now()), reconcile.TriggerManual)
			if run == nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.JSON {
				return errors.Join(writeJSON(out, runOutput{Run: run, Report: rep, Error: errString(err)}), err)
			}

			fmt.Fprintf(out, "auto-lock %s: processed %d, locked %d, already locked %d, inactive %d, failed %d\n",
				rep.Target, rep.Processed, rep.NewlyLocked, rep.AlreadyLocked, rep.InactiveMonths, rep.Failed)
			writeFailures(out, rep.Failures)

			return err
		},
	}

	cmd.Flags().Var(date, "date", "Run date (YYYY-MM-DD or RFC 3339); defaults to now")

	return cmd
}

func newPlansCmd(app *App) *cobra.Command {
	date := &dateFlag{loc: app.location()}

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Apply pending plan changes that take effect on the run date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, rep, err := app.Reconcile.RunPlanChange(cmd.Context(), date.value(app.now()), reconcile.TriggerManual)
			if run == nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.JSON {
				return errors.Join(writeJSON(out, runOutput{Run: run, Report: rep, Error: errString(err)}), err)
			}

			if rep.Skipped {
				fmt.Fprintln(out, "plan change: skipped, the run date is not the first of a month")
				return err
			}

			fmt.Fprintf(out, "plan change: processed %d, applied %d, failed %d\n", rep.Processed, rep.Applied, rep.Failed)
			writeFailures(out, rep.Failures)

			return err
		},
	}

	cmd.Flags().Var(date, "date", "Run date (YYYY-MM-DD or RFC 3339); defaults to now")

	return cmd
}

func newRunsCmd(app *App) *cobra.Command {
	var (
		job   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded job runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("invalid limit %d", limit)
			}

			filter := reconcile.RunFilter{Limit: limit}

			switch reconcile.Job(job) {
			case "":
			case reconcile.JobAutoLock, reconcile.JobPlanChange:
				filter.Job = new(reconcile.Job(job))
			default:
				return fmt.Errorf("unknown job %q", job)
			}

			runs, err := app.Reconcile.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				processed, changed, failed := runCounts(r)

				rows = append(rows, []string{
					string(r.Job),
					string(r.Trigger),
					r.RunDate.In(app.location()).Format(time.DateOnly),
					humanize.RelTime(r.StartedAt, app.now(), "ago", "from now"),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
					strconv.Itoa(processed),
					strconv.Itoa(changed),
					strconv.Itoa(failed),
				})
			}

			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"JOB", "TRIGGER", "RUN DATE", "STARTED", "TOOK", "PROCESSED", "CHANGED", "FAILED"},
				rows,
			))

			return nil
		},
	}

	cmd.Flags().StringVar(&job, "job", "", "Only show runs of this job (auto_lock|plan_change)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	return cmd
}

func runCounts(r *reconcile.Run) (processed, changed, failed int) {
	switch r.Job {
	case reconcile.JobAutoLock:
		rep, err := r.AutoLock()
		if err == nil {
			return rep.Processed, rep.NewlyLocked, rep.Failed
		}
	case reconcile.JobPlanChange:
		rep, err := r.PlanChange()
		if err == nil {
			return rep.Processed, rep.Applied, rep.Failed
		}
	}

	return 0, 0, 0
}

func writeFailures(w io.Writer, failures []reconcile.Failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "  %s %s: %s\n", styleFailed.Render("failed"), f.ClientID, f.Error)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
