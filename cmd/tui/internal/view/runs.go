package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

const runTimeout = 10 * time.Minute

type runsState int

const (
	runsStateForm runsState = iota
	runsStateRunning
	runsStateResult
)

type RunsModel struct {
	CommonModel
	svc ReconcileService
	loc *time.Location

	state   runsState
	form    *huh.Form
	spinner spinner.Model
	table   table.Model

	job     string
	date    string
	summary string
	err     error
}

func NewRunsModel(svc ReconcileService, loc *time.Location) RunsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := RunsModel{
		svc:     svc,
		loc:     loc,
		spinner: s,
		job:     string(reconcile.JobAutoLock),
		date:    FormatDate(time.Now().In(loc)),
		table: newTable([]table.Column{
			{Title: "Job", Width: 12},
			{Title: "Trigger", Width: 9},
			{Title: "Run Date", Width: 11},
			{Title: "Started", Width: 17},
			{Title: "Processed", Width: 9},
			{Title: "Changed", Width: 8},
			{Title: "Failed", Width: 7},
		}),
	}
	m.form = m.buildForm()

	return m
}

func (m RunsModel) Title() string { return "Scheduled Jobs" }

func (m RunsModel) ShortHelp() string {
	switch m.state {
	case runsStateRunning:
		return "Running..."
	case runsStateResult:
		return "Esc: back to menu | n: new run"
	}

	return "Esc: back | Enter: confirm"
}

func (m RunsModel) Init() tea.Cmd {
	return tea.Batch(m.form.Init(), m.listCmd())
}

func (m RunsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if list, ok := msg.(runsListMsg); ok {
		if list.err == nil {
			m.refreshTable(list.runs)
		}

		return m, nil
	}

	switch m.state {
	case runsStateForm:
		return m.updateForm(msg)
	case runsStateRunning:
		return m.updateRunning(msg)
	case runsStateResult:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				return m, Back
			case "n":
				m.state = runsStateForm
				m.form = m.buildForm()

				return m, m.form.Init()
			}
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m RunsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.job = m.form.GetString("job")
	m.date = strings.TrimSpace(m.form.GetString("date"))
	m.state = runsStateRunning
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.runCmd(reconcile.Job(m.job), m.date))
}

func (m RunsModel) updateRunning(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(runResultMsg); ok {
		m.state = runsStateResult
		m.err = result.err
		m.summary = result.summary

		return m, m.listCmd()
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m RunsModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("job").
				Title("Job").
				Options(
					huh.NewOption("Auto-lock previous month", string(reconcile.JobAutoLock)),
					huh.NewOption("Apply pending plan changes", string(reconcile.JobPlanChange)),
				).
				Value(&m.job),
			huh.NewInput().
				Key("date").
				Title("Run Date").
				Description("An earlier date replays a missed cycle").
				Placeholder("YYYY-MM-DD").
				Value(&m.date).
				Validate(func(s string) error {
					_, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), m.loc)
					return err
				}),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m RunsModel) View() string {
	recent := lipgloss.JoinVertical(lipgloss.Left, "", "Recent runs:", boxed(m.table.View()))

	switch m.state {
	case runsStateForm:
		return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left, m.form.View(), recent))

	case runsStateRunning:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Running %s...", m.spinner.View(), m.job),
		)

	case runsStateResult:
		header := okStyle.Bold(true).Render("Run complete")
		if m.err != nil {
			header = errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
		}

		return lipgloss.NewStyle().Padding(1).Render(
			lipgloss.JoinVertical(lipgloss.Left, header, "", m.summary, recent),
		)
	}

	return ""
}

func (m *RunsModel) refreshTable(runs []*reconcile.Run) {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		processed, changed, failed := 0, 0, 0

		switch r.Job {
		case reconcile.JobAutoLock:
			if rep, err := r.AutoLock(); err == nil {
				processed, changed, failed = rep.Processed, rep.NewlyLocked, rep.Failed
			}
		case reconcile.JobPlanChange:
			if rep, err := r.PlanChange(); err == nil {
				processed, changed, failed = rep.Processed, rep.Applied, rep.Failed
			}
		}

		rows = append(rows, table.Row{
			string(r.Job),
			string(r.Trigger),
			FormatDate(r.RunDate.In(m.loc)),
			r.StartedAt.In(m.loc).Format("2006-01-02 15:04"),
			strconv.Itoa(processed),
			strconv.Itoa(changed),
			strconv.Itoa(failed),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type runResultMsg struct {
	summary string
	err     error
}

type runsListMsg struct {
	runs []*reconcile.Run
	err  error
}

func (m RunsModel) listCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		runs, err := m.svc.ListRuns(ctx, reconcile.RunFilter{Limit: 10})

		return runsListMsg{runs: runs, err: err}
	}
}

func (m RunsModel) runCmd(job reconcile.Job, date string) tea.Cmd {
	return func() tea.Msg {
		runDate, err := time.ParseInLocation(time.DateOnly, date, m.loc)
		if err != nil {
			return runResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		var b strings.Builder

		switch job {
		case reconcile.JobAutoLock:
			run, rep, err := m.svc.RunAutoLock(ctx, runDate, reconcile.TriggerManual)
			if run == nil {
				return runResultMsg{err: err}
			}

			fmt.Fprintf(&b, "Target %s\nProcessed %d | Locked %d | Already locked %d | Inactive %d | Failed %d\n",
				rep.Target, rep.Processed, rep.NewlyLocked, rep.AlreadyLocked, rep.InactiveMonths, rep.Failed)
			writeRunFailures(&b, rep.Failures)

			return runResultMsg{summary: b.String(), err: err}

		case reconcile.JobPlanChange:
			run, rep, err := m.svc.RunPlanChange(ctx, runDate, reconcile.TriggerManual)
			if run == nil {
				return runResultMsg{err: err}
			}

			if rep.Skipped {
				return runResultMsg{summary: "Skipped: the run date is not the first of a month\n", err: err}
			}

			fmt.Fprintf(&b, "Processed %d | Applied %d | Failed %d\n", rep.Processed, rep.Applied, rep.Failed)
			writeRunFailures(&b, rep.Failures)

			return runResultMsg{summary: b.String(), err: err}
		}

		return runResultMsg{err: errors.New("unknown job " + string(job))}
	}
}

func writeRunFailures(b *strings.Builder, failures []reconcile.Failure) {
	for _, f := range failures {
		fmt.Fprintf(b, "  %s %s\n", errorStyle.Render(f.ClientID.String()), f.Error)
	}
}
