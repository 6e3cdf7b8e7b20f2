package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

const exportTimeout = 2 * time.Minute

type exportState int

const (
	exportStateForm exportState = iota
	exportStateExporting
	exportStateResult
)

type ExportModel struct {
	CommonModel
	svc   ExportService
	actor client.Actor
	loc   *time.Location

	state   exportState
	err     error
	form    *huh.Form
	spinner spinner.Model
	summary string
}

func NewExportModel(svc ExportService, actor client.Actor, loc *time.Location) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := ExportModel{
		svc:     svc,
		actor:   actor,
		loc:     loc,
		state:   exportStateForm,
		spinner: s,
	}
	m.form = m.buildForm()

	return m
}

func (m ExportModel) Title() string { return "Export Month" }

func (m ExportModel) ShortHelp() string {
	switch m.state {
	case exportStateResult:
		return "Esc: back to menu"
	case exportStateExporting:
		return "Exporting..."
	}

	return "Esc: back | Enter: confirm"
}

func (m ExportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case exportStateForm:
		return m.updateForm(msg)
	case exportStateExporting:
		return m.updateExporting(msg)
	case exportStateResult:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m ExportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
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

	m.state = exportStateExporting
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.runExportCmd(
		strings.TrimSpace(m.form.GetString("client")),
		strings.TrimSpace(m.form.GetString("period")),
		strings.TrimSpace(m.form.GetString("path")),
	))
}

func (m ExportModel) updateExporting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(exportResultMsg); ok {
		m.state = exportStateResult
		m.err = result.err
		m.summary = result.body

		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m ExportModel) buildForm() *huh.Form {
	var (
		clientID string
		period   = ledger.PeriodOf(time.Now(), m.loc).Previous().String()
		path     = "./exports"
	)

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("client").
				Title("Client ID").
				Value(&clientID).
				Validate(func(s string) error {
					_, err := uuid.Parse(strings.TrimSpace(s))
					return err
				}),
			huh.NewInput().
				Key("period").
				Title("Month").
				Placeholder("YYYY-MM").
				Value(&period).
				Validate(func(s string) error {
					_, err := ledger.ParsePeriod(strings.TrimSpace(s))
					return err
				}),
			huh.NewInput().
				Key("path").
				Title("Output Path").
				Description("Directory will be created if it doesn't exist").
				Placeholder("./exports").
				Value(&path),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) View() string {
	switch m.state {
	case exportStateForm:
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())

	case exportStateExporting:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Downloading the month's files...", m.spinner.View()),
		)

	case exportStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ExportModel) viewResult() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(1).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := okStyle.Bold(true).Render("Export Complete!")

	return lipgloss.NewStyle().Padding(1).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			"Summary:",
			"",
			m.summary,
		),
	)
}

type exportResultMsg struct {
	body string
	err  error
}

func (m ExportModel) runExportCmd(rawID, rawPeriod, path string) tea.Cmd {
	return func() tea.Msg {
		id, err := uuid.Parse(rawID)
		if err != nil {
			return exportResultMsg{err: fmt.Errorf("invalid client id: %w", err)}
		}

		p, err := ledger.ParsePeriod(rawPeriod)
		if err != nil {
			return exportResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		items, err := m.svc.Export(ctx, id, m.actor, p, path)
		if err != nil {
			return exportResultMsg{err: err}
		}

		return exportResultMsg{body: m.svc.GenerateSummary(items)}
	}
}
