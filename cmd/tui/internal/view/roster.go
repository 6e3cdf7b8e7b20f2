package view

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgerly/internal/assignment"
)

const importTimeout = 2 * time.Minute

type rosterState int

const (
	rosterStateFilePick rosterState = iota
	rosterStateImporting
	rosterStateResult
)

type RosterModel struct {
	CommonModel
	svc RosterService

	state      rosterState
	filePicker filepicker.Model

	result *assignment.ImportResult
	status string
	err    error
}

func NewRosterModel(svc RosterService) RosterModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return RosterModel{
		svc:        svc,
		filePicker: fp,
	}
}

func (m RosterModel) Title() string { return "Import Roster" }

func (m RosterModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m RosterModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m RosterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			if m.state == rosterStateResult {
				m.state = rosterStateFilePick
				m.err = nil
				m.result = nil
				m.status = ""

				return m, nil
			}

			return m, Back
		}

	case rosterResultMsg:
		m.state = rosterStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.result = msg.result
		m.status = fmt.Sprintf("Created %d assignments, skipped %d.", msg.result.Created, msg.result.Skipped)

		return m, nil
	}

	if m.state != rosterStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = rosterStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m RosterModel) View() string {
	switch m.state {
	case rosterStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select roster CSV (employee_id, client_id, year, month[, task]):\n\n%s", m.filePicker.View()),
		)
	case rosterStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case rosterStateResult:
		return m.viewResult()
	}

	return ""
}

func (m RosterModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle.Render(m.status) + "\n\n(Esc to go back)")
	}

	var b strings.Builder
	b.WriteString(okStyle.Render(m.status))

	if len(m.result.Errors) > 0 {
		b.WriteString("\n\nRejected rows:\n")

		for _, e := range m.result.Errors {
			fmt.Fprintf(&b, "  %s\n", errorStyle.Render(e.Error()))
		}
	}

	b.WriteString("\n\n(Esc to go back)")

	return style.Render(b.String())
}

// Messages

type rosterResultMsg struct {
	result *assignment.ImportResult
	err    error
}

func (m RosterModel) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return rosterResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.svc.ImportRoster(ctx, f)
		if err != nil {
			return rosterResultMsg{err: err}
		}

		return rosterResultMsg{result: result}
	}
}
