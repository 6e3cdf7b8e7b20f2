package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
)

type InboxModel struct {
	CommonModel
	svc   InboxService
	actor client.Actor
	loc   *time.Location

	table table.Model
	notes []notes.AnnotatedNote

	unreadOnly bool

	loading bool
	err     error
	status  string
}

func NewInboxModel(svc InboxService, actor client.Actor, loc *time.Location) InboxModel {
	return InboxModel{
		svc:   svc,
		actor: actor,
		loc:   loc,
		table: newTable([]table.Column{
			{Title: "", Width: 1},
			{Title: "Client", Width: 8},
			{Title: "Where", Width: 28},
			{Title: "Author", Width: 14},
			{Title: "Added", Width: 16},
			{Title: "Text", Width: 48},
		}),
		unreadOnly: true,
		loading:    true,
	}
}

func (m InboxModel) Title() string { return "Notes Inbox" }

func (m InboxModel) ShortHelp() string {
	return "Esc: back | v: mark viewed | u: unread only | r: refresh"
}

func (m InboxModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m InboxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadInboxMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.notes = msg.notes
		m.refreshTable()

		return m, nil

	case markViewedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Marked %d, %d unread left for that client", msg.result.Marked, msg.result.RemainingUnread)

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "u":
			m.unreadOnly = !m.unreadOnly
			return m, m.loadCmd()
		case "v":
			return m, m.markCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m InboxModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading notes...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	show := "All"
	if m.unreadOnly {
		show = "Unread"
	}

	header := fmt.Sprintf("Showing: [u] %s | %d notes", activeStyle(show), len(m.notes))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *InboxModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.notes))
	for _, n := range m.notes {
		marker := ""
		if n.Unread {
			marker = "●"
		}

		rows = append(rows, table.Row{
			marker,
			n.ClientID.String()[:8],
			n.Location.String(),
			n.Note.AddedBy,
			n.Note.AddedAt.In(m.loc).Format("2006-01-02 15:04"),
			n.Note.Text,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadInboxMsg struct {
	notes []notes.AnnotatedNote
	err   error
}

type markViewedMsg struct {
	result notes.MarkResult
	err    error
}

func (m InboxModel) loadCmd() tea.Cmd {
	filter := notes.Filter{UnreadOnly: m.unreadOnly}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		got, err := m.svc.Inbox(ctx, m.actor, filter)

		return loadInboxMsg{notes: got, err: err}
	}
}

func (m InboxModel) markCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.notes) {
		return nil
	}

	n := m.notes[idx]

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.svc.MarkNotesViewed(ctx, n.ClientID, m.actor, notes.Selection{IDs: []uuid.UUID{n.Note.ID}})

		return markViewedMsg{result: res, err: err}
	}
}
