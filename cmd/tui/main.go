package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgerly/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/ledgerly/internal/app"
	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/config"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

type model struct {
	app   *app.App
	actor client.Actor

	currentView View

	clientsView view.ClientsModel
	inboxView   view.InboxModel
	runsView    view.RunsModel
	rosterView  view.RosterModel
	exportView  view.ExportModel
}

type View int

const (
	ViewMenu    View = 0
	ViewClients View = 1
	ViewInbox   View = 2
	ViewRuns    View = 3
	ViewRoster  View = 4
	ViewExport  View = 5
)

func initialModel(a *app.App, actor client.Actor) model {
	return model{
		app:         a,
		actor:       actor,
		currentView: ViewMenu,
		clientsView: view.NewClientsModel(a.Clients, actor, a.Location, a.Clients.Plans().Catalog().Names()),
		inboxView:   view.NewInboxModel(a.Clients, actor, a.Location),
		runsView:    view.NewRunsModel(a.Reconcile, a.Location),
		rosterView:  view.NewRosterModel(a.Assignments),
		exportView:  view.NewExportModel(a.Export, actor, a.Location),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewClients
				m.clientsView = view.NewClientsModel(m.app.Clients, m.actor, m.app.Location, m.app.Clients.Plans().Catalog().Names())

				return m, m.clientsView.Init()
			case "2":
				m.currentView = ViewInbox
				m.inboxView = view.NewInboxModel(m.app.Clients, m.actor, m.app.Location)

				return m, m.inboxView.Init()
			case "3":
				m.currentView = ViewRuns
				m.runsView = view.NewRunsModel(m.app.Reconcile, m.app.Location)

				return m, m.runsView.Init()
			case "4":
				m.currentView = ViewRoster
				m.rosterView = view.NewRosterModel(m.app.Assignments)

				return m, m.rosterView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.app.Export, m.actor, m.app.Location)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewClients:
		var newModel tea.Model
		newModel, cmd = m.clientsView.Update(msg)
		m.clientsView = newModel.(view.ClientsModel)
	case ViewInbox:
		var newModel tea.Model
		newModel, cmd = m.inboxView.Update(msg)
		m.inboxView = newModel.(view.InboxModel)
	case ViewRuns:
		var newModel tea.Model
		newModel, cmd = m.runsView.Update(msg)
		m.runsView = newModel.(view.RunsModel)
	case ViewRoster:
		var newModel tea.Model
		newModel, cmd = m.rosterView.Update(msg)
		m.rosterView = newModel.(view.RosterModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.app.Config.App.Name + " console (" + m.actor.Name + ")\n\n" +
				"1. Clients\n" +
				"2. Notes Inbox\n" +
				"3. Scheduled Jobs\n" +
				"4. Import Roster\n" +
				"5. Export Month\n\n" +
				"q. Quit",
		)
	case ViewClients:
		current = m.clientsView
	case ViewInbox:
		current = m.inboxView
	case ViewRuns:
		current = m.runsView
	case ViewRoster:
		current = m.rosterView
	case ViewExport:
		current = m.exportView
	default:
		return "Unknown View"
	}

	title := lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(current.Title())
	help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(current.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left, title, current.View(), help)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	operatorID, err := uuid.Parse(cfg.Operator.ID)
	if err != nil {
		slog.Error("invalid OPERATOR_ID", "error", err)
		os.Exit(1)
	}

	// The alternate screen owns the terminal; keep service logs off it.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	actor := client.Actor{Role: ledger.RoleAdmin, ID: operatorID, Name: cfg.Operator.Name}

	p := tea.NewProgram(initialModel(a, actor), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
