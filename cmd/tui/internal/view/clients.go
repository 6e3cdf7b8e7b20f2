package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

type clientsState int

const (
	clientsStateBrowse clientsState = iota
	clientsStatePeriod
	clientsStatePlan
)

type periodAction int

const (
	periodLock periodAction = iota
	periodUnlock
)

type ClientsModel struct {
	CommonModel
	svc   ClientService
	actor client.Actor
	loc   *time.Location
	plans []string

	state   clientsState
	table   table.Model
	clients []*client.Client
	form    *huh.Form

	activeFilterIdx int
	filter          client.ListFilter

	action     periodAction
	formPeriod string

	loading bool
	err     error
	status  string
}

// NewClientsModel lists tenants. plans are the catalog names offered on a
// plan change.
func NewClientsModel(svc ClientService, actor client.Actor, loc *time.Location, plans []string) ClientsModel {
	return ClientsModel{
		svc:   svc,
		actor: actor,
		loc:   loc,
		plans: plans,
		table: newTable([]table.Column{
			{Title: "Name", Width: 25},
			{Title: "Email", Width: 28},
			{Title: "Active", Width: 7},
			{Title: "Plan", Width: 12},
			{Title: "Pending", Width: 20},
			{Title: "Months", Width: 7},
		}),
		loading: true,
	}
}

func (m ClientsModel) Title() string { return "Clients" }

func (m ClientsModel) ShortHelp() string {
	if m.state != clientsStateBrowse {
		return "Enter: confirm | Esc: cancel"
	}

	return "Esc: back | a: active filter | d: (de)activate | l: lock | u: unlock | p: plan | r: refresh"
}

func (m ClientsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ClientsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadClientsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.clients = msg.clients
		m.refreshTable()

		return m, nil

	case clientActionMsg:
		m.state = clientsStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = msg.status
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case clientsStateBrowse:
		return m.updateBrowse(msg)
	case clientsStatePeriod, clientsStatePlan:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m ClientsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "a":
			m.activeFilterIdx = (m.activeFilterIdx + 1) % 3
			m.applyFilter()

			return m, m.loadCmd()
		case "d":
			return m, m.toggleCmd()
		case "l":
			return m.enterPeriod(periodLock)
		case "u":
			return m.enterPeriod(periodUnlock)
		case "p":
			return m.enterPlan()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ClientsModel) selected() *client.Client {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.clients) {
		return nil
	}

	return m.clients[idx]
}

func (m ClientsModel) enterPeriod(action periodAction) (tea.Model, tea.Cmd) {
	if m.selected() == nil {
		return m, nil
	}

	m.action = action
	m.formPeriod = ledger.PeriodOf(time.Now(), m.loc).Previous().String()

	title := "Lock month"
	if action == periodUnlock {
		title = "Unlock month"
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("period").
				Title(title).
				Placeholder("YYYY-MM").
				Value(&m.formPeriod).
				Validate(func(s string) error {
					_, err := ledger.ParsePeriod(strings.TrimSpace(s))
					return err
				}),
		),
	).WithWidth(40).WithShowHelp(false)

	m.state = clientsStatePeriod
	m.table.Blur()

	return m, m.form.Init()
}

func (m ClientsModel) enterPlan() (tea.Model, tea.Cmd) {
	c := m.selected()
	if c == nil || len(m.plans) == 0 {
		return m, nil
	}

	choice := c.Subscription.ActivePlan

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("plan").
				Title("Change plan").
				Description("Takes effect now on the 1st, otherwise next month").
				Options(huh.NewOptions(m.plans...)...).
				Value(&choice),
		),
	).WithWidth(40).WithShowHelp(false)

	m.state = clientsStatePlan
	m.table.Blur()

	return m, m.form.Init()
}

func (m ClientsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = clientsStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == clientsStatePlan {
		return m, m.planCmd(m.form.GetString("plan"))
	}

	return m, m.periodCmdFor(m.action, m.form.GetString("period"))
}

func (m ClientsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading clients...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	activeLabels := []string{"All", "Active", "Inactive"}

	header := fmt.Sprintf("Filter: [a] %s | %d clients", activeStyle(activeLabels[m.activeFilterIdx]), len(m.clients))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	if m.state != clientsStateBrowse && m.form != nil {
		name := ""
		if c := m.selected(); c != nil {
			name = c.Name
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(44).
			Render(fmt.Sprintf("%s\n\n%s", name, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ClientsModel) applyFilter() {
	switch m.activeFilterIdx {
	case 1:
		m.filter.Active = new(true)
	case 2:
		m.filter.Active = new(false)
	default:
		m.filter.Active = nil
	}
}

func (m *ClientsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.clients))
	for _, c := range m.clients {
		active := "no"
		if c.Active {
			active = "yes"
		}

		pending := ""
		if c.Subscription.PendingPlan != "" && c.Subscription.PendingFrom != nil {
			pending = fmt.Sprintf("%s from %s", c.Subscription.PendingPlan, FormatDate(*c.Subscription.PendingFrom))
		}

		months := 0
		if c.Tree != nil {
			months = c.Tree.Len()
		}

		rows = append(rows, table.Row{
			c.Name,
			c.Email,
			active,
			c.Subscription.ActivePlan,
			pending,
			strconv.Itoa(months),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadClientsMsg struct {
	clients []*client.Client
	err     error
}

type clientActionMsg struct {
	status string
	err    error
}

func (m ClientsModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		clients, err := m.svc.List(ctx, filter)

		return loadClientsMsg{clients: clients, err: err}
	}
}

func (m ClientsModel) toggleCmd() tea.Cmd {
	c := m.selected()
	if c == nil {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if c.Active {
			if _, err := m.svc.Deactivate(ctx, c.ID, m.actor); err != nil {
				return clientActionMsg{err: err}
			}

			return clientActionMsg{status: c.Name + " deactivated"}
		}

		if _, err := m.svc.Reactivate(ctx, c.ID, m.actor); err != nil {
			return clientActionMsg{err: err}
		}

		return clientActionMsg{status: c.Name + " reactivated"}
	}
}

func (m ClientsModel) periodCmdFor(action periodAction, raw string) tea.Cmd {
	c := m.selected()
	if c == nil {
		return nil
	}

	raw = strings.TrimSpace(raw)

	return func() tea.Msg {
		p, err := ledger.ParsePeriod(raw)
		if err != nil {
			return clientActionMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		var outcome ledger.LockOutcome

		if action == periodUnlock {
			outcome, err = m.svc.UnlockMonth(ctx, c.ID, m.actor, p)
		} else {
			outcome, err = m.svc.LockMonth(ctx, c.ID, m.actor, p)
		}

		if err != nil {
			return clientActionMsg{err: err}
		}

		return clientActionMsg{status: fmt.Sprintf("%s %s: %s", c.Name, p, outcome)}
	}
}

func (m ClientsModel) planCmd(newPlan string) tea.Cmd {
	c := m.selected()
	if c == nil {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		out, err := m.svc.RequestPlanChange(ctx, c.ID, m.actor, newPlan)
		if err != nil {
			return clientActionMsg{err: err}
		}

		if out.Immediate {
			return clientActionMsg{status: fmt.Sprintf("%s now on %s (%s/month)", c.Name, out.ActivePlan, out.Fee.StringFixed(2))}
		}

		return clientActionMsg{status: fmt.Sprintf("%s moves to %s on %s", c.Name, out.PendingPlan, FormatDate(out.EffectiveFrom.In(m.loc)))}
	}
}
