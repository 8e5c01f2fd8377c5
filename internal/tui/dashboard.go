// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/model"
	"github.com/toeirei/warden/internal/recovery"
)

// auditLimit is how many recent audit entries the dashboard shows.
const auditLimit = 50

// Source supplies the data shown on the dashboard.
type Source interface {
	State(ctx context.Context, account string) (model.AccountState, error)
	AuditLog(ctx context.Context, account string, limit int) ([]model.AuditLogEntry, error)
}

// dashboardDataMsg carries the result of a refresh.
type dashboardDataMsg struct {
	state   model.AccountState
	entries []model.AuditLogEntry
	err     error
}

// Model is the read-only account dashboard.
type Model struct {
	src     Source
	account string
	keys    KeyMap
	help    help.Model
	table   table.Model

	state   *model.AccountState
	err     error
	loading bool
	width   int
}

// New returns a dashboard for account backed by src.
func New(src Source, account string) Model {
	columns := []table.Column{
		{Title: i18n.T("audit.header.time"), Width: 20},
		{Title: i18n.T("audit.header.caller"), Width: 16},
		{Title: i18n.T("audit.header.action"), Width: 24},
		{Title: i18n.T("audit.header.details"), Width: 48},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorHighlight).
		Bold(false)
	t.SetStyles(s)

	return Model{
		src:     src,
		account: account,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		table:   t,
		loading: true,
		width:   100,
	}
}

// Run starts the dashboard in the alternate screen and blocks until it exits.
func Run(src Source, account string) error {
	_, err := tea.NewProgram(New(src, account), tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m Model) refresh() tea.Cmd {
	src, account := m.src, m.account
	return func() tea.Msg {
		ctx := context.Background()
		st, err := src.State(ctx, account)
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		entries, err := src.AuditLog(ctx, account, auditLimit)
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		return dashboardDataMsg{state: st, entries: entries}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		// status panel, titles and help take roughly 18 lines
		if h := msg.Height - 18; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		st := msg.state
		m.state = &st
		m.table.SetRows(auditRows(msg.entries))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, m.refresh()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func auditRows(entries []model.AuditLogEntry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Caller,
			e.Action,
			e.Details,
		})
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(mainTitleStyle.Render(i18n.T("dashboard.title", m.account)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.state == nil:
		b.WriteString(helpStyle.Render(i18n.T("dashboard.loading")))
		b.WriteString("\n")
	default:
		b.WriteString(panelStyle.Render(m.statusView(*m.state)))
		b.WriteString("\n")
		b.WriteString(sectionTitleStyle.Render(i18n.T("dashboard.recent_activity")))
		b.WriteString("\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	right := ""
	if m.loading && m.state != nil {
		right = helpStyle.Render(i18n.T("dashboard.loading"))
	}
	b.WriteString(AlignFooter(m.help.View(m.keys), right, m.width))
	return docStyle.Render(b.String())
}

func (m Model) statusView(st model.AccountState) string {
	yesNo := func(v bool) string {
		if v {
			return specialStyle.Render(i18n.T("status.yes"))
		}
		return successStyle.Render(i18n.T("status.no"))
	}
	line := func(label, value string) string {
		return labelStyle.Render(label) + value
	}
	lines := []string{
		line(i18n.T("status.owner"), st.Owner),
		line(i18n.T("status.recovering"), yesNo(st.IsRecovering)),
	}
	if st.IsRecovering {
		n := len(st.Guardians)
		lines = append(lines,
			line(i18n.T("status.recovery_address"), st.RecoveryAddress),
			line(i18n.T("status.signatures"), i18n.T("status.needed", len(st.RecoverySignatures), n, recovery.Threshold(n))),
		)
	}
	lines = append(lines,
		line(i18n.T("status.guardians"), listOrNone(st.Guardians)),
		line(i18n.T("status.pending"), listOrNone(st.GuardiansPending)),
		line(i18n.T("status.family"), listOrNone(st.FamilyMembers)),
	)
	return strings.Join(lines, "\n")
}

func listOrNone(list []string) string {
	if len(list) == 0 {
		return helpStyle.Render(i18n.T("status.none"))
	}
	return strings.Join(list, ", ")
}
