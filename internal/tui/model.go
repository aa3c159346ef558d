package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
)

// snapshotMsg carries a session snapshot into the update loop.
type snapshotMsg connect.Snapshot

// Model is the connect picker. It lists the strategies, selects one on
// enter and then follows the session until it is connected or the user
// quits.
type Model struct {
	ctx        context.Context
	machine    *connect.Machine
	strategies []strategy.Strategy
	cursor     int
	snap       connect.Snapshot
	quitting   bool
}

// New creates a picker driving machine.
func New(ctx context.Context, machine *connect.Machine, strategies []strategy.Strategy) Model {
	return Model{
		ctx:        ctx,
		machine:    machine,
		strategies: strategies,
		snap:       machine.Session().Snapshot(),
	}
}

// Snapshot returns the last session state the picker has seen.
func (m Model) Snapshot() connect.Snapshot {
	return m.snap
}

// Quit reports whether the user left the picker without connecting.
func (m Model) Quit() bool {
	return m.quitting
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		// snapshots are delivered from goroutines and may arrive out of order
		if msg.Version < m.snap.Version {
			return m, nil
		}
		m.snap = connect.Snapshot(msg)
		if m.snap.Connected() {
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		if m.snap.Status != connect.StatusIdle {
			m.machine.GoBack(m.ctx)
			m.snap = m.machine.Session().Snapshot()
		}
		return m, nil
	}

	switch m.snap.Status {
	case connect.StatusIdle:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.strategies)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.strategies) == 0 {
				return m, nil
			}
			m.machine.Select(m.ctx, m.strategies[m.cursor].Metadata().ID)
			m.snap = m.machine.Session().Snapshot()
		}
	case connect.StatusFailed:
		if msg.String() == "r" {
			m.machine.Retry(m.ctx)
			m.snap = m.machine.Session().Snapshot()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Connect a wallet"))
	b.WriteString("\n\n")

	var footer string
	switch m.snap.Status {
	case connect.StatusIdle:
		if len(m.strategies) == 0 {
			b.WriteString(mutedStyle.Render("No wallet strategies configured."))
		}
		for i, s := range m.strategies {
			b.WriteString(m.renderItem(i, s.Metadata()))
			b.WriteByte('\n')
		}
		footer = "↑/↓ move • enter select • q quit"
	case connect.StatusProbingAvailability:
		fmt.Fprintf(&b, "Checking %s...", m.name(m.snap.SelectedStrategyID))
		footer = "esc back • q quit"
	case connect.StatusConnecting:
		fmt.Fprintf(&b, "Connecting to %s...", m.name(m.snap.SelectedStrategyID))
		footer = "esc back • q quit"
	case connect.StatusFailed:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Could not connect to %s.", m.name(m.snap.SelectedStrategyID))))
		footer = "r retry • esc back • q quit"
	case connect.StatusUnavailable:
		b.WriteString(warningStyle.Render(fmt.Sprintf("%s is not available.", m.name(m.snap.SelectedStrategyID))))
		if md, ok := m.metadata(m.snap.SelectedStrategyID); ok && md.URL != "" {
			b.WriteString("\n" + mutedStyle.Render("Set it up: "+md.URL))
		}
		footer = "esc back • q quit"
	case connect.StatusConnected:
		b.WriteString(successStyle.Render(fmt.Sprintf("Connected to %s.", m.name(m.snap.ActiveStrategyID))))
	}

	if footer != "" {
		b.WriteString("\n" + footerStyle.Render(footer))
	}
	return modalStyle.Render(b.String()) + "\n"
}

func (m Model) renderItem(i int, md strategy.Metadata) string {
	marker := "  "
	style := themeStyle(md.Theme)
	if i == m.cursor {
		marker = focusMarker
		style = style.Bold(true)
	}
	name := style.Render(md.Name)
	line := marker + name
	if md.Description != "" {
		line += "  " + mutedStyle.Render(md.Description)
	}
	return line
}

func (m Model) metadata(id string) (strategy.Metadata, bool) {
	for _, s := range m.strategies {
		if md := s.Metadata(); md.ID == id {
			return md, true
		}
	}
	return strategy.Metadata{}, false
}

func (m Model) name(id string) string {
	if md, ok := m.metadata(id); ok {
		return md.Name
	}
	return id
}
