package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/systmms/arkit/pkg/connect"
	"github.com/systmms/arkit/pkg/strategy"
)

// Run shows the picker until a strategy connects or the user quits and
// returns the final session state. A user quit is not an error; check
// Snapshot.Connected.
func Run(ctx context.Context, machine *connect.Machine, strategies []strategy.Strategy, opts ...tea.ProgramOption) (connect.Snapshot, error) {
	p := tea.NewProgram(New(ctx, machine, strategies), append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	// subscribers run under the machine lock, so Send must not block them
	unsubscribe := machine.Session().Subscribe(func(s connect.Snapshot) {
		go p.Send(snapshotMsg(s))
	})
	defer unsubscribe()

	final, err := p.Run()
	if err != nil {
		return machine.Session().Snapshot(), fmt.Errorf("connect picker failed: %w", err)
	}
	if m, ok := final.(Model); ok && m.Quit() {
		return m.Snapshot(), nil
	}
	return machine.Session().Snapshot(), nil
}
