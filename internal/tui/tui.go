// Package tui is the interactive terminal front end for the launcher.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/multilaunch/internal/activity"
	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/coordinator"
	"github.com/1broseidon/multilaunch/internal/registry"
)

// Controller is the coordinator surface used by the UI.
type Controller interface {
	Launch(path, args, position string) (int, error)
	Reposition(id int, position string) error
	Terminate(id int) (coordinator.Outcome, error)
	TerminateAll()
	Snapshot() []registry.View
	Positions() config.PositionList
	Messages(n int) []string
	Say(key string, kv ...any)
	Config() *config.Config
	Activity() *activity.Log
	SetOnChange(fn func())
}

// Run starts the UI and blocks until the user quits. The caller owns
// shutting down ctl afterwards.
func Run(ctl Controller) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	m := newModel(ctl)
	unsubscribe := ctl.Activity().Subscribe(func(activity.Entry) { m.events.poke() })
	defer unsubscribe()
	ctl.SetOnChange(m.events.poke)
	defer ctl.SetOnChange(nil)

	ctl.Say("launcher_started")

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// events coalesces change notifications from other goroutines into at most
// one pending refresh.
type events chan struct{}

func newEvents() events {
	return make(events, 1)
}

func (e events) poke() {
	select {
	case e <- struct{}{}:
	default:
	}
}

type refreshMsg struct{}

// wait blocks until the next notification.
func (e events) wait() tea.Cmd {
	return func() tea.Msg {
		<-e
		return refreshMsg{}
	}
}
