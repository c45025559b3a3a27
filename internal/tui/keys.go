package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Select       key.Binding
	Launch       key.Binding
	Move         key.Binding
	Terminate    key.Binding
	TerminateAll key.Binding
	Quit         key.Binding
}

func newKeyMap(cfg textSource) keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Launch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", cfg.Text("controls.launch", "Launch")),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", cfg.Text("controls.position_adjust", "Adjust Position")),
		),
		Terminate: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", cfg.Text("controls.terminate_program", "Terminate")),
		),
		TerminateAll: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", cfg.Text("controls.terminate_all", "Terminate All")),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Launch, k.Move, k.Terminate, k.TerminateAll, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Launch, k.Move, k.Terminate, k.TerminateAll, k.Quit},
	}
}

type textSource interface {
	Text(key, fallback string) string
}
