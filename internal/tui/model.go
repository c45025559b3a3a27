package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/coordinator"
	"github.com/1broseidon/multilaunch/internal/registry"
)

// model is the root bubbletea model for the TUI.
type model struct {
	ctl    Controller
	cfg    *config.Config
	events events

	table  table.Model
	log    viewport.Model
	help   help.Model
	keys   keyMap
	form   *activeForm
	views  []registry.View
	errMsg string

	// Terminal dimensions
	width  int
	height int
}

// actionDoneMsg reports the result of a controller call run off the UI
// goroutine.
type actionDoneMsg struct {
	err error
}

func newModel(ctl Controller) model {
	cfg := ctl.Config()

	t := table.New(
		table.WithColumns(columns(cfg, 80)),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62"))
	t.SetStyles(styles)

	m := model{
		ctl:    ctl,
		cfg:    cfg,
		events: newEvents(),
		table:  t,
		log:    viewport.New(80, cfg.Launcher.LogHeight),
		help:   help.New(),
		keys:   newKeyMap(cfg),
	}
	m.refresh()
	return m
}

// columns sizes the instance table for the given terminal width.
func columns(cfg *config.Config, width int) []table.Column {
	const fixed = 6 + 14 + 11 + 9 // id, position, status, pid
	name := width - fixed - 12
	if name < 16 {
		name = 16
	}
	return []table.Column{
		{Title: cfg.Text("program_list.columns.id", "ID"), Width: 6},
		{Title: cfg.Text("program_list.columns.name", "Program"), Width: name},
		{Title: cfg.Text("program_list.columns.position", "Position"), Width: 14},
		{Title: cfg.Text("program_list.columns.status", "Status"), Width: 11},
		{Title: cfg.Text("program_list.columns.pid", "PID"), Width: 9},
	}
}

// buildRows renders instances as table rows in id order.
func buildRows(cfg *config.Config, views []registry.View) []table.Row {
	rows := make([]table.Row, 0, len(views))
	for _, v := range views {
		pid := "-"
		if v.PID != 0 {
			pid = strconv.Itoa(v.PID)
		}
		label := v.PositionName
		if p, ok := cfg.Position(v.PositionName); ok {
			label = p.Name
		}
		rows = append(rows, table.Row{
			strconv.Itoa(v.ID),
			v.DisplayName,
			label,
			string(v.Status),
			pid,
		})
	}
	return rows
}

// refresh reloads instances and the activity log from the controller.
func (m *model) refresh() {
	m.views = m.ctl.Snapshot()
	m.table.SetRows(buildRows(m.cfg, m.views))
	if c := m.table.Cursor(); c >= len(m.views) && len(m.views) > 0 {
		m.table.SetCursor(len(m.views) - 1)
	}

	m.log.SetContent(strings.Join(m.ctl.Messages(0), "\n"))
	m.log.GotoBottom()
}

// selected returns the highlighted instance.
func (m model) selected() (registry.View, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.views) {
		return registry.View{}, false
	}
	return m.views[c], true
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.events.wait()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.refresh()
		return m, m.events.wait()

	case actionDoneMsg:
		m.errMsg = ""
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		if m.form != nil {
			m.form.form = m.form.form.WithWidth(formWidth(m.width))
		}
		return m, nil
	}

	// A form captures all input; only ctrl+c escapes to quit.
	if m.form != nil {
		return m.updateForm(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.Quit):
			return m.quit()

		case key.Matches(km, m.keys.Launch):
			m.form = newLaunchForm(m.cfg, m.width)
			return m, m.form.form.Init()

		case key.Matches(km, m.keys.Move):
			v, ok := m.selected()
			if !ok {
				m.ctl.Say("errors.no_program_to_adjust")
				return m, nil
			}
			m.form = newMoveForm(m.cfg, m.width, v.ID, v.PositionName)
			return m, m.form.form.Init()

		case key.Matches(km, m.keys.Terminate):
			v, ok := m.selected()
			if !ok {
				m.ctl.Say("errors.no_program_to_terminate")
				return m, nil
			}
			return m, m.terminate(v.ID)

		case key.Matches(km, m.keys.TerminateAll):
			if len(m.views) == 0 {
				m.ctl.Say("errors.no_program_to_terminate")
				return m, nil
			}
			m.form = newTerminateAllForm(m.cfg, m.width)
			return m, m.form.form.Init()

		case key.Matches(km, m.keys.Select):
			if v, ok := m.selected(); ok {
				m.ctl.Say("progress.program_selected_ui", "id", v.ID)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.ctl.Say("launcher_closing")
	return m, tea.Quit
}

func (m model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c":
			return m.quit()
		case "esc":
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form.form = f
	}

	switch m.form.form.State {
	case huh.StateCompleted:
		done := m.form
		m.form = nil
		return m, m.submit(done)
	case huh.StateAborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

// submit turns a completed form into a controller call.
func (m model) submit(f *activeForm) tea.Cmd {
	switch f.kind {
	case formLaunch:
		path := strings.TrimSpace(f.path)
		if path == "" {
			m.ctl.Say("errors.no_program_selected")
			return nil
		}
		m.ctl.Say("program_selected", "filename", filepath.Base(path))
		return m.launch(path, f.args, f.position)
	case formMove:
		return m.reposition(f.targetID, f.position)
	case formTerminateAll:
		if f.confirm {
			return m.terminateAll()
		}
	}
	return nil
}

func (m model) launch(path, args, position string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		_, err := ctl.Launch(path, args, position)
		return actionDoneMsg{err: err}
	}
}

func (m model) reposition(id int, position string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return actionDoneMsg{err: ctl.Reposition(id, position)}
	}
}

func (m model) terminate(id int) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		_, err := ctl.Terminate(id)
		if errors.Is(err, coordinator.ErrInstanceNotFound) {
			// Already logged; the row is gone after refresh.
			err = nil
		}
		return actionDoneMsg{err: err}
	}
}

func (m model) terminateAll() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		ctl.TerminateAll()
		return actionDoneMsg{}
	}
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width

	logHeight := m.cfg.Launcher.LogHeight
	// title(1) + section(2) + table border(2) + section(2) + log border(2) + status(1) + help(1)
	tableHeight := height - logHeight - 11
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.table.SetColumns(columns(m.cfg, width))
	m.table.SetHeight(tableHeight)
	m.table.SetWidth(width - 2)

	m.log.Width = width - 2
	m.log.Height = logHeight
	m.log.GotoBottom()
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := titleStyle.Render(m.cfg.Launcher.Title)

	if m.form != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			m.form.form.View(),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		sectionStyle.Render(m.cfg.Text("program_list.title", "Running Instances")),
		paneStyle.Render(m.table.View()),
		sectionStyle.Render(m.cfg.Text("log.title", "Activity Log")),
		paneStyle.Render(m.log.View()),
		m.statusBar(),
		m.help.View(m.keys),
	)
}

func (m model) statusBar() string {
	running, launching := 0, 0
	for _, v := range m.views {
		switch v.Status {
		case registry.StatusRunning:
			running++
		case registry.StatusLaunching:
			launching++
		}
	}
	status := fmt.Sprintf("%s %d running  %s %d launching", runningDot, running, launchingDot, launching)
	if m.errMsg != "" {
		status += "  " + errorStyle.Render(m.errMsg)
	}
	return statusBarStyle.Width(m.width).Render(status)
}
