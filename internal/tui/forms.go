package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/1broseidon/multilaunch/internal/config"
)

type formKind int

const (
	formLaunch formKind = iota + 1
	formMove
	formTerminateAll
)

// activeForm holds a huh form and the values bound to it. It is kept
// behind a pointer so bindings survive model copies.
type activeForm struct {
	kind     formKind
	form     *huh.Form
	targetID int

	path     string
	args     string
	position string
	confirm  bool
}

func positionOptions(positions config.PositionList) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(positions))
	for _, p := range positions {
		opts = append(opts, huh.NewOption(p.Name, p.Key))
	}
	return opts
}

func newLaunchForm(cfg *config.Config, width int) *activeForm {
	f := &activeForm{
		kind:     formLaunch,
		args:     cfg.DefaultParams,
		position: cfg.Defaults.Position,
	}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("path").
				Title(cfg.Text("add_program.program_label", "Program")).
				Placeholder(cfg.Text("add_program.program_placeholder", "Path to the executable")).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New(cfg.Message("errors.no_program_selected"))
					}
					return nil
				}).
				Value(&f.path),

			huh.NewInput().
				Key("args").
				Title(cfg.Text("add_program.params_label", "Arguments")).
				Value(&f.args),

			huh.NewSelect[string]().
				Key("position").
				Title(cfg.Text("add_program.position_label", "Position")).
				Options(positionOptions(cfg.Positions)...).
				Value(&f.position),
		).Title(cfg.Text("add_program.title", "Add Program")),
	).WithWidth(formWidth(width)).WithShowHelp(true).WithShowErrors(true)
	return f
}

func newMoveForm(cfg *config.Config, width, id int, current string) *activeForm {
	f := &activeForm{
		kind:     formMove,
		targetID: id,
		position: current,
	}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("position").
				Title(cfg.Text("position_change.title", "Change Position")).
				Options(positionOptions(cfg.Positions)...).
				Value(&f.position),
		),
	).WithWidth(formWidth(width)).WithShowHelp(true)
	return f
}

func newTerminateAllForm(cfg *config.Config, width int) *activeForm {
	f := &activeForm{kind: formTerminateAll}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(cfg.Text("controls.terminate_all", "Terminate All") + "?").
				Affirmative("Yes").
				Negative("No").
				Value(&f.confirm),
		),
	).WithWidth(formWidth(width)).WithShowHelp(true)
	return f
}

func formWidth(width int) int {
	w := width - 4
	if w < 40 {
		w = 40
	}
	return w
}
