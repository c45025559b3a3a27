package mcp

import "github.com/1broseidon/multilaunch/internal/registry"

// LaunchProgramInput is the input for the launch_program tool.
type LaunchProgramInput struct {
	Path     string `json:"path" jsonschema:"required,Absolute path of the executable to start"`
	Args     string `json:"args,omitempty" jsonschema:"Argument string, split with shell-style quoting (default: config default_params)"`
	Position string `json:"position,omitempty" jsonschema:"Position key from list_positions (default: config defaults.position)"`
}

// LaunchProgramOutput is the output for the launch_program tool.
type LaunchProgramOutput struct {
	ID       int    `json:"id"`
	Position string `json:"position"`
}

// ListInstancesInput is the input for the list_instances tool.
type ListInstancesInput struct{}

// ListInstancesOutput is the output for the list_instances tool.
type ListInstancesOutput struct {
	Instances []registry.View `json:"instances"`
}

// TerminateInstanceInput is the input for the terminate_instance tool.
type TerminateInstanceInput struct {
	ID int `json:"id" jsonschema:"required,Instance id from list_instances"`
}

// TerminateInstanceOutput is the output for the terminate_instance tool.
type TerminateInstanceOutput struct {
	ID      int    `json:"id"`
	Outcome string `json:"outcome"`
}

// TerminateAllInput is the input for the terminate_all tool.
type TerminateAllInput struct{}

// TerminateAllOutput is the output for the terminate_all tool.
type TerminateAllOutput struct {
	Terminated int `json:"terminated"`
}

// RepositionInstanceInput is the input for the reposition_instance tool.
type RepositionInstanceInput struct {
	ID       int    `json:"id" jsonschema:"required,Instance id from list_instances"`
	Position string `json:"position" jsonschema:"required,Position key from list_positions"`
}

// RepositionInstanceOutput is the output for the reposition_instance tool.
type RepositionInstanceOutput struct {
	ID       int    `json:"id"`
	Position string `json:"position"`
}

// ListPositionsInput is the input for the list_positions tool.
type ListPositionsInput struct{}

// PositionInfo describes one configured position.
type PositionInfo struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Default bool   `json:"default,omitempty"`
}

// ListPositionsOutput is the output for the list_positions tool.
type ListPositionsOutput struct {
	Positions []PositionInfo `json:"positions"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
}

// ReadLogInput is the input for the read_log tool.
type ReadLogInput struct {
	Lines int  `json:"lines,omitempty" jsonschema:"Number of most recent activity lines to return (default: 50, 0 with all=true for everything)"`
	All   bool `json:"all,omitempty" jsonschema:"Return the whole activity log"`
}

// ReadLogOutput is the output for the read_log tool.
type ReadLogOutput struct {
	Lines []string `json:"lines"`
}
