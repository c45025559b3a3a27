package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/multilaunch/internal/registry"
)

func (s *Server) handleLaunchProgram(_ context.Context, _ *mcpsdk.CallToolRequest, args LaunchProgramInput) (*mcpsdk.CallToolResult, LaunchProgramOutput, error) {
	path := strings.TrimSpace(args.Path)
	if path == "" {
		return nil, LaunchProgramOutput{}, fmt.Errorf("path is required")
	}
	params := args.Args
	if params == "" {
		params = s.defaultParams
	}

	id, err := s.daemon.Launch(path, params, args.Position)
	if err != nil {
		s.logger.Warn("mcp: launch_program failed", "path", path, "error", err)
		return nil, LaunchProgramOutput{}, err
	}
	s.logger.Info("mcp: launch_program", "id", id, "path", path, "position", args.Position)
	return nil, LaunchProgramOutput{ID: id, Position: args.Position}, nil
}

func (s *Server) handleListInstances(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListInstancesInput) (*mcpsdk.CallToolResult, ListInstancesOutput, error) {
	views, err := s.daemon.ListInstances()
	if err != nil {
		return nil, ListInstancesOutput{}, err
	}
	if views == nil {
		views = []registry.View{}
	}
	return nil, ListInstancesOutput{Instances: views}, nil
}

func (s *Server) handleTerminateInstance(_ context.Context, _ *mcpsdk.CallToolRequest, args TerminateInstanceInput) (*mcpsdk.CallToolResult, TerminateInstanceOutput, error) {
	if args.ID <= 0 {
		return nil, TerminateInstanceOutput{}, fmt.Errorf("id must be positive")
	}
	outcome, err := s.daemon.Terminate(args.ID)
	if err != nil {
		s.logger.Warn("mcp: terminate_instance failed", "id", args.ID, "error", err)
		return nil, TerminateInstanceOutput{}, err
	}
	s.logger.Info("mcp: terminate_instance", "id", args.ID, "outcome", outcome)
	return nil, TerminateInstanceOutput{ID: args.ID, Outcome: outcome}, nil
}

func (s *Server) handleTerminateAll(_ context.Context, _ *mcpsdk.CallToolRequest, _ TerminateAllInput) (*mcpsdk.CallToolResult, TerminateAllOutput, error) {
	views, err := s.daemon.ListInstances()
	if err != nil {
		return nil, TerminateAllOutput{}, err
	}
	if err := s.daemon.TerminateAll(); err != nil {
		return nil, TerminateAllOutput{}, err
	}
	s.logger.Info("mcp: terminate_all", "count", len(views))
	return nil, TerminateAllOutput{Terminated: len(views)}, nil
}

func (s *Server) handleRepositionInstance(_ context.Context, _ *mcpsdk.CallToolRequest, args RepositionInstanceInput) (*mcpsdk.CallToolResult, RepositionInstanceOutput, error) {
	position := strings.TrimSpace(args.Position)
	if position == "" {
		return nil, RepositionInstanceOutput{}, fmt.Errorf("position is required")
	}
	if err := s.daemon.Reposition(args.ID, position); err != nil {
		return nil, RepositionInstanceOutput{}, err
	}
	s.logger.Info("mcp: reposition_instance", "id", args.ID, "position", position)
	return nil, RepositionInstanceOutput{ID: args.ID, Position: position}, nil
}

func (s *Server) handleListPositions(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListPositionsInput) (*mcpsdk.CallToolResult, ListPositionsOutput, error) {
	data, err := s.daemon.ListPositions()
	if err != nil {
		return nil, ListPositionsOutput{}, err
	}
	out := ListPositionsOutput{Width: data.Width, Height: data.Height}
	for _, p := range data.Positions {
		out.Positions = append(out.Positions, PositionInfo{
			Key:     p.Key,
			Name:    p.Name,
			X:       p.X,
			Y:       p.Y,
			Default: p.Key == data.Default,
		})
	}
	return nil, out, nil
}

func (s *Server) handleReadLog(_ context.Context, _ *mcpsdk.CallToolRequest, args ReadLogInput) (*mcpsdk.CallToolResult, ReadLogOutput, error) {
	n := args.Lines
	switch {
	case args.All:
		n = 0
	case n <= 0:
		n = defaultLogLines
	}
	lines, err := s.daemon.GetLogs(n)
	if err != nil {
		return nil, ReadLogOutput{}, err
	}
	if lines == nil {
		lines = []string{}
	}
	return nil, ReadLogOutput{Lines: lines}, nil
}
