// Package mcp exposes the launcher daemon as Model Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/multilaunch/internal/ipc"
	"github.com/1broseidon/multilaunch/internal/registry"
)

const (
	ServerName    = "multilaunch"
	ServerVersion = "0.1.0"

	defaultLogLines = 50
)

// Daemon is the control surface the tools call. *ipc.Client implements it.
type Daemon interface {
	Launch(path, args, position string) (int, error)
	ListInstances() ([]registry.View, error)
	Terminate(id int) (string, error)
	TerminateAll() error
	Reposition(id int, position string) error
	ListPositions() (*ipc.PositionsData, error)
	GetLogs(n int) ([]string, error)
}

// Server is the MCP server for launching and arranging program instances.
type Server struct {
	mcpServer     *mcpsdk.Server
	daemon        Daemon
	defaultParams string
	logger        *slog.Logger
}

// NewServer creates a new MCP server that proxies to daemon. defaultParams
// is used when launch_program is called without args.
func NewServer(daemon Daemon, defaultParams string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon:        daemon,
		defaultParams: defaultParams,
		logger:        logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "launch_program",
		Description: "Start a new instance of an executable and place its main window at a configured screen position once it appears. Returns the instance id immediately; window placement continues in the background (see read_log).",
	}, s.handleLaunchProgram)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_instances",
		Description: "List tracked program instances with their id, executable, position, status (Launching or Running) and resolved PID.",
	}, s.handleListInstances)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "terminate_instance",
		Description: "Terminate one program instance by id. The instance is forgotten even when its process had already exited.",
	}, s.handleTerminateInstance)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "terminate_all",
		Description: "Terminate every tracked program instance.",
	}, s.handleTerminateAll)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reposition_instance",
		Description: "Move an instance's window to another configured position.",
	}, s.handleRepositionInstance)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_positions",
		Description: "List the configured screen positions in order, with coordinates and the window size applied on every move.",
	}, s.handleListPositions)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "read_log",
		Description: "Read the most recent lines of the user-facing activity log (default 50).",
	}, s.handleReadLog)
}
