package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/1broseidon/multilaunch/internal/config"
	"github.com/1broseidon/multilaunch/internal/coordinator"
	"github.com/1broseidon/multilaunch/internal/registry"
	"github.com/1broseidon/multilaunch/internal/runtimepath"
)

// Controller is the coordinator surface the server exposes.
type Controller interface {
	Launch(path, args, position string) (int, error)
	Terminate(id int) (coordinator.Outcome, error)
	TerminateAll()
	Reposition(id int, position string) error
	Snapshot() []registry.View
	Positions() config.PositionList
	Messages(n int) []string
	Stats() coordinator.Stats
	SweepNow() int
	Config() *config.Config
}

// connDeadline bounds a whole request/response exchange.
const connDeadline = 30 * time.Second

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctl          Controller
	artifactDir  string
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
	conns        sync.WaitGroup
}

// NewServer creates a new IPC server on the default socket path.
func NewServer(ctl Controller, artifactDir string, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, ctl, artifactDir, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, ctl Controller, artifactDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath:  socketPath,
		ctl:         ctl,
		artifactDir: artifactDir,
		logger:      logger,
		startTime:   time.Now(),
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections. It fails when another
// instance is already answering on the socket.
func (s *Server) Start() error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("another instance is already listening on %s", s.socketPath)
	}

	// Remove stale socket if present
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.conns.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) stopping() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("IPC handler panic recovered", "error", err)
		}
	}()

	conn.SetDeadline(time.Now().Add(connDeadline))
	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListInstances:
		return ok(InstancesData{Instances: s.ctl.Snapshot()})
	case CommandLaunch:
		return s.handleLaunch(req.Payload)
	case CommandTerminate:
		return s.handleTerminate(req.Payload)
	case CommandTerminateAll:
		s.ctl.TerminateAll()
		return ok(nil)
	case CommandReposition:
		return s.handleReposition(req.Payload)
	case CommandListPositions:
		return s.handleListPositions()
	case CommandGetLogs:
		return s.handleGetLogs(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func ok(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	// Drop exited instances before counting.
	s.ctl.SweepNow()
	stats := s.ctl.Stats()
	return ok(StatusData{
		Instances:     stats.Instances,
		Running:       stats.Running,
		Launching:     stats.Launching,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
		ArtifactDir:   s.artifactDir,
		PID:           os.Getpid(),
	})
}

func (s *Server) handleLaunch(raw json.RawMessage) *Response {
	var req LaunchPayload
	if err := decodePayload(raw, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	if strings.TrimSpace(req.Path) == "" {
		return NewErrorResponse("path is required")
	}
	position := req.Position
	if position == "" {
		position = s.ctl.Config().Defaults.Position
	}
	id, err := s.ctl.Launch(req.Path, req.Args, position)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to launch: %v", err))
	}
	return ok(LaunchData{ID: id})
}

func (s *Server) handleTerminate(raw json.RawMessage) *Response {
	var req TerminatePayload
	if err := decodePayload(raw, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	outcome, err := s.ctl.Terminate(req.ID)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to terminate: %v", err))
	}
	return ok(TerminateData{ID: req.ID, Outcome: string(outcome)})
}

func (s *Server) handleReposition(raw json.RawMessage) *Response {
	var req RepositionPayload
	if err := decodePayload(raw, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	if err := s.ctl.Reposition(req.ID, req.Position); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reposition: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleListPositions() *Response {
	cfg := s.ctl.Config()
	data := PositionsData{
		Default: cfg.Defaults.Position,
		Width:   cfg.Defaults.WindowSize[0],
		Height:  cfg.Defaults.WindowSize[1],
	}
	for _, p := range s.ctl.Positions() {
		data.Positions = append(data.Positions, PositionInfo{Key: p.Key, Name: p.Name, X: p.X(), Y: p.Y()})
	}
	return ok(data)
}

func (s *Server) handleGetLogs(raw json.RawMessage) *Response {
	var req LogsPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("invalid payload: %v", err))
		}
	}
	lines := s.ctl.Messages(req.Lines)
	if lines == nil {
		lines = []string{}
	}
	return ok(LogsData{Lines: lines})
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
}
