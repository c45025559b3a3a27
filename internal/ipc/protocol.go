package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/multilaunch/internal/registry"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandListInstances CommandType = "LIST_INSTANCES"
	CommandLaunch        CommandType = "LAUNCH"
	CommandTerminate     CommandType = "TERMINATE"
	CommandTerminateAll  CommandType = "TERMINATE_ALL"
	CommandReposition    CommandType = "REPOSITION"
	CommandListPositions CommandType = "LIST_POSITIONS"
	CommandGetLogs       CommandType = "GET_LOGS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Instances     int    `json:"instances"`
	Running       int    `json:"running"`
	Launching     int    `json:"launching"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
	ArtifactDir   string `json:"artifact_dir,omitempty"`
	PID           int    `json:"pid"`
}

// InstancesData represents the data returned by LIST_INSTANCES
type InstancesData struct {
	Instances []registry.View `json:"instances"`
}

type LaunchPayload struct {
	Path     string `json:"path"`
	Args     string `json:"args,omitempty"`
	Position string `json:"position,omitempty"` // empty = defaults.position
}

type LaunchData struct {
	ID int `json:"id"`
}

type TerminatePayload struct {
	ID int `json:"id"`
}

type TerminateData struct {
	ID      int    `json:"id"`
	Outcome string `json:"outcome"`
}

type RepositionPayload struct {
	ID       int    `json:"id"`
	Position string `json:"position"`
}

// PositionInfo is one entry of the position table.
type PositionInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type PositionsData struct {
	Positions []PositionInfo `json:"positions"`
	Default   string         `json:"default"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
}

type LogsPayload struct {
	Lines int `json:"lines,omitempty"` // 0 = all
}

type LogsData struct {
	Lines []string `json:"lines"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
