package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/multilaunch/internal/registry"
	"github.com/1broseidon/multilaunch/internal/runtimepath"
)

const (
	defaultTimeout = 5 * time.Second
	launchTimeout  = 10 * time.Second
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    defaultTimeout,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	conn, err := net.DialTimeout("unix", c.socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with payload and decodes the response data into out
// when out is non-nil.
func (c *Client) call(command CommandType, payload interface{}, out interface{}, timeout time.Duration) error {
	req := &Request{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = raw
	}

	resp, err := c.sendRequest(req, timeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status, 0); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListInstances returns every tracked instance ordered by id.
func (c *Client) ListInstances() ([]registry.View, error) {
	var data InstancesData
	if err := c.call(CommandListInstances, nil, &data, 0); err != nil {
		return nil, err
	}
	return data.Instances, nil
}

// Launch starts path at position (empty = configured default) and returns
// the new instance id.
func (c *Client) Launch(path, args, position string) (int, error) {
	var data LaunchData
	payload := LaunchPayload{Path: path, Args: args, Position: position}
	if err := c.call(CommandLaunch, payload, &data, launchTimeout); err != nil {
		return 0, err
	}
	return data.ID, nil
}

// Terminate stops instance id and returns the outcome reported by the daemon.
func (c *Client) Terminate(id int) (string, error) {
	var data TerminateData
	if err := c.call(CommandTerminate, TerminatePayload{ID: id}, &data, launchTimeout); err != nil {
		return "", err
	}
	return data.Outcome, nil
}

// TerminateAll stops every instance.
func (c *Client) TerminateAll() error {
	return c.call(CommandTerminateAll, nil, nil, launchTimeout)
}

// Reposition moves instance id to position.
func (c *Client) Reposition(id int, position string) error {
	return c.call(CommandReposition, RepositionPayload{ID: id, Position: position}, nil, 0)
}

// ListPositions returns the position table.
func (c *Client) ListPositions() (*PositionsData, error) {
	var data PositionsData
	if err := c.call(CommandListPositions, nil, &data, 0); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLogs returns the last n activity lines; n <= 0 returns all.
func (c *Client) GetLogs(n int) ([]string, error) {
	var data LogsData
	if err := c.call(CommandGetLogs, LogsPayload{Lines: n}, &data, 0); err != nil {
		return nil, err
	}
	return data.Lines, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
