package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// ClientVersion is stamped by the CLI from its build version before
// making calls.
var ClientVersion = "dev"

// Client is a connection to the serve daemon.
type Client struct {
	conn       net.Conn
	socketPath string
	timeout    time.Duration
	actor      string
	reader     *bufio.Reader
}

// TryConnect dials the daemon socket and health-checks it. Returns
// (nil, nil) when no healthy daemon is there, so callers can fall back
// to direct storage access.
func TryConnect(socketPath, actor string) (*Client, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return nil, nil
	}
	conn, err := net.DialTimeout("unix", socketPath, 200*time.Millisecond)
	if err != nil {
		// Leftover socket from a crashed daemon.
		_ = os.Remove(socketPath)
		return nil, nil
	}

	c := &Client{
		conn:       conn,
		socketPath: socketPath,
		timeout:    30 * time.Second,
		actor:      actor,
		reader:     bufio.NewReader(conn),
	}

	health, err := c.Health()
	if err != nil || health.Status != "healthy" {
		_ = conn.Close()
		return nil, nil
	}
	if !health.Compatible {
		_ = conn.Close()
		return nil, fmt.Errorf("daemon version %s is incompatible with client %s", health.Version, ClientVersion)
	}
	return c, nil
}

// Connect dials the daemon socket and fails when it is unreachable.
func Connect(socketPath, actor string) (*Client, error) {
	c, err := TryConnect(socketPath, actor)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("no daemon listening on %s", socketPath)
	}
	return c, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SetTimeout adjusts the per-request deadline.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Call sends one tool call and waits for the response frame. A
// response with success=false is returned as-is, not as an error;
// transport failures are errors.
func (c *Client) Call(method string, params map[string]any) (*Response, error) {
	req := Request{
		Method:        method,
		Params:        params,
		Actor:         c.actor,
		ClientVersion: ClientVersion,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	payload = append(payload, '\n')
	if _, err := c.conn.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// CallData is Call plus failure unwrapping: a success=false response
// becomes a typed error, and Data is decoded into out when non-nil.
func (c *Client) CallData(method string, params map[string]any, out any) error {
	resp, err := c.Call(method, params)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s", resp.Error)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", method, err)
		}
	}
	return nil
}

// Ping round-trips a ping frame.
func (c *Client) Ping() (*PingResponse, error) {
	var pong PingResponse
	if err := c.CallData(OpPing, nil, &pong); err != nil {
		return nil, err
	}
	return &pong, nil
}

// Health fetches the daemon's health report.
func (c *Client) Health() (*HealthResponse, error) {
	var health HealthResponse
	if err := c.CallData(OpHealth, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown() error {
	return c.CallData(OpShutdown, nil, nil)
}

// ErrorKind extracts the error kind prefix from a failed response's
// message, for callers that branch on categories.
func ErrorKind(message string) types.ErrorKind {
	for i := 0; i < len(message); i++ {
		if message[i] == ':' {
			return types.ErrorKind(message[:i])
		}
	}
	return types.KindFatal
}
