package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/vinayprograms/toolhost/errors"
	"github.com/vinayprograms/toolhost/jsonrpc"
	"github.com/vinayprograms/toolhost/logging"
	"github.com/vinayprograms/toolhost/registry"
)

// stopGracePeriod is how long Stop waits after SIGTERM before SIGKILL.
const stopGracePeriod = 5 * time.Second

// Client is a connection to one stdio tool server. Requests are
// multiplexed over the child's stdin/stdout: each request gets a fresh id
// from a monotonic counter and a pending slot the reader goroutine
// resolves when the matching response line arrives.
type Client struct {
	serverID string
	cmd      *exec.Cmd
	stdin    io.WriteCloser

	writeMu sync.Mutex
	nextID  atomic.Int64

	pendMu  sync.Mutex
	pending map[int64]chan *jsonrpc.Response
	closed  bool

	defaultTimeout time.Duration
	log            *logging.Logger

	readerDone chan struct{} // closed when the reader goroutine exits
	exited     chan struct{} // closed when the process has been reaped
}

// startStdioClient spawns the server process and starts its reader.
// The handshake is the caller's responsibility; on handshake failure the
// caller must Stop the client so no partially-started process leaks.
func startStdioClient(cfg *registry.ServerConfig, defaultTimeout time.Duration, log *logging.Logger) (*Client, error) {
	command := cfg.Command
	if resolved, err := exec.LookPath(command); err != nil {
		log.Warn("command not found in PATH, attempting anyway", map[string]interface{}{
			"server":  cfg.ID,
			"command": command,
		})
	} else {
		command = resolved
	}

	cmd := exec.Command(command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	c := newClient(cfg.ID, stdout, stdin, defaultTimeout, log)
	c.cmd = cmd

	go c.drainStderr(stderr)

	// Reap the process once the reader has consumed all of stdout, so a
	// crashed server never lingers as a zombie.
	go func() {
		<-c.readerDone
		c.cmd.Wait()
		close(c.exited)
	}()

	return c, nil
}

// newClient wires a client over raw reader/writer streams and starts the
// stream reader. Used by startStdioClient and by tests with in-memory pipes.
func newClient(serverID string, r io.Reader, w io.WriteCloser, defaultTimeout time.Duration, log *logging.Logger) *Client {
	if log == nil {
		log = logging.New()
	}
	c := &Client{
		serverID:       serverID,
		stdin:          w,
		pending:        make(map[int64]chan *jsonrpc.Response),
		defaultTimeout: defaultTimeout,
		log:            log,
		readerDone:     make(chan struct{}),
		exited:         make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

// Initialize performs the initialize/initialized handshake.
func (c *Client) Initialize(ctx context.Context, info ClientInfo) error {
	_, err := c.SendRequest(ctx, "initialize", InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      info,
	}, 0)
	if err != nil {
		return err
	}
	return c.SendNotification("notifications/initialized", nil)
}

// SendRequest sends one request and waits for its response up to timeout
// (the server's configured timeout when zero). The pending slot is always
// removed before returning, whatever the outcome.
func (c *Client) SendRequest(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}

	id := c.nextID.Add(1)
	ch := make(chan *jsonrpc.Response, 1)

	c.pendMu.Lock()
	if c.closed {
		c.pendMu.Unlock()
		return nil, errors.ServerDisconnected(c.serverID)
	}
	c.pending[id] = ch
	c.pendMu.Unlock()

	if err := c.write(jsonrpc.NewRequest(id, method, params)); err != nil {
		c.removeSlot(id)
		return nil, errors.WrapWithCode(err, errors.ErrCodeDisconnected,
			fmt.Sprintf("failed to write request to server %q", c.serverID),
			errors.WithServerID(c.serverID))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, errors.ServerDisconnected(c.serverID)
		}
		if resp.Error != nil {
			return nil, errors.RPC(c.serverID, resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-timer.C:
		c.removeSlot(id)
		return nil, errors.RequestTimeout(c.serverID, method)
	case <-ctx.Done():
		c.removeSlot(id)
		return nil, errors.Wrap(ctx.Err(), fmt.Sprintf("request %q to server %q aborted", method, c.serverID),
			errors.WithServerID(c.serverID))
	}
}

// SendNotification sends a notification. No reply is ever expected.
func (c *Client) SendNotification(method string, params interface{}) error {
	if err := c.write(jsonrpc.NewNotification(method, params)); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeDisconnected,
			fmt.Sprintf("failed to write notification to server %q", c.serverID),
			errors.WithServerID(c.serverID))
	}
	return nil
}

// write serializes one envelope to a single line on stdin. The mutex
// keeps concurrent requests from interleaving bytes.
func (c *Client) write(msg interface{}) error {
	data, err := jsonrpc.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.stdin.Write(data)
	return err
}

func (c *Client) removeSlot(id int64) {
	c.pendMu.Lock()
	delete(c.pending, id)
	c.pendMu.Unlock()
}

// readLoop consumes stdout line by line until EOF, resolving pending
// slots. A malformed line is logged and skipped, never fatal. On exit
// every still-pending slot is failed so no caller hangs forever.
func (c *Client) readLoop(r io.Reader) {
	defer close(c.readerDone)
	defer c.failPending()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := jsonrpc.ParseMessage(line)
		if err != nil {
			c.log.MalformedLine(c.serverID, err)
			continue
		}

		if msg.Notification != nil {
			c.log.NotificationDropped(c.serverID, msg.Notification.Method)
			continue
		}

		resp := msg.Response
		c.pendMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendMu.Unlock()

		if !ok {
			// Stale id, likely a reply that outlived its timeout.
			c.log.UnexpectedResponse(c.serverID, resp.ID)
			continue
		}
		ch <- resp
	}
}

// failPending fails every outstanding request with a disconnect. Safe to
// call more than once; slots are failed at most once.
func (c *Client) failPending() {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()

	c.closed = true
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
}

// Alive reports whether the server process is still running.
func (c *Client) Alive() bool {
	if c.cmd == nil {
		select {
		case <-c.readerDone:
			return false
		default:
			return true
		}
	}
	select {
	case <-c.exited:
		return false
	default:
		return c.cmd.Process.Signal(syscall.Signal(0)) == nil
	}
}

// PID returns the server's process id, or 0 for pipe-backed clients.
func (c *Client) PID() int {
	if c.cmd == nil || c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Stop tears the connection down: pending requests fail immediately
// (disconnected wins over any response racing in), then the process gets
// SIGTERM, a grace period, and SIGKILL if it is still around. Kill
// failures are logged, never returned; the connection is gone regardless.
func (c *Client) Stop() {
	c.failPending()
	c.stdin.Close()

	if c.cmd == nil || c.cmd.Process == nil {
		return
	}

	forced := false
	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		c.log.Debug("signal failed, process likely already gone", map[string]interface{}{
			"server": c.serverID,
			"error":  err.Error(),
		})
	}

	select {
	case <-c.exited:
	case <-time.After(stopGracePeriod):
		forced = true
		if err := c.cmd.Process.Kill(); err != nil {
			c.log.Warn("failed to kill server process", map[string]interface{}{
				"server": c.serverID,
				"pid":    c.cmd.Process.Pid,
				"error":  err.Error(),
			})
		}
		<-c.exited
	}

	c.log.ServerStopped(c.serverID, forced)
}

// drainStderr forwards the child's stderr to the log, one line at a time.
func (c *Client) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.log.Debug("server_stderr", map[string]interface{}{
			"server": c.serverID,
			"line":   scanner.Text(),
		})
	}
}
