package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vinayprograms/toolhost/errors"
	"github.com/vinayprograms/toolhost/logging"
	"github.com/vinayprograms/toolhost/registry"
)

// Status is the observable state of one server.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// ServerInfo is one row of ListServers.
type ServerInfo struct {
	ID          string
	Name        string
	Description string
	Enabled     bool
	Status      Status
	IsCustom    bool
	URL         string // empty for stdio servers
}

// Options configure a Manager.
type Options struct {
	// ClientInfo is sent in every initialize handshake.
	ClientInfo ClientInfo

	// DefaultTimeout applies to servers without a timeout of their own.
	DefaultTimeout time.Duration

	// BearerToken, when set, authenticates requests to HTTP servers.
	BearerToken string

	// HTTPClient overrides the shared HTTP client (nil uses a default).
	HTTPClient *http.Client
}

// Manager owns all server runtime state: one Client per running stdio
// server and a connected set of HTTP servers. A single mutex serializes
// start/stop; starts are rare enough that contention is a non-issue.
type Manager struct {
	reg  *registry.Registry
	opts Options
	log  *logging.Logger

	mu        sync.Mutex
	conns     map[string]*Client
	httpConns map[string]*HTTPClient
	onStop    []func(serverID string)
}

// NewManager creates a manager over the given registry.
func NewManager(reg *registry.Registry, opts Options, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.New()
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	if opts.ClientInfo.Name == "" {
		opts.ClientInfo = ClientInfo{Name: "toolhost", Version: "1.0.0"}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Manager{
		reg:       reg,
		opts:      opts,
		log:       log.WithComponent("mcp"),
		conns:     make(map[string]*Client),
		httpConns: make(map[string]*HTTPClient),
	}
}

// OnStop registers a hook invoked whenever a server is stopped, before
// StopServer returns. The tools catalog uses this to drop stale caches.
func (m *Manager) OnStop(hook func(serverID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStop = append(m.onStop, hook)
}

// StartServer starts the server (or connects to it, for HTTP) and runs
// the handshake. Starting an already-running server is a no-op. On any
// failure the partially-started process is torn down and nothing stays
// registered.
func (m *Manager) StartServer(ctx context.Context, id string) error {
	cfg, err := m.reg.Get(id)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		return errors.InvalidOperation(fmt.Sprintf("server %q is disabled", id), errors.WithServerID(id))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch cfg.Transport {
	case registry.TransportStdio:
		return m.startStdioLocked(ctx, cfg)
	case registry.TransportHTTP:
		return m.startHTTPLocked(ctx, cfg)
	default:
		return errors.InvalidInput(fmt.Sprintf("server %q: unknown transport %q", id, cfg.Transport))
	}
}

func (m *Manager) startStdioLocked(ctx context.Context, cfg *registry.ServerConfig) error {
	if existing, ok := m.conns[cfg.ID]; ok {
		if existing.Alive() {
			return nil
		}
		// Dead connection left behind by a crash; clean it up and respawn.
		existing.Stop()
		delete(m.conns, cfg.ID)
	}

	log := m.log.WithTraceID(uuid.NewString())
	c, err := startStdioClient(cfg, m.opts.DefaultTimeout, log)
	if err != nil {
		return errors.ServerStart(cfg.ID, err)
	}

	hctx, cancel := context.WithTimeout(ctx, cfg.Timeout(m.opts.DefaultTimeout))
	defer cancel()
	if err := c.Initialize(hctx, m.opts.ClientInfo); err != nil {
		c.Stop()
		return errors.ServerStart(cfg.ID, err)
	}

	m.conns[cfg.ID] = c
	log.ServerStarted(cfg.ID, c.PID())
	return nil
}

func (m *Manager) startHTTPLocked(ctx context.Context, cfg *registry.ServerConfig) error {
	if _, ok := m.httpConns[cfg.ID]; ok {
		return nil
	}

	hc := newHTTPClient(cfg, m.opts.BearerToken, m.opts.HTTPClient, m.opts.DefaultTimeout)
	if err := hc.Initialize(ctx, m.opts.ClientInfo); err != nil {
		return errors.ServerStart(cfg.ID, err)
	}

	m.httpConns[cfg.ID] = hc
	m.log.Info("server_connected", map[string]interface{}{"server": cfg.ID, "url": cfg.URL})
	return nil
}

// StopServer stops a running server. Not running is a no-op; an id the
// registry has never heard of is an error.
func (m *Manager) StopServer(ctx context.Context, id string) error {
	if _, err := m.reg.Get(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(id)
	return nil
}

func (m *Manager) stopLocked(id string) {
	if c, ok := m.conns[id]; ok {
		c.Stop()
		delete(m.conns, id)
	}
	if _, ok := m.httpConns[id]; ok {
		delete(m.httpConns, id)
		m.log.Info("server_disconnected", map[string]interface{}{"server": id})
	}
	for _, hook := range m.onStop {
		hook(id)
	}
}

// StopAll stops every running stdio server concurrently and disconnects
// every HTTP server. Used at process shutdown.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	conns := make(map[string]*Client, len(m.conns))
	for id, c := range m.conns {
		conns[id] = c
	}
	m.conns = make(map[string]*Client)
	httpIDs := make([]string, 0, len(m.httpConns))
	for id := range m.httpConns {
		httpIDs = append(httpIDs, id)
	}
	m.httpConns = make(map[string]*HTTPClient)
	hooks := append([]func(string){}, m.onStop...)
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for id, c := range conns {
		id, c := id, c
		g.Go(func() error {
			c.Stop()
			for _, hook := range hooks {
				hook(id)
			}
			return nil
		})
	}
	for _, id := range httpIDs {
		for _, hook := range hooks {
			hook(id)
		}
	}
	return g.Wait()
}

// Status returns the live status of one server. Unknown ids return
// StatusError alongside the error.
func (m *Manager) Status(id string) (Status, error) {
	cfg, err := m.reg.Get(id)
	if err != nil {
		return StatusError, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch cfg.Transport {
	case registry.TransportStdio:
		if c, ok := m.conns[id]; ok && c.Alive() {
			return StatusRunning, nil
		}
	case registry.TransportHTTP:
		if _, ok := m.httpConns[id]; ok {
			return StatusRunning, nil
		}
	}
	return StatusStopped, nil
}

// ListServers returns every registered server with its live status.
func (m *Manager) ListServers() []ServerInfo {
	all := m.reg.All()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ServerInfo, 0, len(all))
	for _, cfg := range all {
		status := StatusStopped
		switch cfg.Transport {
		case registry.TransportStdio:
			if c, ok := m.conns[cfg.ID]; ok && c.Alive() {
				status = StatusRunning
			}
		case registry.TransportHTTP:
			if _, ok := m.httpConns[cfg.ID]; ok {
				status = StatusRunning
			}
		}
		out = append(out, ServerInfo{
			ID:          cfg.ID,
			Name:        cfg.Name,
			Description: cfg.Description,
			Enabled:     cfg.Enabled,
			Status:      status,
			IsCustom:    cfg.IsCustom,
			URL:         cfg.URL,
		})
	}
	return out
}

// SendRequest routes one request to a running server by transport kind.
// A zero timeout falls back to the server's configured timeout.
func (m *Manager) SendRequest(ctx context.Context, id, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	cfg, err := m.reg.Get(id)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = cfg.Timeout(m.opts.DefaultTimeout)
	}

	m.mu.Lock()
	stdio := m.conns[id]
	httpc := m.httpConns[id]
	m.mu.Unlock()

	switch cfg.Transport {
	case registry.TransportStdio:
		if stdio == nil {
			return nil, errors.New(errors.ErrCodeUnavailable,
				fmt.Sprintf("server %q is not running", id), errors.WithServerID(id))
		}
		return stdio.SendRequest(ctx, method, params, timeout)
	case registry.TransportHTTP:
		if httpc == nil {
			return nil, errors.New(errors.ErrCodeUnavailable,
				fmt.Sprintf("server %q is not connected", id), errors.WithServerID(id))
		}
		return httpc.Call(ctx, method, params, timeout)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("server %q: unknown transport %q", id, cfg.Transport))
	}
}

// SendNotification routes one notification; no reply is awaited.
func (m *Manager) SendNotification(ctx context.Context, id, method string, params interface{}) error {
	cfg, err := m.reg.Get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	stdio := m.conns[id]
	httpc := m.httpConns[id]
	m.mu.Unlock()

	switch cfg.Transport {
	case registry.TransportStdio:
		if stdio == nil {
			return errors.New(errors.ErrCodeUnavailable,
				fmt.Sprintf("server %q is not running", id), errors.WithServerID(id))
		}
		return stdio.SendNotification(method, params)
	case registry.TransportHTTP:
		if httpc == nil {
			return errors.New(errors.ErrCodeUnavailable,
				fmt.Sprintf("server %q is not connected", id), errors.WithServerID(id))
		}
		return httpc.Notify(ctx, method, params)
	default:
		return errors.InvalidInput(fmt.Sprintf("server %q: unknown transport %q", id, cfg.Transport))
	}
}

// ListTools fetches the server's advertised tools via tools/list.
func (m *Manager) ListTools(ctx context.Context, id string) ([]Tool, error) {
	raw, err := m.SendRequest(ctx, id, "tools/list", nil, 0)
	if err != nil {
		return nil, err
	}
	var result ToolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("invalid tools/list result from server %q", id),
			errors.WithServerID(id))
	}
	return result.Tools, nil
}

// CallTool invokes one tool via tools/call and returns the raw result.
func (m *Manager) CallTool(ctx context.Context, id, name string, args map[string]interface{}) (json.RawMessage, error) {
	return m.SendRequest(ctx, id, "tools/call", ToolCallParams{Name: name, Arguments: args}, 0)
}
