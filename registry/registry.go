package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vinayprograms/toolhost/errors"
	"github.com/vinayprograms/toolhost/logging"
)

// Transport identifies how a server is reached.
type Transport string

const (
	// TransportStdio spawns a child process and speaks newline-delimited
	// JSON-RPC over its stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportHTTP posts one JSON-RPC envelope per call to a remote URL.
	TransportHTTP Transport = "http"
)

// ServerConfig describes one tool server. Exactly the fields for its
// transport kind are populated; Validate enforces this.
type ServerConfig struct {
	ID          string
	Name        string
	Description string
	Transport   Transport

	// stdio
	Command string
	Args    []string
	Env     map[string]string

	// http
	URL     string
	Headers map[string]string

	Enabled        bool
	TimeoutSeconds int
	IsCustom       bool
}

// Validate checks that the config carries exactly the fields of its
// transport kind.
func (c *ServerConfig) Validate() error {
	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			return errors.InvalidInput(fmt.Sprintf("server %q: stdio transport requires a command", c.ID))
		}
		if c.URL != "" {
			return errors.InvalidInput(fmt.Sprintf("server %q: stdio transport must not set url", c.ID))
		}
	case TransportHTTP:
		if c.URL == "" {
			return errors.InvalidInput(fmt.Sprintf("server %q: http transport requires a url", c.ID))
		}
		if c.Command != "" || len(c.Args) > 0 || len(c.Env) > 0 {
			return errors.InvalidInput(fmt.Sprintf("server %q: http transport must not set command/args/env", c.ID))
		}
	default:
		return errors.InvalidInput(fmt.Sprintf("server %q: unknown transport %q", c.ID, c.Transport))
	}
	if c.TimeoutSeconds < 0 {
		return errors.InvalidInput(fmt.Sprintf("server %q: negative timeout", c.ID))
	}
	return nil
}

// Timeout returns the configured request timeout, or fallback when unset.
func (c *ServerConfig) Timeout(fallback time.Duration) time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return fallback
}

// clone returns a copy safe to hand to callers.
func (c *ServerConfig) clone() *ServerConfig {
	out := *c
	out.Args = append([]string(nil), c.Args...)
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	return &out
}

// Registry holds the merged server catalog.
type Registry struct {
	mu         sync.RWMutex
	serversFile string
	customFile  string
	servers     map[string]*ServerConfig
	log         *logging.Logger
}

// New creates a registry backed by the given catalog files.
func New(serversFile, customFile string, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.New()
	}
	return &Registry{
		serversFile: serversFile,
		customFile:  customFile,
		servers:     make(map[string]*ServerConfig),
		log:         log.WithComponent("registry"),
	}
}

// Load reads both catalog files, replacing the in-memory catalog.
// A missing static file logs a warning and leaves the catalog empty;
// a missing custom file is silently skipped.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.servers = make(map[string]*ServerConfig)

	static, err := readCatalogFile(r.serversFile, false)
	if err != nil {
		if isNotExist(err) {
			r.log.Warn("servers file missing, starting with empty catalog", map[string]interface{}{
				"path": r.serversFile,
			})
		} else {
			return errors.Wrapf(err, "failed to load servers file %s", r.serversFile)
		}
	}
	for _, cfg := range static {
		if err := cfg.Validate(); err != nil {
			r.log.Warn("skipping invalid server entry", map[string]interface{}{
				"server": cfg.ID,
				"error":  err.Error(),
			})
			continue
		}
		r.servers[cfg.ID] = cfg
	}

	custom, err := readCatalogFile(r.customFile, true)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to load custom servers file %s", r.customFile)
	}
	for _, cfg := range custom {
		if _, exists := r.servers[cfg.ID]; exists {
			r.log.Warn("custom server shadows a builtin, keeping builtin", map[string]interface{}{
				"server": cfg.ID,
			})
			continue
		}
		if err := cfg.Validate(); err != nil {
			r.log.Warn("skipping invalid custom server entry", map[string]interface{}{
				"server": cfg.ID,
				"error":  err.Error(),
			})
			continue
		}
		r.servers[cfg.ID] = cfg
	}
	return nil
}

// Get returns the config for id.
func (r *Registry) Get(id string) (*ServerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.servers[id]
	if !ok {
		return nil, errors.UnknownServer(id)
	}
	return cfg.clone(), nil
}

// All returns every registered server, sorted by id.
func (r *Registry) All() []*ServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ServerConfig, 0, len(r.servers))
	for _, cfg := range r.servers {
		out = append(out, cfg.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddCustomServer registers a new custom HTTP server and persists it.
func (r *Registry) AddCustomServer(id, name, url, description string, timeoutSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[id]; exists {
		return errors.DuplicateServer(id)
	}

	cfg := &ServerConfig{
		ID:             id,
		Name:           name,
		Description:    description,
		Transport:      TransportHTTP,
		URL:            url,
		Enabled:        true,
		TimeoutSeconds: timeoutSeconds,
		IsCustom:       true,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.servers[id] = cfg
	if err := r.saveCustomLocked(); err != nil {
		delete(r.servers, id)
		return err
	}
	r.log.Info("custom server added", map[string]interface{}{"server": id})
	return nil
}

// DeleteCustomServer removes a custom server and persists the removal.
func (r *Registry) DeleteCustomServer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.servers[id]
	if !ok {
		return errors.NotFound(fmt.Sprintf("server %q not found", id), errors.WithServerID(id))
	}
	if !cfg.IsCustom {
		return errors.InvalidOperation(fmt.Sprintf("server %q is builtin and cannot be deleted", id),
			errors.WithServerID(id))
	}

	delete(r.servers, id)
	if err := r.saveCustomLocked(); err != nil {
		r.servers[id] = cfg
		return err
	}
	r.log.Info("custom server deleted", map[string]interface{}{"server": id})
	return nil
}

// saveCustomLocked rewrites the custom servers file with only the custom
// entries. Caller holds the write lock.
func (r *Registry) saveCustomLocked() error {
	custom := make([]*ServerConfig, 0)
	for _, cfg := range r.servers {
		if cfg.IsCustom {
			custom = append(custom, cfg)
		}
	}
	if err := writeCatalogFile(r.customFile, custom); err != nil {
		return errors.Wrapf(err, "failed to write custom servers file %s", r.customFile)
	}
	return nil
}
