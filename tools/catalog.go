// Package tools turns raw protocol results into reusable tool handles.
//
// The Catalog caches each server's advertised tool list so stable
// connections are not renegotiated on every call. Caches must be cleared
// when a server stops (Manager.OnStop does this when wired) because a
// restarted server may advertise a different schema.
package tools

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vinayprograms/toolhost/errors"
	"github.com/vinayprograms/toolhost/logging"
	"github.com/vinayprograms/toolhost/mcp"
)

// Descriptor describes one callable tool on one server.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Runner is the slice of the connection manager the catalog needs.
type Runner interface {
	// StartServer starts (or reconnects) a server; idempotent.
	StartServer(ctx context.Context, id string) error

	// ListTools fetches the server's advertised tools.
	ListTools(ctx context.Context, id string) ([]mcp.Tool, error)

	// CallTool invokes one tool and returns the raw result.
	CallTool(ctx context.Context, id, name string, args map[string]interface{}) (json.RawMessage, error)
}

// Catalog caches discovered tools per server.
type Catalog struct {
	runner Runner
	log    *logging.Logger

	mu    sync.Mutex
	tools map[string][]Descriptor
}

// NewCatalog creates a catalog over the given runner.
func NewCatalog(runner Runner, log *logging.Logger) *Catalog {
	if log == nil {
		log = logging.New()
	}
	return &Catalog{
		runner: runner,
		log:    log.WithComponent("tools"),
		tools:  make(map[string][]Descriptor),
	}
}

// Discover returns the server's tools, from cache when possible. On a
// cache miss the server is auto-started and tools/list is issued once.
func (c *Catalog) Discover(ctx context.Context, serverID string) ([]Descriptor, error) {
	c.mu.Lock()
	if cached, ok := c.tools[serverID]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	if err := c.runner.StartServer(ctx, serverID); err != nil {
		return nil, err
	}

	raw, err := c.runner.ListTools(ctx, serverID)
	if err != nil {
		return nil, err
	}

	descriptors := make([]Descriptor, len(raw))
	for i, tool := range raw {
		descriptors[i] = Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}

	c.mu.Lock()
	c.tools[serverID] = descriptors
	c.mu.Unlock()

	c.log.Debug("tools_discovered", map[string]interface{}{
		"server": serverID,
		"count":  len(descriptors),
	})
	return descriptors, nil
}

// Call invokes one tool by name, discovering the server's tools first if
// they are not cached. Names the server never advertised fail with
// UNKNOWN_TOOL without a round trip.
func (c *Catalog) Call(ctx context.Context, serverID, tool string, args map[string]interface{}) (json.RawMessage, error) {
	descriptors, err := c.Discover(ctx, serverID)
	if err != nil {
		return nil, err
	}

	known := false
	for _, d := range descriptors {
		if d.Name == tool {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.UnknownTool(serverID, tool)
	}

	c.log.ToolCall(serverID, tool)
	start := time.Now()
	result, err := c.runner.CallTool(ctx, serverID, tool, args)
	c.log.ToolResult(serverID, tool, time.Since(start), err)
	return result, err
}

// ClearCache drops the cached tool list for one server. Must follow a
// server stop so a restart renegotiates.
func (c *Catalog) ClearCache(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tools, serverID)
}

// ClearAll drops every cached tool list.
func (c *Catalog) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = make(map[string][]Descriptor)
}
