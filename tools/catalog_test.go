package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/vinayprograms/toolhost/errors"
	"github.com/vinayprograms/toolhost/mcp"
)

// stubRunner counts protocol round trips so tests can observe caching.
type stubRunner struct {
	startCalls int
	listCalls  int
	callCalls  int
	tools      []mcp.Tool
	callResult json.RawMessage
	startErr   error
	listErr    error
}

func (s *stubRunner) StartServer(ctx context.Context, id string) error {
	s.startCalls++
	return s.startErr
}

func (s *stubRunner) ListTools(ctx context.Context, id string) ([]mcp.Tool, error) {
	s.listCalls++
	return s.tools, s.listErr
}

func (s *stubRunner) CallTool(ctx context.Context, id, name string, args map[string]interface{}) (json.RawMessage, error) {
	s.callCalls++
	return s.callResult, nil
}

func newStub() *stubRunner {
	return &stubRunner{
		tools: []mcp.Tool{
			{Name: "add", Description: "add two numbers", InputSchema: map[string]interface{}{"type": "object"}},
			{Name: "sub", Description: "subtract"},
		},
		callResult: json.RawMessage(`{"content":[{"type":"text","text":"3"}]}`),
	}
}

func TestDiscoverCachesToolList(t *testing.T) {
	stub := newStub()
	c := NewCatalog(stub, nil)
	ctx := context.Background()

	first, err := c.Discover(ctx, "echo")
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(first) != 2 || first[0].Name != "add" {
		t.Fatalf("unexpected descriptors: %+v", first)
	}
	if stub.startCalls != 1 || stub.listCalls != 1 {
		t.Errorf("expected one start and one list, got %d/%d", stub.startCalls, stub.listCalls)
	}

	second, err := c.Discover(ctx, "echo")
	if err != nil {
		t.Fatal(err)
	}
	if stub.listCalls != 1 {
		t.Errorf("second discover must hit the cache, got %d list calls", stub.listCalls)
	}
	if len(second) != len(first) || second[0].Name != first[0].Name {
		t.Error("cached list differs from the first discovery")
	}
}

func TestDiscoverAutoStartFailure(t *testing.T) {
	stub := newStub()
	stub.startErr = errors.UnknownServer("ghost")
	c := NewCatalog(stub, nil)

	_, err := c.Discover(context.Background(), "ghost")
	if !errors.Is(err, errors.ErrCodeUnknownServer) {
		t.Errorf("expected UNKNOWN_SERVER, got %v", err)
	}
	if stub.listCalls != 0 {
		t.Error("list must not run when start fails")
	}
}

func TestCallKnownTool(t *testing.T) {
	stub := newStub()
	c := NewCatalog(stub, nil)

	raw, err := c.Call(context.Background(), "echo", "add", map[string]interface{}{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if stub.callCalls != 1 {
		t.Errorf("expected one tool call, got %d", stub.callCalls)
	}
	result, err := mcp.ParseToolResult(raw)
	if err != nil {
		t.Fatal(err)
	}
	if result.Content[0].Text != "3" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestCallUnknownTool(t *testing.T) {
	stub := newStub()
	c := NewCatalog(stub, nil)

	_, err := c.Call(context.Background(), "echo", "divide", nil)
	if !errors.Is(err, errors.ErrCodeUnknownTool) {
		t.Fatalf("expected UNKNOWN_TOOL, got %v", err)
	}
	if stub.callCalls != 0 {
		t.Error("unknown tool must not reach the server")
	}
	if e := errors.AsError(err); e.ToolName() != "divide" {
		t.Errorf("expected tool name in error, got %q", e.ToolName())
	}
}

func TestCallAutoDiscovers(t *testing.T) {
	stub := newStub()
	c := NewCatalog(stub, nil)

	if _, err := c.Call(context.Background(), "echo", "add", nil); err != nil {
		t.Fatal(err)
	}
	if stub.listCalls != 1 {
		t.Errorf("call on a cold cache should discover once, got %d list calls", stub.listCalls)
	}
}

func TestClearCacheForcesRediscovery(t *testing.T) {
	stub := newStub()
	c := NewCatalog(stub, nil)
	ctx := context.Background()

	if _, err := c.Discover(ctx, "echo"); err != nil {
		t.Fatal(err)
	}
	c.ClearCache("echo")
	if _, err := c.Discover(ctx, "echo"); err != nil {
		t.Fatal(err)
	}
	if stub.listCalls != 2 {
		t.Errorf("expected rediscovery after clear, got %d list calls", stub.listCalls)
	}
}

func TestClearAll(t *testing.T) {
	stub := newStub()
	c := NewCatalog(stub, nil)
	ctx := context.Background()

	if _, err := c.Discover(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Discover(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	c.ClearAll()
	if _, err := c.Discover(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if stub.listCalls != 3 {
		t.Errorf("expected 3 list calls after clear all, got %d", stub.listCalls)
	}
}
