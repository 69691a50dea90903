package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New()
	l.SetOutput(buf)
	l.SetLevel(LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("debug should be filtered at warn level")
	}
	if strings.Contains(out, "info message") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn should be logged")
	}
	if !strings.Contains(out, "error message") {
		t.Error("error should be logged")
	}
}

func TestComponentPrefix(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New()
	l.SetOutput(buf)

	l.WithComponent("mcp").Info("hello")

	if !strings.Contains(buf.String(), "[mcp]") {
		t.Errorf("expected component prefix, got %q", buf.String())
	}
}

func TestFieldsFormatted(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New()
	l.SetOutput(buf)

	l.Info("event", map[string]interface{}{"server": "echo"})

	if !strings.Contains(buf.String(), "server=echo") {
		t.Errorf("expected key=value fields, got %q", buf.String())
	}
}

func TestTraceIDAppended(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New()
	l.SetOutput(buf)

	tl := l.WithTraceID("abc-123")
	tl.Info("with fields", map[string]interface{}{"k": "v"})
	tl.Info("without fields")

	out := buf.String()
	if strings.Count(out, "trace=abc-123") != 2 {
		t.Errorf("expected trace id on both lines, got %q", out)
	}
}

func TestTraceIDDoesNotMutateCallerFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New()
	l.SetOutput(buf)

	fields := map[string]interface{}{"k": "v"}
	l.WithTraceID("abc").Info("msg", fields)

	if _, ok := fields["trace"]; ok {
		t.Error("logger must not mutate the caller's field map")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LevelDebug {
		t.Error("expected debug")
	}
	if ParseLevel("WARNING") != LevelWarn {
		t.Error("expected warn")
	}
	if ParseLevel("nonsense") != LevelInfo {
		t.Error("expected info fallback")
	}
}

func TestToolResultError(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New()
	l.SetOutput(buf)
	l.SetLevel(LevelDebug)

	l.ToolResult("echo", "add", 5*time.Millisecond, nil)
	l.ToolResult("echo", "add", 5*time.Millisecond, errTest("boom"))

	out := buf.String()
	if !strings.Contains(out, "tool_result") {
		t.Error("expected tool_result line")
	}
	if !strings.Contains(out, "tool_error") {
		t.Error("expected tool_error line")
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected error field, got %q", out)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
