// Package logging provides leveled key=value console output for toolhost.
// Protocol traffic itself is never logged verbatim; helpers log the events
// around it (server lifecycle, tool calls, dropped messages).
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging to a writer (stderr by default, so
// log output never mixes with a tool server's stdio protocol stream).
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	traceID   string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stderr,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		traceID:   l.traceID,
	}
}

// WithTraceID returns a new logger with the given trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		traceID:   traceID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		f := fields[0]
		if l.traceID != "" {
			merged := make(map[string]interface{}, len(f)+1)
			for k, v := range f {
				merged[k] = v
			}
			merged["trace"] = l.traceID
			f = merged
		}
		fieldStr = formatFields(f)
	} else if l.traceID != "" {
		fieldStr = " trace=" + l.traceID
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Protocol event helpers ---

// ServerStarted logs a completed server start (handshake done).
func (l *Logger) ServerStarted(serverID string, pid int) {
	l.Info("server_started", map[string]interface{}{
		"server": serverID,
		"pid":    pid,
	})
}

// ServerStopped logs a server stop.
func (l *Logger) ServerStopped(serverID string, forced bool) {
	l.Info("server_stopped", map[string]interface{}{
		"server": serverID,
		"forced": forced,
	})
}

// ToolCall logs a tool invocation.
func (l *Logger) ToolCall(serverID, tool string) {
	l.Debug("tool_call", map[string]interface{}{
		"server": serverID,
		"tool":   tool,
	})
}

// ToolResult logs a tool result.
func (l *Logger) ToolResult(serverID, tool string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"server":   serverID,
		"tool":     tool,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("tool_error", fields)
	} else {
		l.Debug("tool_result", fields)
	}
}

// NotificationDropped logs a server notification this layer does not dispatch.
func (l *Logger) NotificationDropped(serverID, method string) {
	l.Debug("notification_dropped", map[string]interface{}{
		"server": serverID,
		"method": method,
	})
}

// UnexpectedResponse logs a response whose id matches no pending request.
func (l *Logger) UnexpectedResponse(serverID string, id int64) {
	l.Debug("unexpected_response", map[string]interface{}{
		"server": serverID,
		"id":     id,
	})
}

// MalformedLine logs a stdout line that failed to parse as JSON-RPC.
func (l *Logger) MalformedLine(serverID string, err error) {
	l.Warn("malformed_line", map[string]interface{}{
		"server": serverID,
		"error":  err.Error(),
	})
}
