package errors

import (
	"fmt"
	"time"
)

// Error is the structured error type used throughout toolhost.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	retryable *bool // nil means use default based on category
	timestamp time.Time
	serverID  string // originating server, if applicable
	toolName  string // related tool, if applicable
	rpcCode   int    // JSON-RPC error code, for ErrCodeRPC
}

var _ error = (*Error)(nil)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// ServerID returns the originating server id, if set.
func (e *Error) ServerID() string {
	return e.serverID
}

// ToolName returns the related tool name, if set.
func (e *Error) ToolName() string {
	return e.toolName
}

// RPCCode returns the peer's JSON-RPC error code, for ErrCodeRPC errors.
func (e *Error) RPCCode() int {
	return e.rpcCode
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithServerID sets the originating server id.
func WithServerID(id string) Option {
	return func(e *Error) {
		e.serverID = id
	}
}

// WithTool sets the related tool name.
func WithTool(name string) Option {
	return func(e *Error) {
		e.toolName = name
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// UnknownServer reports a server id absent from the registry.
func UnknownServer(id string) *Error {
	return New(ErrCodeUnknownServer, fmt.Sprintf("unknown server %q", id), WithServerID(id))
}

// DuplicateServer reports an attempt to register an id that already exists.
func DuplicateServer(id string) *Error {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("server %q already exists", id), WithServerID(id))
}

// NotFound creates a not found error.
func NotFound(message string, opts ...Option) *Error {
	return New(ErrCodeNotFound, message, opts...)
}

// InvalidOperation creates an invalid operation error.
func InvalidOperation(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidOperation, message, opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// ServerStart reports a spawn, resolution, or handshake failure.
// The connection is never left registered when this is returned.
func ServerStart(id string, cause error) *Error {
	return New(ErrCodeServerStart, fmt.Sprintf("failed to start server %q", id),
		WithServerID(id), WithCause(cause))
}

// RequestTimeout reports a request that received no reply within its deadline.
func RequestTimeout(id, method string) *Error {
	return New(ErrCodeTimeout, fmt.Sprintf("request %q to server %q timed out", method, id),
		WithServerID(id))
}

// RPC passes through a JSON-RPC error object returned by the peer.
func RPC(id string, code int, message string) *Error {
	e := New(ErrCodeRPC, fmt.Sprintf("RPC error %d: %s", code, message), WithServerID(id))
	e.rpcCode = code
	return e
}

// ServerDisconnected reports a transport that closed while requests were
// outstanding.
func ServerDisconnected(id string) *Error {
	return New(ErrCodeDisconnected, fmt.Sprintf("server %q disconnected", id), WithServerID(id))
}

// UnknownTool reports a tool name the server never advertised.
func UnknownTool(serverID, tool string) *Error {
	return New(ErrCodeUnknownTool, fmt.Sprintf("tool %q not found on server %q", tool, serverID),
		WithServerID(serverID), WithTool(tool))
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}
