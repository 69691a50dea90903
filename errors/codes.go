package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: request timeouts, a server process that crashed mid-call.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unknown server id, invalid input, tool not advertised.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors or system failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
// toolhost itself never retries; this is advisory for the calling layer.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

const (
	// Transient errors
	ErrCodeTimeout      ErrorCode = "TIMEOUT"      // No reply within the deadline
	ErrCodeDisconnected ErrorCode = "DISCONNECTED" // Transport closed with requests outstanding
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"  // Server not running

	// Permanent errors
	ErrCodeUnknownServer    ErrorCode = "UNKNOWN_SERVER"    // Server id not in the registry
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"         // Resource does not exist
	ErrCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"    // Duplicate server id
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION" // Operation not allowed on this entry
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"     // Malformed or invalid input
	ErrCodeUnknownTool      ErrorCode = "UNKNOWN_TOOL"      // Tool name not advertised by the server
	ErrCodeRPC              ErrorCode = "RPC"               // Peer returned a JSON-RPC error object
	ErrCodeCanceled         ErrorCode = "CANCELED"          // Operation was canceled

	// Internal errors
	ErrCodeServerStart ErrorCode = "SERVER_START" // Spawn, resolution, or handshake failure
	ErrCodeInternal    ErrorCode = "INTERNAL"     // Unexpected internal error
)

// DefaultCategory returns the category an error code belongs to.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeDisconnected, ErrCodeUnavailable:
		return CategoryTransient
	case ErrCodeUnknownServer, ErrCodeNotFound, ErrCodeAlreadyExists,
		ErrCodeInvalidOperation, ErrCodeInvalidInput, ErrCodeUnknownTool,
		ErrCodeRPC, ErrCodeCanceled:
		return CategoryPermanent
	default:
		return CategoryInternal
	}
}

// String returns the string representation of the code.
func (c ErrorCode) String() string {
	return string(c)
}

// descriptions provides default messages for each code.
var descriptions = map[ErrorCode]string{
	ErrCodeTimeout:          "request timed out",
	ErrCodeDisconnected:     "server disconnected",
	ErrCodeUnavailable:      "server not running",
	ErrCodeUnknownServer:    "unknown server",
	ErrCodeNotFound:         "not found",
	ErrCodeAlreadyExists:    "server already exists",
	ErrCodeInvalidOperation: "operation not allowed",
	ErrCodeInvalidInput:     "invalid input",
	ErrCodeUnknownTool:      "unknown tool",
	ErrCodeRPC:              "server returned an error",
	ErrCodeCanceled:         "operation canceled",
	ErrCodeServerStart:      "failed to start server",
	ErrCodeInternal:         "internal error",
}

// Description returns the default human-readable description for the code.
func (c ErrorCode) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return "unknown error"
}
