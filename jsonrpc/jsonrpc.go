package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version carried in every envelope.
const Version = "2.0"

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Notification represents a JSON-RPC 2.0 notification (no ID, no reply).
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Standard error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewRequest builds a request envelope.
func NewRequest(id int64, method string, params interface{}) *Request {
	return &Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// NewNotification builds a notification envelope.
func NewNotification(method string, params interface{}) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}

// Message is one inbound JSON-RPC message, classified.
// Exactly one of Response or Notification is set.
type Message struct {
	Response     *Response
	Notification *InboundNotification

	// Raw contains the original bytes for logging.
	Raw json.RawMessage
}

// InboundNotification is a notification as received from a server.
// Params stay raw; this layer never dispatches them.
type InboundNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ParseMessage parses one line from a server into a Message.
// An object with a non-null id is a response; anything else is a
// notification.
func ParseMessage(data []byte) (*Message, error) {
	var probe struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if probe.JSONRPC != Version {
		return nil, errors.New("jsonrpc must be 2.0")
	}

	msg := &Message{Raw: data}

	if len(probe.ID) > 0 && string(probe.ID) != "null" {
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("parse error: %w", err)
		}
		msg.Response = &resp
	} else {
		var notif InboundNotification
		if err := json.Unmarshal(data, &notif); err != nil {
			return nil, fmt.Errorf("parse error: %w", err)
		}
		msg.Notification = &notif
	}

	return msg, nil
}

// Encode serializes an envelope to one newline-terminated JSON line.
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
