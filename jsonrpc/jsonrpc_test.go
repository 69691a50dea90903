package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMessage_Response(t *testing.T) {
	line := `{"jsonrpc":"2.0","id":7,"result":{"ok":true}}`

	msg, err := ParseMessage([]byte(line))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if msg.Response == nil {
		t.Fatal("expected a response message")
	}
	if msg.Notification != nil {
		t.Error("expected notification to be nil")
	}
	if msg.Response.ID != 7 {
		t.Errorf("expected id 7, got %d", msg.Response.ID)
	}
	if msg.Response.Error != nil {
		t.Errorf("expected no error, got %v", msg.Response.Error)
	}
}

func TestParseMessage_ErrorResponse(t *testing.T) {
	line := `{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"Method not found"}}`

	msg, err := ParseMessage([]byte(line))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if msg.Response == nil {
		t.Fatal("expected a response message")
	}
	if msg.Response.Error == nil {
		t.Fatal("expected error to be set")
	}
	if msg.Response.Error.Code != MethodNotFound {
		t.Errorf("expected MethodNotFound code, got %d", msg.Response.Error.Code)
	}
}

func TestParseMessage_Notification(t *testing.T) {
	line := `{"jsonrpc":"2.0","method":"notifications/progress","params":{"token":"t"}}`

	msg, err := ParseMessage([]byte(line))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if msg.Notification == nil {
		t.Fatal("expected a notification message")
	}
	if msg.Notification.Method != "notifications/progress" {
		t.Errorf("expected method 'notifications/progress', got %s", msg.Notification.Method)
	}
}

func TestParseMessage_NullID(t *testing.T) {
	line := `{"jsonrpc":"2.0","id":null,"method":"ping"}`

	msg, err := ParseMessage([]byte(line))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if msg.Notification == nil {
		t.Fatal("expected null id to classify as notification")
	}
}

func TestParseMessage_Malformed(t *testing.T) {
	if _, err := ParseMessage([]byte("not valid json")); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestParseMessage_WrongVersion(t *testing.T) {
	if _, err := ParseMessage([]byte(`{"jsonrpc":"1.0","id":1}`)); err == nil {
		t.Error("expected error for wrong jsonrpc version")
	}
}

func TestEncode_NewlineTerminated(t *testing.T) {
	data, err := Encode(NewRequest(1, "tools/list", nil))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if !strings.HasSuffix(string(data), "\n") {
		t.Error("expected newline-terminated output")
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Error("expected exactly one newline")
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("failed to parse encoded request: %v", err)
	}
	if req.JSONRPC != Version {
		t.Errorf("expected jsonrpc %q, got %q", Version, req.JSONRPC)
	}
	if req.Method != "tools/list" {
		t.Errorf("expected method 'tools/list', got %q", req.Method)
	}
}

func TestRPCErrorString(t *testing.T) {
	e := &Error{Code: -32000, Message: "server exploded"}
	if !strings.Contains(e.Error(), "server exploded") {
		t.Errorf("unexpected error string: %s", e.Error())
	}
}
