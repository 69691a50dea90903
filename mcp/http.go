package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vinayprograms/toolhost/errors"
	"github.com/vinayprograms/toolhost/jsonrpc"
	"github.com/vinayprograms/toolhost/registry"
)

// httpRequestID is the fixed envelope id used over HTTP. Each call is its
// own POST with a synchronous response, so there is nothing to
// demultiplex and no counter to maintain.
const httpRequestID = 1

// HTTPClient speaks JSON-RPC to a remote tool server, one POST per call.
// There is no persistent socket; "connected" is only a handshake marker
// kept by the Manager.
type HTTPClient struct {
	serverID string
	url      string
	headers  map[string]string
	bearer   string
	client   *http.Client
	timeout  time.Duration
}

func newHTTPClient(cfg *registry.ServerConfig, bearer string, hc *http.Client, defaultTimeout time.Duration) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{
		serverID: cfg.ID,
		url:      cfg.URL,
		headers:  cfg.Headers,
		bearer:   bearer,
		client:   hc,
		timeout:  cfg.Timeout(defaultTimeout),
	}
}

// Initialize performs the handshake as a single POST.
func (c *HTTPClient) Initialize(ctx context.Context, info ClientInfo) error {
	_, err := c.Call(ctx, "initialize", InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      info,
	}, 0)
	return err
}

// Call posts one request envelope and returns its result. A non-2xx
// status and a JSON-RPC error object both fail the call.
func (c *HTTPClient) Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(jsonrpc.NewRequest(httpRequestID, method, params))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request", errors.WithServerID(c.serverID))
	}

	data, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	var resp jsonrpc.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInternal,
			fmt.Sprintf("invalid response from server %q", c.serverID),
			errors.WithServerID(c.serverID))
	}
	if resp.Error != nil {
		return nil, errors.RPC(c.serverID, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// Notify posts one notification envelope. The response body is discarded.
func (c *HTTPClient) Notify(ctx context.Context, method string, params interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(jsonrpc.NewNotification(method, params))
	if err != nil {
		return errors.Wrap(err, "failed to encode notification", errors.WithServerID(c.serverID))
	}
	_, err = c.post(ctx, body)
	return err
}

func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request", errors.WithServerID(c.serverID))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("request to server %q failed", c.serverID),
			errors.WithServerID(c.serverID))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to read response from server %q", c.serverID),
			errors.WithServerID(c.serverID))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errors.ErrCodeUnavailable,
			fmt.Sprintf("server %q returned HTTP %d", c.serverID, resp.StatusCode),
			errors.WithServerID(c.serverID))
	}
	return data, nil
}
