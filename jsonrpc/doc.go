// Package jsonrpc provides the JSON-RPC 2.0 envelope types shared by the
// stdio and HTTP tool-server transports.
//
// Messages are newline-delimited JSON objects on stdio, or single
// request/response bodies over HTTP. ParseMessage classifies inbound data
// as a response (carries an id) or a notification (no id), which is the
// only distinction the stream reader needs.
package jsonrpc
