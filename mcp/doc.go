// Package mcp manages connections to external tool servers speaking
// JSON-RPC 2.0 (Model Context Protocol).
//
// Two transports are supported. Stdio servers are spawned as child
// processes and spoken to over newline-delimited JSON on their
// stdin/stdout; a per-connection reader goroutine correlates responses to
// outstanding requests by id, so replies may arrive in any order. HTTP
// servers are stateless: every call is a fresh POST of one envelope.
//
// The Manager owns all runtime state. A server is either fully running
// (handshake completed) or not registered as running at all; no
// half-initialized connection is ever visible to callers.
package mcp
