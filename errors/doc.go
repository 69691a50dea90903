// Package errors provides structured error types for toolhost.
//
// Every failure crossing a package boundary carries an ErrorCode
// identifying what went wrong and an ErrorCategory describing its retry
// semantics. Callers branch on codes with Is rather than string matching:
//
//	if err := mgr.StartServer(ctx, id); errors.Is(err, errors.ErrCodeUnknownServer) {
//		// 404-equivalent
//	}
//
// Errors returned by the protocol layer additionally carry the server id
// and, for tool invocations, the tool name as metadata.
package errors
