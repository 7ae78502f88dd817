package errors

import (
	"fmt"
	"time"
)

// RequestTimeout reports that a request was not answered within the
// session's per-request deadline.
func RequestTimeout(method, requestID string, timeout time.Duration) MCPError {
	return Newf(CodeRequestTimeout, CategoryTimeout,
		"request %s timed out after %s", method, timeout).
		WithSeverity(SeverityWarning).
		WithContext(&Context{
			Component: "Session",
			Operation: "send_request",
			Method:    method,
			RequestID: requestID,
		})
}

// RequestCancelled reports that the caller's context ended before the
// response arrived.
func RequestCancelled(method string, cause error) MCPError {
	return Wrap(cause, CodeInternalError,
		fmt.Sprintf("request %s cancelled", method), CategoryCancelled)
}

// SessionClosed reports that an operation failed because the session was
// closed. Pending requests are completed with this error on close.
func SessionClosed() MCPError {
	return New(CodeSessionClosed, "session closed", CategoryState).
		WithSeverity(SeverityInfo)
}

// SessionNotRunning reports that an operation was attempted before the
// session was started or after it stopped.
func SessionNotRunning(operation string) MCPError {
	return Newf(CodeSessionClosed, CategoryState, "session is not running").
		WithContext(&Context{Component: "Session", Operation: operation})
}

// MethodNotFound is the error replied to an inbound request whose method has
// no registered handler. The message shape is part of the wire contract.
func MethodNotFound(method string) MCPError {
	return Newf(CodeMethodNotFound, CategoryProtocol, "Method not found: %s", method).
		WithSeverity(SeverityWarning)
}

// InvalidParams reports that inbound request params failed to decode.
func InvalidParams(method string, cause error) MCPError {
	return Wrap(cause, CodeInvalidParams, fmt.Sprintf("invalid params for %s", method), CategoryProtocol)
}

// PeerError wraps an error object received from the peer in a response.
func PeerError(code int, message string, data interface{}) MCPError {
	return New(code, message, CategoryProtocol).WithData(data)
}

// EnqueueFailed reports that a transport's bounded outbound queue refused a
// message instead of blocking.
func EnqueueFailed(transport string) MCPError {
	return Newf(CodeEnqueueFailed, CategoryTransport,
		"outbound queue refused message").
		WithContext(&Context{Component: transport, Operation: "send_message"})
}

// TransportClosed reports a send or connect on a closed transport.
func TransportClosed(transport string) MCPError {
	return Newf(CodeTransportError, CategoryTransport, "transport closed").
		WithContext(&Context{Component: transport})
}

// TransportError wraps a low-level channel failure.
func TransportError(transport, operation string, cause error) MCPError {
	return Wrap(cause, CodeTransportError,
		fmt.Sprintf("%s transport error during %s", transport, operation),
		CategoryTransport).
		WithContext(&Context{Component: transport, Operation: operation})
}

// EndpointNotDiscovered reports that the SSE client transport did not
// receive the endpoint event within its bounded wait.
func EndpointNotDiscovered(url string, timeout time.Duration) MCPError {
	return Newf(CodeEndpointNotDiscovered, CategoryTransport,
		"endpoint event not received from %s within %s", url, timeout).
		WithContext(&Context{Component: "SSEClientTransport", Operation: "connect"})
}
