// Package protocol defines the JSON-RPC 2.0 envelopes and the MCP payload
// shapes exchanged between clients and servers: method-name constants,
// capability declarations, the content tagged union, and the DTOs for
// tools, resources, prompts, roots, sampling and logging.
//
// ParseMessage is the single entry point for classifying raw wire bytes
// into a request, response or notification.
package protocol
