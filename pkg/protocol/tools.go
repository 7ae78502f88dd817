package protocol

import "encoding/json"

// Tool describes a named invocable exposed by a server. InputSchema is the
// JSON Schema of the tool's arguments, delivered to the peer verbatim; the
// SDK does not validate arguments against it.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ListToolsParams is the payload of tools/list.
type ListToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is the reply to tools/list.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams is the payload of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult is the reply to tools/call. IsError reports a failure of
// the tool itself, as opposed to a protocol error; the content then carries
// the failure description.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// NewToolResultText builds a successful single-text-item tool result.
func NewToolResultText(text string) *CallToolResult {
	return &CallToolResult{Content: []Content{NewTextContent(text)}}
}

// NewToolResultError builds a failed tool result carrying an error message.
func NewToolResultError(message string) *CallToolResult {
	return &CallToolResult{Content: []Content{NewTextContent(message)}, IsError: true}
}
