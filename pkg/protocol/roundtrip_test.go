package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// Serializing an envelope and parsing it back must yield an equal
// structure, modulo optional-field absence.
func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "request with params",
			msg: &Request{
				JSONRPC: JSONRPCVersion,
				ID:      "c-3",
				Method:  MethodResourcesRead,
				Params:  json.RawMessage(`{"uri":"file:///tmp/a.txt"}`),
			},
		},
		{
			name: "request without params",
			msg: &Request{
				JSONRPC: JSONRPCVersion,
				ID:      "c-4",
				Method:  MethodPing,
			},
		},
		{
			name: "success response",
			msg: &Response{
				JSONRPC: JSONRPCVersion,
				ID:      "c-3",
				Result:  json.RawMessage(`{"contents":[{"uri":"file:///tmp/a.txt","text":"hi"}]}`),
			},
		},
		{
			name: "error response with data",
			msg: &Response{
				JSONRPC: JSONRPCVersion,
				ID:      "c-5",
				Error:   &Error{Code: InvalidParams, Message: "bad params", Data: map[string]interface{}{"field": "uri"}},
			},
		},
		{
			name: "notification",
			msg: &Notification{
				JSONRPC: JSONRPCVersion,
				Method:  NotificationResourcesUpdated,
				Params:  json.RawMessage(`{"uri":"file:///tmp/a.txt"}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			require.NoError(t, err)

			parsed, err := ParseMessage(data)
			require.NoError(t, err)

			reserialized, err := json.Marshal(parsed)
			require.NoError(t, err)

			var want, got interface{}
			require.NoError(t, json.Unmarshal(data, &want))
			require.NoError(t, json.Unmarshal(reserialized, &got))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInitializeResultRoundTrip(t *testing.T) {
	original := InitializeResult{
		ProtocolVersion: LatestProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{ListChanged: true},
			Resources: &ResourcesCapability{Subscribe: true, ListChanged: true},
			Logging:   &LoggingCapability{},
		},
		ServerInfo:   Implementation{Name: "test-server", Version: "1.0.0"},
		Instructions: "call tools/list first",
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded InitializeResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCallToolResultWireShape(t *testing.T) {
	result := NewToolResultText("5.0")

	data, err := json.Marshal(result)
	require.NoError(t, err)
	// isError must be present even when false.
	require.JSONEq(t, `{"content":[{"type":"text","text":"5.0"}],"isError":false}`, string(data))
}

func TestContentRoundTrip(t *testing.T) {
	items := []Content{
		NewTextContent("hello"),
		NewImageContent("aGVsbG8=", "image/png"),
		NewResourceContent(ResourceContents{URI: "file:///b.bin", MimeType: "application/octet-stream", Blob: "AAEC"}),
	}

	data, err := json.Marshal(items)
	require.NoError(t, err)

	var decoded []Content
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(items, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
