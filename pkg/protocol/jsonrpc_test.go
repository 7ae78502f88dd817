package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("c-0", MethodToolsList, nil)
	require.NoError(t, err)
	assert.Equal(t, JSONRPCVersion, req.JSONRPC)
	assert.Equal(t, "c-0", req.ID)
	assert.Equal(t, "tools/list", req.Method)
	assert.Empty(t, req.Params)

	req, err = NewRequest("c-1", MethodToolsCall, &CallToolParams{
		Name:      "calculator",
		Arguments: json.RawMessage(`{"operation":"add","a":2,"b":3}`),
	})
	require.NoError(t, err)

	var params CallToolParams
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "calculator", params.Name)
}

func TestNewResponseEncodesEmptyResult(t *testing.T) {
	resp, err := NewResponse("c-2", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(resp.Result))
	assert.Nil(t, resp.Error)
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("x-7", MethodNotFound, "Method not found: unknown.method", nil)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","id":"x-7","error":{"code":-32601,"message":"Method not found: unknown.method"}}`,
		string(data))
}

func TestParseMessageClassification(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "request",
			data: `{"jsonrpc":"2.0","id":"c-0","method":"initialize","params":{}}`,
			want: "request",
		},
		{
			name: "request with integer id",
			data: `{"jsonrpc":"2.0","id":7,"method":"ping"}`,
			want: "request",
		},
		{
			name: "success response",
			data: `{"jsonrpc":"2.0","id":"c-0","result":{"tools":[]}}`,
			want: "response",
		},
		{
			name: "error response",
			data: `{"jsonrpc":"2.0","id":"c-0","error":{"code":-32601,"message":"nope"}}`,
			want: "response",
		},
		{
			name: "notification",
			data: `{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			want: "notification",
		},
		{
			name: "notification with null id",
			data: `{"jsonrpc":"2.0","id":null,"method":"notifications/message","params":{"level":"info"}}`,
			want: "notification",
		},
		{
			name: "unknown method still parses as request",
			data: `{"jsonrpc":"2.0","id":"x-7","method":"unknown.method"}`,
			want: "request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.data))
			require.NoError(t, err)

			switch tt.want {
			case "request":
				_, ok := msg.(*Request)
				assert.True(t, ok, "expected *Request, got %T", msg)
			case "response":
				_, ok := msg.(*Response)
				assert.True(t, ok, "expected *Response, got %T", msg)
			case "notification":
				_, ok := msg.(*Notification)
				assert.True(t, ok, "expected *Notification, got %T", msg)
			}
		})
	}
}

func TestParseMessageRejectsGarbage(t *testing.T) {
	_, err := ParseMessage([]byte(`not json`))
	assert.Error(t, err)

	// An envelope with neither method nor result/error is unclassifiable.
	_, err = ParseMessage([]byte(`{"jsonrpc":"2.0","id":"c-0"}`))
	assert.Error(t, err)
}

func TestIsHelpers(t *testing.T) {
	request := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	response := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	notification := []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)

	assert.True(t, IsRequest(request))
	assert.False(t, IsRequest(response))
	assert.True(t, IsResponse(response))
	assert.False(t, IsResponse(notification))
	assert.True(t, IsNotification(notification))
	assert.False(t, IsNotification(request))
}

func TestErrorImplementsError(t *testing.T) {
	err := &Error{Code: MethodNotFound, Message: "Method not found: x"}
	assert.Contains(t, err.Error(), "-32601")
	assert.Contains(t, err.Error(), "Method not found: x")
}
