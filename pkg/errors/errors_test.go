package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	err := New(CodeInternalError, "something broke", CategoryInternal)

	assert.Equal(t, CodeInternalError, err.Code())
	assert.Equal(t, CategoryInternal, err.Category())
	assert.Equal(t, "something broke", err.Error())
	assert.Nil(t, err.Data())
	assert.Nil(t, err.Unwrap())
}

func TestWithDetailAndData(t *testing.T) {
	base := New(CodeTransportError, "write failed", CategoryTransport)

	detailed := base.WithDetail("broken pipe")
	assert.Equal(t, "write failed: broken pipe", detailed.Error())
	// The original is unchanged.
	assert.Equal(t, "write failed", base.Error())

	stacked := detailed.WithDetail("second attempt")
	assert.Equal(t, "write failed: broken pipe; second attempt", stacked.Error())

	withData := base.WithData(map[string]string{"endpoint": "/sse"})
	require.NotNil(t, withData.Data())
	assert.Nil(t, base.Data())
}

func TestSeverity(t *testing.T) {
	base := New(CodeInternalError, "broke", CategoryInternal)
	assert.Equal(t, SeverityError, base.Severity(), "constructors default to error severity")

	critical := base.WithSeverity(SeverityCritical)
	assert.Equal(t, SeverityCritical, critical.Severity())
	// The original is unchanged.
	assert.Equal(t, SeverityError, base.Severity())

	// Expected protocol conditions carry reduced severities.
	assert.Equal(t, SeverityWarning, RequestTimeout("ping", "s-0", time.Second).Severity())
	assert.Equal(t, SeverityInfo, SessionClosed().Severity())
	assert.Equal(t, SeverityWarning, MethodNotFound("x").Severity())
	assert.Equal(t, SeverityWarning, DuplicateEntry("tool", "calc").Severity())
	assert.Equal(t, SeverityWarning, EntryNotFound("prompt", "p").Severity())
	assert.Equal(t, SeverityError, EnqueueFailed("stdio").Severity())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, CodeTransportError, "read failed", CategoryTransport)

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClassificationHelpers(t *testing.T) {
	err := RequestTimeout("tools/list", "s-1", 10*time.Second)

	assert.True(t, IsCategory(err, CategoryTimeout))
	assert.False(t, IsCategory(err, CategoryTransport))
	assert.True(t, IsCode(err, CodeRequestTimeout))

	plain := fmt.Errorf("not an mcp error")
	assert.False(t, IsCategory(plain, CategoryTimeout))
	_, ok := As(plain)
	assert.False(t, ok)
	_, ok = As(nil)
	assert.False(t, ok)
}

func TestFactoryShapes(t *testing.T) {
	tests := []struct {
		name     string
		err      MCPError
		code     int
		category Category
	}{
		{"timeout", RequestTimeout("ping", "s-0", time.Second), CodeRequestTimeout, CategoryTimeout},
		{"session closed", SessionClosed(), CodeSessionClosed, CategoryState},
		{"method not found", MethodNotFound("unknown.method"), CodeMethodNotFound, CategoryProtocol},
		{"capability", CapabilityRequired("sampling"), CodeCapabilityRequired, CategoryState},
		{"duplicate", DuplicateEntry("tool", "calculator"), CodeDuplicateEntry, CategoryRegistry},
		{"not found", EntryNotFound("resource", "file:///a"), CodeEntryNotFound, CategoryRegistry},
		{"version", VersionMismatch("1999-01-01", []string{"2024-11-05"}), CodeVersionMismatch, CategoryVersion},
		{"enqueue", EnqueueFailed("StdioClientTransport"), CodeEnqueueFailed, CategoryTransport},
		{"endpoint", EndpointNotDiscovered("http://localhost/sse", time.Second), CodeEndpointNotDiscovered, CategoryTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code())
			assert.Equal(t, tt.category, tt.err.Category())
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestMethodNotFoundMessage(t *testing.T) {
	// The message shape is part of the wire contract.
	err := MethodNotFound("unknown.method")
	assert.Equal(t, "Method not found: unknown.method", err.Error())
}

func TestVersionMismatchData(t *testing.T) {
	err := VersionMismatch("2020-01-01", []string{"2024-11-05", "2024-10-07"})
	data, ok := err.Data().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2020-01-01", data["requested"])
}
