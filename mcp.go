// Package mcp is the root of the MCP SDK for Go, re-exporting the primary
// entry points of the sub-packages.
package mcp

import (
	"github.com/mcpkit/mcp-go/pkg/client"
	"github.com/mcpkit/mcp-go/pkg/protocol"
	"github.com/mcpkit/mcp-go/pkg/server"
	"github.com/mcpkit/mcp-go/pkg/session"
	"github.com/mcpkit/mcp-go/pkg/transport"
)

// Version is the SDK version.
const Version = "1.0.0"

// LatestProtocolVersion is the newest protocol revision the SDK speaks.
const LatestProtocolVersion = protocol.LatestProtocolVersion

// Core constructors.
var (
	// NewClient creates an asynchronous MCP client.
	NewClient = client.New

	// NewSyncClient wraps a client in the blocking facade.
	NewSyncClient = client.NewSync

	// NewServer creates an asynchronous MCP server.
	NewServer = server.New

	// NewSyncServer wraps a server in the blocking facade.
	NewSyncServer = server.NewSync

	// NewSession creates a bare JSON-RPC session for custom roles.
	NewSession = session.New
)

// Transport constructors.
var (
	// NewStdioClientTransport spawns a child process speaking
	// line-delimited JSON-RPC on its stdio.
	NewStdioClientTransport = transport.NewStdioClientTransport

	// NewStdioServerTransport serves a session over the process's own
	// stdin and stdout.
	NewStdioServerTransport = transport.NewStdioServerTransport

	// NewSSEClientTransport connects to a server's SSE stream.
	NewSSEClientTransport = transport.NewSSEClientTransport

	// NewSSEServerTransport publishes an SSE stream and message endpoint.
	NewSSEServerTransport = transport.NewSSEServerTransport

	// NewInMemoryTransportPair creates two connected in-process
	// transports, useful for tests.
	NewInMemoryTransportPair = transport.NewInMemoryTransportPair
)
