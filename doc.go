// Package mcp implements the Model Context Protocol for Go.
//
// The Model Context Protocol (MCP) is a bidirectional JSON-RPC 2.0 protocol
// by which an AI host (the client) and a capability provider (the server)
// exchange tool invocations, resource reads, prompt templates, log records
// and sampling requests over a pluggable transport.
//
// # Packages
//
//   - pkg/protocol: JSON-RPC envelopes, method names and MCP payload shapes
//   - pkg/transport: stdio and HTTP+SSE transports plus an in-memory pair
//   - pkg/session: the transport-agnostic request/notification peer
//   - pkg/client: the client role and its blocking facade
//   - pkg/server: the server role and its blocking facade
//   - pkg/pagination: opaque cursors for list operations
//   - pkg/errors: the structured error taxonomy
//   - pkg/logging: structured diagnostics logging
//   - pkg/observability: opt-in Prometheus metrics and OpenTelemetry traces
//
// # A minimal server
//
//	srv := mcp.NewServer(
//	    mcp.NewStdioServerTransport(transport.StdioServerConfig{}),
//	    server.WithServerInfo(protocol.Implementation{Name: "demo", Version: "0.1.0"}),
//	    server.WithToolsCapability(true),
//	)
//	_ = srv.AddTool(ctx, tool, handler)
//	_ = srv.Connect(ctx)
//
// # A minimal client
//
//	cli, err := mcp.NewClient(mcp.NewStdioClientTransport(transport.StdioConfig{
//	    Command: "demo-server",
//	}))
//	if err != nil { ... }
//	if err := cli.Connect(ctx); err != nil { ... }
//	if err := cli.Initialize(ctx); err != nil { ... }
//	tools, err := cli.ListTools(ctx, "")
package mcp
