package server

import (
	"context"
	"time"

	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// defaultSyncTimeout bounds each blocking operation of the sync facade.
const defaultSyncTimeout = 30 * time.Second

// SyncServer is a thin blocking facade over Server for callers that do not
// thread contexts through their code. Every mutation blocks until its
// asynchronous counterpart, including any list-changed notification,
// completes.
type SyncServer struct {
	server  *Server
	timeout time.Duration
}

// NewSync wraps an asynchronous server in the blocking facade. A zero
// timeout means the default.
func NewSync(s *Server, timeout time.Duration) *SyncServer {
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}
	return &SyncServer{server: s, timeout: timeout}
}

func (s *SyncServer) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Connect starts the session; the server then waits for the client's
// initialize request.
func (s *SyncServer) Connect() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.Connect(ctx)
}

// ClientInfo returns the client identity learned during initialization.
func (s *SyncServer) ClientInfo() protocol.Implementation {
	return s.server.ClientInfo()
}

// ClientCapabilities returns the capabilities the client advertised.
func (s *SyncServer) ClientCapabilities() protocol.ClientCapabilities {
	return s.server.ClientCapabilities()
}

// Ping checks that the client is responsive.
func (s *SyncServer) Ping() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.Ping(ctx)
}

// AddTool registers a tool.
func (s *SyncServer) AddTool(tool protocol.Tool, handler ToolHandler) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.AddTool(ctx, tool, handler)
}

// RemoveTool deregisters a tool by name.
func (s *SyncServer) RemoveTool(name string) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.RemoveTool(ctx, name)
}

// AddResource registers a resource.
func (s *SyncServer) AddResource(resource protocol.Resource, handler ResourceReadHandler) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.AddResource(ctx, resource, handler)
}

// RemoveResource deregisters a resource by URI.
func (s *SyncServer) RemoveResource(uri string) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.RemoveResource(ctx, uri)
}

// AddResourceTemplate registers a parametric resource template.
func (s *SyncServer) AddResourceTemplate(template protocol.ResourceTemplate, handler ResourceReadHandler) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.AddResourceTemplate(ctx, template, handler)
}

// AddPrompt registers a prompt.
func (s *SyncServer) AddPrompt(prompt protocol.Prompt, handler PromptHandler) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.AddPrompt(ctx, prompt, handler)
}

// RemovePrompt deregisters a prompt by name.
func (s *SyncServer) RemovePrompt(name string) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.RemovePrompt(ctx, name)
}

// NotifyToolsListChanged emits notifications/tools/list_changed.
func (s *SyncServer) NotifyToolsListChanged() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.NotifyToolsListChanged(ctx)
}

// NotifyResourcesListChanged emits notifications/resources/list_changed.
func (s *SyncServer) NotifyResourcesListChanged() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.NotifyResourcesListChanged(ctx)
}

// NotifyPromptsListChanged emits notifications/prompts/list_changed.
func (s *SyncServer) NotifyPromptsListChanged() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.NotifyPromptsListChanged(ctx)
}

// NotifyResourceUpdated emits notifications/resources/updated for a
// subscribed URI.
func (s *SyncServer) NotifyResourceUpdated(uri string) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.NotifyResourceUpdated(ctx, uri)
}

// LoggingNotification emits a notifications/message record subject to the
// minimum-level filter.
func (s *SyncServer) LoggingNotification(record protocol.LoggingMessageParams) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.LoggingNotification(ctx, record)
}

// CreateMessage asks the client to run an LLM completion.
func (s *SyncServer) CreateMessage(params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.CreateMessage(ctx, params)
}

// ListRoots asks the client for its current root set.
func (s *SyncServer) ListRoots(cursor string) (*protocol.ListRootsResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.ListRoots(ctx, cursor)
}

// ListAllRoots collects every page of the client's roots/list.
func (s *SyncServer) ListAllRoots() ([]protocol.Root, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.ListAllRoots(ctx)
}

// CloseGracefully flushes and shuts the server down.
func (s *SyncServer) CloseGracefully() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.server.CloseGracefully(ctx)
}

// Close tears the server down immediately.
func (s *SyncServer) Close() error {
	return s.server.Close()
}
