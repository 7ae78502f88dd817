package client

import (
	"context"
	"time"

	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// defaultSyncTimeout bounds each blocking operation of the sync facade.
const defaultSyncTimeout = 30 * time.Second

// SyncClient is a thin blocking facade over Client for callers that do not
// thread contexts through their code. Every operation runs its asynchronous
// counterpart to completion under a per-operation deadline. Change
// consumers registered through the facade are bridged off the session's
// dispatch goroutine.
type SyncClient struct {
	client  *Client
	timeout time.Duration
}

// NewSync wraps an asynchronous client in the blocking facade. A zero
// timeout means the default.
func NewSync(c *Client, timeout time.Duration) *SyncClient {
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}
	return &SyncClient{client: c, timeout: timeout}
}

func (s *SyncClient) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Connect starts the session and performs the initialization handshake.
func (s *SyncClient) Connect() error {
	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.client.Connect(ctx); err != nil {
		return err
	}
	return s.client.Initialize(ctx)
}

// ServerInfo returns the server identity learned during initialization.
func (s *SyncClient) ServerInfo() protocol.Implementation {
	return s.client.ServerInfo()
}

// ServerCapabilities returns the capabilities the server advertised.
func (s *SyncClient) ServerCapabilities() protocol.ServerCapabilities {
	return s.client.ServerCapabilities()
}

// Ping checks that the server is responsive.
func (s *SyncClient) Ping() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.Ping(ctx)
}

// ListTools lists the server's tools.
func (s *SyncClient) ListTools(cursor string) (*protocol.ListToolsResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListTools(ctx, cursor)
}

// ListAllTools collects every page of tools/list.
func (s *SyncClient) ListAllTools() ([]protocol.Tool, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListAllTools(ctx)
}

// CallTool invokes a named tool.
func (s *SyncClient) CallTool(name string, arguments interface{}) (*protocol.CallToolResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.CallTool(ctx, name, arguments)
}

// ListResources lists the server's resources.
func (s *SyncClient) ListResources(cursor string) (*protocol.ListResourcesResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListResources(ctx, cursor)
}

// ListAllResources collects every page of resources/list.
func (s *SyncClient) ListAllResources() ([]protocol.Resource, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListAllResources(ctx)
}

// ListResourceTemplates lists the server's resource templates.
func (s *SyncClient) ListResourceTemplates(cursor string) (*protocol.ListResourceTemplatesResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListResourceTemplates(ctx, cursor)
}

// ListAllResourceTemplates collects every page of resources/templates/list.
func (s *SyncClient) ListAllResourceTemplates() ([]protocol.ResourceTemplate, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListAllResourceTemplates(ctx)
}

// ReadResource reads a resource by URI.
func (s *SyncClient) ReadResource(uri string) (*protocol.ReadResourceResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ReadResource(ctx, uri)
}

// SubscribeResource subscribes to updates for uri. The consumer is invoked
// on its own goroutine, never on the session's dispatch goroutine.
func (s *SyncClient) SubscribeResource(uri string, consumer ResourceUpdatedConsumer) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.SubscribeResource(ctx, uri, s.bridgeResourceUpdated(consumer))
}

// UnsubscribeResource cancels the subscription for uri.
func (s *SyncClient) UnsubscribeResource(uri string) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.UnsubscribeResource(ctx, uri)
}

// ListPrompts lists the server's prompts.
func (s *SyncClient) ListPrompts(cursor string) (*protocol.ListPromptsResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListPrompts(ctx, cursor)
}

// ListAllPrompts collects every page of prompts/list.
func (s *SyncClient) ListAllPrompts() ([]protocol.Prompt, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.ListAllPrompts(ctx)
}

// GetPrompt renders a named prompt.
func (s *SyncClient) GetPrompt(name string, arguments map[string]string) (*protocol.GetPromptResult, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.GetPrompt(ctx, name, arguments)
}

// SetLoggingLevel sets the server's minimum logging level.
func (s *SyncClient) SetLoggingLevel(level protocol.LoggingLevel) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.SetLoggingLevel(ctx, level)
}

// AddRoot adds a root to the client's table.
func (s *SyncClient) AddRoot(root protocol.Root) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.AddRoot(ctx, root)
}

// RemoveRoot removes a root by URI.
func (s *SyncClient) RemoveRoot(uri string) error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.RemoveRoot(ctx, uri)
}

// Roots returns a snapshot of the root table.
func (s *SyncClient) Roots() []protocol.Root {
	return s.client.Roots()
}

// OnToolsListChanged registers a bridged consumer for refreshed tool lists.
func (s *SyncClient) OnToolsListChanged(consumer ToolsListChangedConsumer) {
	s.client.addToolsConsumer(func(tools []protocol.Tool) error {
		go func() { s.reportConsumerError("tools", consumer(tools)) }()
		return nil
	})
}

// OnResourcesListChanged registers a bridged consumer for refreshed
// resource lists.
func (s *SyncClient) OnResourcesListChanged(consumer ResourcesListChangedConsumer) {
	s.client.addResourcesConsumer(func(resources []protocol.Resource) error {
		go func() { s.reportConsumerError("resources", consumer(resources)) }()
		return nil
	})
}

// OnPromptsListChanged registers a bridged consumer for refreshed prompt
// lists.
func (s *SyncClient) OnPromptsListChanged(consumer PromptsListChangedConsumer) {
	s.client.addPromptsConsumer(func(prompts []protocol.Prompt) error {
		go func() { s.reportConsumerError("prompts", consumer(prompts)) }()
		return nil
	})
}

// OnLoggingMessage registers a bridged consumer for server log records.
func (s *SyncClient) OnLoggingMessage(consumer LoggingConsumer) {
	s.client.addLoggingConsumer(func(record *protocol.LoggingMessageParams) error {
		go func() { s.reportConsumerError("logging", consumer(record)) }()
		return nil
	})
}

// CloseGracefully flushes and shuts the client down.
func (s *SyncClient) CloseGracefully() error {
	ctx, cancel := s.opContext()
	defer cancel()
	return s.client.CloseGracefully(ctx)
}

// Close tears the client down immediately.
func (s *SyncClient) Close() error {
	return s.client.Close()
}

func (s *SyncClient) bridgeResourceUpdated(consumer ResourceUpdatedConsumer) ResourceUpdatedConsumer {
	if consumer == nil {
		return nil
	}
	return func(uri string) error {
		go func() { s.reportConsumerError("resource update", consumer(uri)) }()
		return nil
	}
}

func (s *SyncClient) reportConsumerError(kind string, err error) {
	if err != nil {
		s.client.logger.Warn("sync " + kind + " consumer failed: " + err.Error())
	}
}
