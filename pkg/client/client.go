// Package client implements the client side of the MCP protocol: the
// initialization handshake, capability-gated typed operations against a
// server, roots management, sampling-request handling, and change
// notification fan-out.
package client

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
	"github.com/mcpkit/mcp-go/pkg/session"
	"github.com/mcpkit/mcp-go/pkg/transport"
)

// SamplingHandler answers a server's sampling/createMessage request by
// running an LLM completion.
type SamplingHandler func(ctx context.Context, params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error)

// ToolsListChangedConsumer receives the refreshed tool list after a
// tools/list_changed notification. Errors are logged and do not abort the
// consumer chain.
type ToolsListChangedConsumer func(tools []protocol.Tool) error

// ResourcesListChangedConsumer receives the refreshed resource list after a
// resources/list_changed notification.
type ResourcesListChangedConsumer func(resources []protocol.Resource) error

// PromptsListChangedConsumer receives the refreshed prompt list after a
// prompts/list_changed notification.
type PromptsListChangedConsumer func(prompts []protocol.Prompt) error

// ResourceUpdatedConsumer is invoked when a subscribed resource changes.
type ResourceUpdatedConsumer func(uri string) error

// LoggingConsumer receives notifications/message records from the server.
type LoggingConsumer func(params *protocol.LoggingMessageParams) error

// Client is the asynchronous MCP client role built on a Session.
type Client struct {
	session *session.Session
	logger  logging.Logger

	info         protocol.Implementation
	capabilities protocol.ClientCapabilities

	samplingHandler SamplingHandler

	mu                 sync.RWMutex
	initialized        bool
	serverInfo         protocol.Implementation
	serverCapabilities protocol.ServerCapabilities
	instructions       string
	negotiatedVersion  string
	roots              map[string]protocol.Root

	consumersMu         sync.Mutex
	toolsConsumers      []ToolsListChangedConsumer
	resourcesConsumers  []ResourcesListChangedConsumer
	promptsConsumers    []PromptsListChangedConsumer
	loggingConsumers    []LoggingConsumer
	resourceSubscribers map[string][]ResourceUpdatedConsumer
}

type clientSettings struct {
	info            protocol.Implementation
	capabilities    protocol.ClientCapabilities
	roots           []protocol.Root
	samplingHandler SamplingHandler
	requestTimeout  time.Duration
	logger          logging.Logger
	hooks           []session.Hook

	toolsConsumers     []ToolsListChangedConsumer
	resourcesConsumers []ResourcesListChangedConsumer
	promptsConsumers   []PromptsListChangedConsumer
	loggingConsumers   []LoggingConsumer
}

// Option configures a Client.
type Option func(*clientSettings)

// WithClientInfo sets the name and version advertised during
// initialization.
func WithClientInfo(info protocol.Implementation) Option {
	return func(s *clientSettings) { s.info = info }
}

// WithCapabilities replaces the advertised capability set wholesale. Most
// callers should prefer the per-area options.
func WithCapabilities(capabilities protocol.ClientCapabilities) Option {
	return func(s *clientSettings) { s.capabilities = capabilities }
}

// WithRootsCapability advertises the roots capability and whether root
// mutations emit notifications/roots/list_changed.
func WithRootsCapability(listChanged bool) Option {
	return func(s *clientSettings) {
		s.capabilities.Roots = &protocol.RootsCapability{ListChanged: listChanged}
	}
}

// WithRoot seeds the root table. Implies the roots capability.
func WithRoot(roots ...protocol.Root) Option {
	return func(s *clientSettings) {
		if s.capabilities.Roots == nil {
			s.capabilities.Roots = &protocol.RootsCapability{ListChanged: true}
		}
		s.roots = append(s.roots, roots...)
	}
}

// WithSamplingHandler advertises the sampling capability served by handler.
func WithSamplingHandler(handler SamplingHandler) Option {
	return func(s *clientSettings) {
		s.capabilities.Sampling = &protocol.SamplingCapability{}
		s.samplingHandler = handler
	}
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *clientSettings) { s.requestTimeout = timeout }
}

// WithLogger sets the client logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *clientSettings) { s.logger = logger }
}

// WithHooks attaches observability hooks to the underlying session.
func WithHooks(hooks ...session.Hook) Option {
	return func(s *clientSettings) { s.hooks = append(s.hooks, hooks...) }
}

// WithToolsListChangedConsumer registers a consumer for refreshed tool
// lists.
func WithToolsListChangedConsumer(consumer ToolsListChangedConsumer) Option {
	return func(s *clientSettings) { s.toolsConsumers = append(s.toolsConsumers, consumer) }
}

// WithResourcesListChangedConsumer registers a consumer for refreshed
// resource lists.
func WithResourcesListChangedConsumer(consumer ResourcesListChangedConsumer) Option {
	return func(s *clientSettings) { s.resourcesConsumers = append(s.resourcesConsumers, consumer) }
}

// WithPromptsListChangedConsumer registers a consumer for refreshed prompt
// lists.
func WithPromptsListChangedConsumer(consumer PromptsListChangedConsumer) Option {
	return func(s *clientSettings) { s.promptsConsumers = append(s.promptsConsumers, consumer) }
}

// WithLoggingConsumer registers a consumer for server log records.
func WithLoggingConsumer(consumer LoggingConsumer) Option {
	return func(s *clientSettings) { s.loggingConsumers = append(s.loggingConsumers, consumer) }
}

// New creates a client over the given transport. Advertising the sampling
// capability without a handler is a construction-time error.
func New(t transport.Transport, options ...Option) (*Client, error) {
	settings := clientSettings{
		info:   protocol.Implementation{Name: "mcp-go-client", Version: "1.0.0"},
		logger: logging.Default(),
	}
	for _, option := range options {
		option(&settings)
	}
	if settings.logger == nil {
		settings.logger = logging.Default()
	}

	if settings.capabilities.Sampling != nil && settings.samplingHandler == nil {
		return nil, mcperrors.CapabilityRequired("sampling").
			WithDetail("sampling capability advertised without a sampling handler")
	}

	c := &Client{
		logger:              settings.logger.WithFields(logging.String("component", "Client")),
		info:                settings.info,
		capabilities:        settings.capabilities,
		samplingHandler:     settings.samplingHandler,
		roots:               make(map[string]protocol.Root),
		toolsConsumers:      settings.toolsConsumers,
		resourcesConsumers:  settings.resourcesConsumers,
		promptsConsumers:    settings.promptsConsumers,
		loggingConsumers:    settings.loggingConsumers,
		resourceSubscribers: make(map[string][]ResourceUpdatedConsumer),
	}
	for _, root := range settings.roots {
		if _, dup := c.roots[root.URI]; dup {
			return nil, mcperrors.DuplicateEntry("root", root.URI)
		}
		c.roots[root.URI] = root
	}

	sessionOpts := []session.Option{session.WithLogger(settings.logger)}
	if settings.requestTimeout > 0 {
		sessionOpts = append(sessionOpts, session.WithRequestTimeout(settings.requestTimeout))
	}
	if len(settings.hooks) > 0 {
		sessionOpts = append(sessionOpts, session.WithHooks(settings.hooks...))
	}
	c.session = session.New(t, sessionOpts...)

	c.registerHandlers()
	return c, nil
}

// registerHandlers populates the session routing tables. It runs before
// Connect, so no inbound message can observe a partial table.
func (c *Client) registerHandlers() {
	c.session.RegisterRequestHandler(protocol.MethodPing, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return protocol.PingResult{}, nil
	})

	if c.capabilities.Roots != nil {
		c.session.RegisterRequestHandler(protocol.MethodRootsList, c.handleRootsList)
	}
	if c.capabilities.Sampling != nil {
		c.session.RegisterRequestHandler(protocol.MethodSamplingCreateMessage, c.handleCreateMessage)
	}

	c.session.RegisterNotificationHandler(protocol.NotificationToolsListChanged, c.handleToolsListChanged)
	c.session.RegisterNotificationHandler(protocol.NotificationResourcesListChanged, c.handleResourcesListChanged)
	c.session.RegisterNotificationHandler(protocol.NotificationPromptsListChanged, c.handlePromptsListChanged)
	c.session.RegisterNotificationHandler(protocol.NotificationResourcesUpdated, c.handleResourceUpdated)
	c.session.RegisterNotificationHandler(protocol.NotificationMessage, c.handleLoggingMessage)
}

// Connect starts the underlying session and transport.
func (c *Client) Connect(ctx context.Context) error {
	return c.session.Start(ctx)
}

// Initialize performs the initialization handshake: it proposes the newest
// protocol version the SDK supports, verifies the server's choice, records
// the server's identity and capabilities, and confirms with the
// notifications/initialized notification. Feature operations are permitted
// only after Initialize succeeds.
func (c *Client) Initialize(ctx context.Context) error {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.LatestProtocolVersion,
		Capabilities:    c.capabilities,
		ClientInfo:      c.info,
	}

	var result protocol.InitializeResult
	if err := c.session.SendRequest(ctx, protocol.MethodInitialize, &params, &result); err != nil {
		return err
	}

	if !protocol.IsProtocolVersionSupported(result.ProtocolVersion) {
		return mcperrors.VersionMismatch(result.ProtocolVersion, protocol.SupportedProtocolVersions)
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.serverCapabilities = result.Capabilities
	c.instructions = result.Instructions
	c.negotiatedVersion = result.ProtocolVersion
	c.initialized = true
	c.mu.Unlock()

	return c.session.SendNotification(ctx, protocol.NotificationInitialized, protocol.InitializedParams{})
}

// ServerInfo returns the server identity learned during initialization.
func (c *Client) ServerInfo() protocol.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// ServerCapabilities returns the capabilities the server advertised.
func (c *Client) ServerCapabilities() protocol.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCapabilities
}

// Instructions returns the optional usage instructions the server sent.
func (c *Client) Instructions() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instructions
}

// NegotiatedProtocolVersion returns the protocol version agreed during
// initialization.
func (c *Client) NegotiatedProtocolVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.negotiatedVersion
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var result protocol.PingResult
	return c.session.SendRequest(ctx, protocol.MethodPing, protocol.PingParams{}, &result)
}

// ListTools lists the server's tools, forwarding the pagination cursor
// unchanged.
func (c *Client) ListTools(ctx context.Context, cursor string) (*protocol.ListToolsResult, error) {
	if err := c.requireServerCapability("tools"); err != nil {
		return nil, err
	}
	var result protocol.ListToolsResult
	if err := c.session.SendRequest(ctx, protocol.MethodToolsList, &protocol.ListToolsParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CallTool invokes a named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments interface{}) (*protocol.CallToolResult, error) {
	if err := c.requireServerCapability("tools"); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(arguments)
	if err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.CodeInternalError, "failed to marshal tool arguments", mcperrors.CategoryInternal)
	}
	var result protocol.CallToolResult
	if err := c.session.SendRequest(ctx, protocol.MethodToolsCall, &protocol.CallToolParams{Name: name, Arguments: raw}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources lists the server's resources.
func (c *Client) ListResources(ctx context.Context, cursor string) (*protocol.ListResourcesResult, error) {
	if err := c.requireServerCapability("resources"); err != nil {
		return nil, err
	}
	var result protocol.ListResourcesResult
	if err := c.session.SendRequest(ctx, protocol.MethodResourcesList, &protocol.ListResourcesParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResourceTemplates lists the server's resource templates.
func (c *Client) ListResourceTemplates(ctx context.Context, cursor string) (*protocol.ListResourceTemplatesResult, error) {
	if err := c.requireServerCapability("resources"); err != nil {
		return nil, err
	}
	var result protocol.ListResourceTemplatesResult
	if err := c.session.SendRequest(ctx, protocol.MethodResourcesTemplatesList, &protocol.ListResourceTemplatesParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadResource reads a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	if err := c.requireServerCapability("resources"); err != nil {
		return nil, err
	}
	var result protocol.ReadResourceResult
	if err := c.session.SendRequest(ctx, protocol.MethodResourcesRead, &protocol.ReadResourceParams{URI: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubscribeResource subscribes to update notifications for uri and routes
// them to consumer.
func (c *Client) SubscribeResource(ctx context.Context, uri string, consumer ResourceUpdatedConsumer) error {
	if err := c.requireServerCapability("resources.subscribe"); err != nil {
		return err
	}
	var result protocol.EmptyResult
	if err := c.session.SendRequest(ctx, protocol.MethodResourcesSubscribe, &protocol.SubscribeParams{URI: uri}, &result); err != nil {
		return err
	}
	if consumer != nil {
		c.consumersMu.Lock()
		c.resourceSubscribers[uri] = append(c.resourceSubscribers[uri], consumer)
		c.consumersMu.Unlock()
	}
	return nil
}

// UnsubscribeResource cancels the subscription for uri and drops its
// consumers.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	if err := c.requireServerCapability("resources.subscribe"); err != nil {
		return err
	}
	var result protocol.EmptyResult
	if err := c.session.SendRequest(ctx, protocol.MethodResourcesUnsubscribe, &protocol.UnsubscribeParams{URI: uri}, &result); err != nil {
		return err
	}
	c.consumersMu.Lock()
	delete(c.resourceSubscribers, uri)
	c.consumersMu.Unlock()
	return nil
}

// ListPrompts lists the server's prompts.
func (c *Client) ListPrompts(ctx context.Context, cursor string) (*protocol.ListPromptsResult, error) {
	if err := c.requireServerCapability("prompts"); err != nil {
		return nil, err
	}
	var result protocol.ListPromptsResult
	if err := c.session.SendRequest(ctx, protocol.MethodPromptsList, &protocol.ListPromptsParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPrompt renders a named prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*protocol.GetPromptResult, error) {
	if err := c.requireServerCapability("prompts"); err != nil {
		return nil, err
	}
	var result protocol.GetPromptResult
	if err := c.session.SendRequest(ctx, protocol.MethodPromptsGet, &protocol.GetPromptParams{Name: name, Arguments: arguments}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetLoggingLevel sets the server's minimum logging level.
func (c *Client) SetLoggingLevel(ctx context.Context, level protocol.LoggingLevel) error {
	if err := c.requireServerCapability("logging"); err != nil {
		return err
	}
	var result protocol.EmptyResult
	return c.session.SendRequest(ctx, protocol.MethodLoggingSetLevel, &protocol.SetLevelParams{Level: level}, &result)
}

// AddRoot adds a root to the client's table, emitting
// notifications/roots/list_changed when the capability declares it.
func (c *Client) AddRoot(ctx context.Context, root protocol.Root) error {
	if c.capabilities.Roots == nil {
		return mcperrors.CapabilityRequired("roots")
	}

	c.mu.Lock()
	if _, dup := c.roots[root.URI]; dup {
		c.mu.Unlock()
		return mcperrors.DuplicateEntry("root", root.URI)
	}
	c.roots[root.URI] = root
	c.mu.Unlock()

	return c.maybeNotifyRootsChanged(ctx)
}

// RemoveRoot removes a root by URI, emitting
// notifications/roots/list_changed when the capability declares it.
func (c *Client) RemoveRoot(ctx context.Context, uri string) error {
	if c.capabilities.Roots == nil {
		return mcperrors.CapabilityRequired("roots")
	}

	c.mu.Lock()
	if _, ok := c.roots[uri]; !ok {
		c.mu.Unlock()
		return mcperrors.EntryNotFound("root", uri)
	}
	delete(c.roots, uri)
	c.mu.Unlock()

	return c.maybeNotifyRootsChanged(ctx)
}

// Roots returns a snapshot of the root table, sorted by URI.
func (c *Client) Roots() []protocol.Root {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rootsSnapshotLocked()
}

// NotifyRootsListChanged emits notifications/roots/list_changed manually.
func (c *Client) NotifyRootsListChanged(ctx context.Context) error {
	if c.capabilities.Roots == nil {
		return mcperrors.CapabilityRequired("roots")
	}
	return c.session.SendNotification(ctx, protocol.NotificationRootsListChanged, nil)
}

// CloseGracefully flushes outbound traffic and shuts the session down.
func (c *Client) CloseGracefully(ctx context.Context) error {
	return c.session.CloseGracefully(ctx)
}

// Close tears the client down immediately.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) maybeNotifyRootsChanged(ctx context.Context) error {
	if !c.capabilities.Roots.ListChanged {
		return nil
	}
	if err := c.session.SendNotification(ctx, protocol.NotificationRootsListChanged, nil); err != nil {
		// The mutation already happened; a failed notification is logged,
		// not unwound.
		c.logger.Warn("failed to send roots list_changed", logging.Err(err))
	}
	return nil
}

func (c *Client) rootsSnapshotLocked() []protocol.Root {
	roots := make([]protocol.Root, 0, len(c.roots))
	for _, root := range c.roots {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].URI < roots[j].URI })
	return roots
}

// requireServerCapability gates a typed operation on initialization state
// and the server capability it depends on.
func (c *Client) requireServerCapability(area string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return mcperrors.NotInitialized(area)
	}

	caps := c.serverCapabilities
	switch area {
	case "tools":
		if caps.Tools == nil {
			return mcperrors.CapabilityRequired("tools")
		}
	case "resources":
		if caps.Resources == nil {
			return mcperrors.CapabilityRequired("resources")
		}
	case "resources.subscribe":
		if caps.Resources == nil || !caps.Resources.Subscribe {
			return mcperrors.CapabilityRequired("resources.subscribe")
		}
	case "prompts":
		if caps.Prompts == nil {
			return mcperrors.CapabilityRequired("prompts")
		}
	case "logging":
		if caps.Logging == nil {
			return mcperrors.CapabilityRequired("logging")
		}
	}
	return nil
}
