// Package server implements the server side of the MCP protocol: the
// initialization handshake, dynamic registries of tools, resources and
// prompts with list-changed notifications, logging-level filtering,
// sampling call-outs to the client, and roots-change consumption.
package server

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/yosida95/uritemplate/v3"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/pagination"
	"github.com/mcpkit/mcp-go/pkg/protocol"
	"github.com/mcpkit/mcp-go/pkg/session"
	"github.com/mcpkit/mcp-go/pkg/transport"
)

// ToolHandler executes a tools/call invocation. Arguments arrive as the
// raw JSON the client sent; the declared schema is not enforced by the SDK.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (*protocol.CallToolResult, error)

// ResourceReadHandler serves a resources/read request for a registered
// resource or a template match.
type ResourceReadHandler func(ctx context.Context, uri string) ([]protocol.ResourceContents, error)

// PromptHandler renders a prompts/get invocation.
type PromptHandler func(ctx context.Context, arguments map[string]string) (*protocol.GetPromptResult, error)

// RootsListChangedConsumer receives the client's refreshed root list after
// a roots/list_changed notification.
type RootsListChangedConsumer func(roots []protocol.Root) error

type toolEntry struct {
	tool    protocol.Tool
	handler ToolHandler
}

type resourceEntry struct {
	resource protocol.Resource
	handler  ResourceReadHandler
}

type templateEntry struct {
	template protocol.ResourceTemplate
	matcher  *uritemplate.Template
	handler  ResourceReadHandler
}

type promptEntry struct {
	prompt  protocol.Prompt
	handler PromptHandler
}

// Server is the asynchronous MCP server role built on a Session.
type Server struct {
	session *session.Session
	logger  logging.Logger

	info         protocol.Implementation
	capabilities protocol.ServerCapabilities
	instructions string
	pageSize     int

	mu                 sync.RWMutex
	initializing       bool
	initialized        bool
	clientInfo         protocol.Implementation
	clientCapabilities protocol.ClientCapabilities

	tools           map[string]toolEntry
	resources       map[string]resourceEntry
	templates       []templateEntry
	prompts         map[string]promptEntry
	subscriptions   map[string]struct{}
	minLoggingLevel protocol.LoggingLevel

	consumersMu    sync.Mutex
	rootsConsumers []RootsListChangedConsumer
}

type serverSettings struct {
	info           protocol.Implementation
	capabilities   protocol.ServerCapabilities
	instructions   string
	pageSize       int
	requestTimeout time.Duration
	logger         logging.Logger
	hooks          []session.Hook
	rootsConsumers []RootsListChangedConsumer
}

// Option configures a Server.
type Option func(*serverSettings)

// WithServerInfo sets the name and version advertised during
// initialization.
func WithServerInfo(info protocol.Implementation) Option {
	return func(s *serverSettings) { s.info = info }
}

// WithInstructions sets the optional usage instructions returned from
// initialize.
func WithInstructions(instructions string) Option {
	return func(s *serverSettings) { s.instructions = instructions }
}

// WithToolsCapability advertises tool support and whether registry
// mutations emit notifications/tools/list_changed.
func WithToolsCapability(listChanged bool) Option {
	return func(s *serverSettings) {
		s.capabilities.Tools = &protocol.ToolsCapability{ListChanged: listChanged}
	}
}

// WithResourcesCapability advertises resource support, per-URI
// subscriptions and list_changed emission.
func WithResourcesCapability(subscribe, listChanged bool) Option {
	return func(s *serverSettings) {
		s.capabilities.Resources = &protocol.ResourcesCapability{Subscribe: subscribe, ListChanged: listChanged}
	}
}

// WithPromptsCapability advertises prompt support and list_changed
// emission.
func WithPromptsCapability(listChanged bool) Option {
	return func(s *serverSettings) {
		s.capabilities.Prompts = &protocol.PromptsCapability{ListChanged: listChanged}
	}
}

// WithLoggingCapability advertises notifications/message emission and
// logging/setLevel support.
func WithLoggingCapability() Option {
	return func(s *serverSettings) {
		s.capabilities.Logging = &protocol.LoggingCapability{}
	}
}

// WithPageSize sets the page size used by the list handlers.
func WithPageSize(n int) Option {
	return func(s *serverSettings) { s.pageSize = n }
}

// WithRequestTimeout sets the per-request deadline for server-initiated
// requests.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *serverSettings) { s.requestTimeout = timeout }
}

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *serverSettings) { s.logger = logger }
}

// WithHooks attaches observability hooks to the underlying session.
func WithHooks(hooks ...session.Hook) Option {
	return func(s *serverSettings) { s.hooks = append(s.hooks, hooks...) }
}

// WithRootsListChangedConsumer registers a consumer for the client's
// refreshed root list.
func WithRootsListChangedConsumer(consumer RootsListChangedConsumer) Option {
	return func(s *serverSettings) { s.rootsConsumers = append(s.rootsConsumers, consumer) }
}

// New creates a server over the given transport.
func New(t transport.Transport, options ...Option) *Server {
	settings := serverSettings{
		info:   protocol.Implementation{Name: "mcp-go-server", Version: "1.0.0"},
		logger: logging.Default(),
	}
	for _, option := range options {
		option(&settings)
	}
	if settings.logger == nil {
		settings.logger = logging.Default()
	}

	s := &Server{
		logger:          settings.logger.WithFields(logging.String("component", "Server")),
		info:            settings.info,
		capabilities:    settings.capabilities,
		instructions:    settings.instructions,
		pageSize:        settings.pageSize,
		tools:           make(map[string]toolEntry),
		resources:       make(map[string]resourceEntry),
		prompts:         make(map[string]promptEntry),
		subscriptions:   make(map[string]struct{}),
		minLoggingLevel: protocol.LoggingLevelDebug,
		rootsConsumers:  settings.rootsConsumers,
	}

	sessionOpts := []session.Option{session.WithLogger(settings.logger)}
	if settings.requestTimeout > 0 {
		sessionOpts = append(sessionOpts, session.WithRequestTimeout(settings.requestTimeout))
	}
	if len(settings.hooks) > 0 {
		sessionOpts = append(sessionOpts, session.WithHooks(settings.hooks...))
	}
	s.session = session.New(t, sessionOpts...)

	s.registerHandlers()
	return s
}

// registerHandlers populates the session routing tables for every
// capability the server advertises. It runs before Connect.
func (s *Server) registerHandlers() {
	s.session.RegisterRequestHandler(protocol.MethodInitialize, s.handleInitialize)
	s.session.RegisterNotificationHandler(protocol.NotificationInitialized, s.handleInitialized)
	s.session.RegisterRequestHandler(protocol.MethodPing, s.handlePing)

	if s.capabilities.Tools != nil {
		s.session.RegisterRequestHandler(protocol.MethodToolsList, s.handleToolsList)
		s.session.RegisterRequestHandler(protocol.MethodToolsCall, s.handleToolsCall)
	}
	if s.capabilities.Resources != nil {
		s.session.RegisterRequestHandler(protocol.MethodResourcesList, s.handleResourcesList)
		s.session.RegisterRequestHandler(protocol.MethodResourcesRead, s.handleResourcesRead)
		s.session.RegisterRequestHandler(protocol.MethodResourcesTemplatesList, s.handleTemplatesList)
		if s.capabilities.Resources.Subscribe {
			s.session.RegisterRequestHandler(protocol.MethodResourcesSubscribe, s.handleSubscribe)
			s.session.RegisterRequestHandler(protocol.MethodResourcesUnsubscribe, s.handleUnsubscribe)
		}
	}
	if s.capabilities.Prompts != nil {
		s.session.RegisterRequestHandler(protocol.MethodPromptsList, s.handlePromptsList)
		s.session.RegisterRequestHandler(protocol.MethodPromptsGet, s.handlePromptsGet)
	}
	if s.capabilities.Logging != nil {
		s.session.RegisterRequestHandler(protocol.MethodLoggingSetLevel, s.handleSetLevel)
	}

	s.session.RegisterNotificationHandler(protocol.NotificationRootsListChanged, s.handleRootsListChanged)
}

// Connect starts the underlying session and transport. The server then
// waits for the client's initialize request.
func (s *Server) Connect(ctx context.Context) error {
	return s.session.Start(ctx)
}

// ClientInfo returns the client identity learned during initialization.
func (s *Server) ClientInfo() protocol.Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientInfo
}

// ClientCapabilities returns the capabilities the client advertised.
func (s *Server) ClientCapabilities() protocol.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientCapabilities
}

// MinLoggingLevel returns the current minimum logging level.
func (s *Server) MinLoggingLevel() protocol.LoggingLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minLoggingLevel
}

// Ping checks that the client is responsive.
func (s *Server) Ping(ctx context.Context) error {
	var result protocol.PingResult
	return s.session.SendRequest(ctx, protocol.MethodPing, protocol.PingParams{}, &result)
}

// AddTool registers a tool, rejecting duplicates by name. When the tools
// capability declares list-changed, the notification is emitted after
// success.
func (s *Server) AddTool(ctx context.Context, tool protocol.Tool, handler ToolHandler) error {
	if s.capabilities.Tools == nil {
		return mcperrors.CapabilityRequired("tools")
	}

	s.mu.Lock()
	if _, dup := s.tools[tool.Name]; dup {
		s.mu.Unlock()
		return mcperrors.DuplicateEntry("tool", tool.Name)
	}
	s.tools[tool.Name] = toolEntry{tool: tool, handler: handler}
	s.mu.Unlock()

	if s.capabilities.Tools.ListChanged {
		s.notify(ctx, protocol.NotificationToolsListChanged)
	}
	return nil
}

// RemoveTool deregisters a tool by name.
func (s *Server) RemoveTool(ctx context.Context, name string) error {
	if s.capabilities.Tools == nil {
		return mcperrors.CapabilityRequired("tools")
	}

	s.mu.Lock()
	if _, ok := s.tools[name]; !ok {
		s.mu.Unlock()
		return mcperrors.EntryNotFound("tool", name)
	}
	delete(s.tools, name)
	s.mu.Unlock()

	if s.capabilities.Tools.ListChanged {
		s.notify(ctx, protocol.NotificationToolsListChanged)
	}
	return nil
}

// AddResource registers a resource, rejecting duplicates by URI.
func (s *Server) AddResource(ctx context.Context, resource protocol.Resource, handler ResourceReadHandler) error {
	if s.capabilities.Resources == nil {
		return mcperrors.CapabilityRequired("resources")
	}

	s.mu.Lock()
	if _, dup := s.resources[resource.URI]; dup {
		s.mu.Unlock()
		return mcperrors.DuplicateEntry("resource", resource.URI)
	}
	s.resources[resource.URI] = resourceEntry{resource: resource, handler: handler}
	s.mu.Unlock()

	if s.capabilities.Resources.ListChanged {
		s.notify(ctx, protocol.NotificationResourcesListChanged)
	}
	return nil
}

// RemoveResource deregisters a resource by URI.
func (s *Server) RemoveResource(ctx context.Context, uri string) error {
	if s.capabilities.Resources == nil {
		return mcperrors.CapabilityRequired("resources")
	}

	s.mu.Lock()
	if _, ok := s.resources[uri]; !ok {
		s.mu.Unlock()
		return mcperrors.EntryNotFound("resource", uri)
	}
	delete(s.resources, uri)
	s.mu.Unlock()

	if s.capabilities.Resources.ListChanged {
		s.notify(ctx, protocol.NotificationResourcesListChanged)
	}
	return nil
}

// AddResourceTemplate registers a parametric resource template whose
// pattern serves resources/read requests for matching URIs.
func (s *Server) AddResourceTemplate(ctx context.Context, template protocol.ResourceTemplate, handler ResourceReadHandler) error {
	if s.capabilities.Resources == nil {
		return mcperrors.CapabilityRequired("resources")
	}

	matcher, err := uritemplate.New(template.URITemplate)
	if err != nil {
		return mcperrors.Wrap(err, mcperrors.CodeInvalidParams,
			"invalid resource template", mcperrors.CategoryRegistry)
	}

	s.mu.Lock()
	for _, entry := range s.templates {
		if entry.template.URITemplate == template.URITemplate {
			s.mu.Unlock()
			return mcperrors.DuplicateEntry("resource template", template.URITemplate)
		}
	}
	s.templates = append(s.templates, templateEntry{template: template, matcher: matcher, handler: handler})
	s.mu.Unlock()

	if s.capabilities.Resources.ListChanged {
		s.notify(ctx, protocol.NotificationResourcesListChanged)
	}
	return nil
}

// AddPrompt registers a prompt, rejecting duplicates by name.
func (s *Server) AddPrompt(ctx context.Context, prompt protocol.Prompt, handler PromptHandler) error {
	if s.capabilities.Prompts == nil {
		return mcperrors.CapabilityRequired("prompts")
	}

	s.mu.Lock()
	if _, dup := s.prompts[prompt.Name]; dup {
		s.mu.Unlock()
		return mcperrors.DuplicateEntry("prompt", prompt.Name)
	}
	s.prompts[prompt.Name] = promptEntry{prompt: prompt, handler: handler}
	s.mu.Unlock()

	if s.capabilities.Prompts.ListChanged {
		s.notify(ctx, protocol.NotificationPromptsListChanged)
	}
	return nil
}

// RemovePrompt deregisters a prompt by name.
func (s *Server) RemovePrompt(ctx context.Context, name string) error {
	if s.capabilities.Prompts == nil {
		return mcperrors.CapabilityRequired("prompts")
	}

	s.mu.Lock()
	if _, ok := s.prompts[name]; !ok {
		s.mu.Unlock()
		return mcperrors.EntryNotFound("prompt", name)
	}
	delete(s.prompts, name)
	s.mu.Unlock()

	if s.capabilities.Prompts.ListChanged {
		s.notify(ctx, protocol.NotificationPromptsListChanged)
	}
	return nil
}

// NotifyToolsListChanged emits notifications/tools/list_changed.
func (s *Server) NotifyToolsListChanged(ctx context.Context) error {
	return s.session.SendNotification(ctx, protocol.NotificationToolsListChanged, nil)
}

// NotifyResourcesListChanged emits notifications/resources/list_changed.
func (s *Server) NotifyResourcesListChanged(ctx context.Context) error {
	return s.session.SendNotification(ctx, protocol.NotificationResourcesListChanged, nil)
}

// NotifyPromptsListChanged emits notifications/prompts/list_changed.
func (s *Server) NotifyPromptsListChanged(ctx context.Context) error {
	return s.session.SendNotification(ctx, protocol.NotificationPromptsListChanged, nil)
}

// NotifyResourceUpdated emits notifications/resources/updated for a URI the
// client has subscribed to; for any other URI it is a no-op.
func (s *Server) NotifyResourceUpdated(ctx context.Context, uri string) error {
	s.mu.RLock()
	_, subscribed := s.subscriptions[uri]
	s.mu.RUnlock()
	if !subscribed {
		s.logger.Debug("no subscription, skipping resource update", logging.String("uri", uri))
		return nil
	}
	return s.session.SendNotification(ctx, protocol.NotificationResourcesUpdated,
		&protocol.ResourceUpdatedParams{URI: uri})
}

// LoggingNotification emits a notifications/message record, filtered by the
// session's minimum logging level.
func (s *Server) LoggingNotification(ctx context.Context, record protocol.LoggingMessageParams) error {
	if s.capabilities.Logging == nil {
		return mcperrors.CapabilityRequired("logging")
	}

	s.mu.RLock()
	min := s.minLoggingLevel
	s.mu.RUnlock()
	if !record.Level.Meets(min) {
		return nil
	}
	return s.session.SendNotification(ctx, protocol.NotificationMessage, &record)
}

// CreateMessage asks the client to run an LLM completion. It fails locally
// unless the client advertised the sampling capability.
func (s *Server) CreateMessage(ctx context.Context, params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error) {
	if err := s.requireInitialized(protocol.MethodSamplingCreateMessage); err != nil {
		return nil, err
	}
	s.mu.RLock()
	sampling := s.clientCapabilities.Sampling
	s.mu.RUnlock()
	if sampling == nil {
		return nil, mcperrors.CapabilityRequired("sampling")
	}

	var result protocol.CreateMessageResult
	if err := s.session.SendRequest(ctx, protocol.MethodSamplingCreateMessage, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRoots asks the client for its current root set. It fails locally
// unless the client advertised the roots capability.
func (s *Server) ListRoots(ctx context.Context, cursor string) (*protocol.ListRootsResult, error) {
	if err := s.requireInitialized(protocol.MethodRootsList); err != nil {
		return nil, err
	}
	s.mu.RLock()
	roots := s.clientCapabilities.Roots
	s.mu.RUnlock()
	if roots == nil {
		return nil, mcperrors.CapabilityRequired("roots")
	}

	var result protocol.ListRootsResult
	if err := s.session.SendRequest(ctx, protocol.MethodRootsList, &protocol.ListRootsParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAllRoots collects every page of the client's roots/list.
func (s *Server) ListAllRoots(ctx context.Context) ([]protocol.Root, error) {
	return pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]protocol.Root, string, error) {
		result, err := s.ListRoots(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		return result.Roots, result.NextCursor, nil
	})
}

// CloseGracefully flushes outbound traffic and shuts the session down.
func (s *Server) CloseGracefully(ctx context.Context) error {
	return s.session.CloseGracefully(ctx)
}

// Close tears the server down immediately.
func (s *Server) Close() error {
	return s.session.Close()
}

// notify emits a list-changed notification after a registry mutation; the
// mutation stands even if the session cannot carry the notification yet.
func (s *Server) notify(ctx context.Context, method string) {
	if err := s.session.SendNotification(ctx, method, nil); err != nil {
		s.logger.Debug("list_changed notification not sent",
			logging.String("method", method), logging.Err(err))
	}
}

func (s *Server) toolsSnapshot() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tools := make([]protocol.Tool, 0, len(s.tools))
	for _, entry := range s.tools {
		tools = append(tools, entry.tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

func (s *Server) resourcesSnapshot() []protocol.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resources := make([]protocol.Resource, 0, len(s.resources))
	for _, entry := range s.resources {
		resources = append(resources, entry.resource)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })
	return resources
}

func (s *Server) templatesSnapshot() []protocol.ResourceTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	templates := make([]protocol.ResourceTemplate, 0, len(s.templates))
	for _, entry := range s.templates {
		templates = append(templates, entry.template)
	}
	return templates
}

func (s *Server) promptsSnapshot() []protocol.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prompts := make([]protocol.Prompt, 0, len(s.prompts))
	for _, entry := range s.prompts {
		prompts = append(prompts, entry.prompt)
	}
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return prompts
}

// requireInitialized rejects feature traffic before the initialize
// exchange. The gate opens once the initialize response has been sent: the
// client's confirming notification may still be in flight behind a request
// it sent later.
func (s *Server) requireInitialized(operation string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initializing && !s.initialized {
		return mcperrors.NotInitialized(operation)
	}
	return nil
}
