package server

import (
	"context"
	"encoding/json"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/pagination"
	"github.com/mcpkit/mcp-go/pkg/protocol"
	"github.com/mcpkit/mcp-go/pkg/transport"
)

// handleInitialize records the client's identity and capabilities,
// validates its proposed protocol version and replies with the server's
// own. A second initialize on the same session is rejected.
func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var init protocol.InitializeParams
	if err := transport.Unmarshal(params, &init); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodInitialize, err)
	}

	s.mu.Lock()
	if s.initializing || s.initialized {
		s.mu.Unlock()
		return nil, mcperrors.AlreadyInitialized()
	}

	if !protocol.IsProtocolVersionSupported(init.ProtocolVersion) {
		s.mu.Unlock()
		return nil, mcperrors.VersionMismatch(init.ProtocolVersion, protocol.SupportedProtocolVersions)
	}

	s.initializing = true
	s.clientInfo = init.ClientInfo
	s.clientCapabilities = init.Capabilities
	s.mu.Unlock()

	s.logger.Info("client initializing",
		logging.String("client", init.ClientInfo.Name),
		logging.String("version", init.ClientInfo.Version),
		logging.String("protocol", init.ProtocolVersion))

	return protocol.InitializeResult{
		ProtocolVersion: init.ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	}, nil
}

// handleInitialized marks the session ready for feature operations. The
// session guarantees this notification is observed after the initialize
// response was sent.
func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initializing {
		return mcperrors.SessionNotRunning("initialized").
			WithDetail("initialized notification before initialize")
	}
	s.initialized = true
	return nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return protocol.PingResult{}, nil
}

func (s *Server) handleToolsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodToolsList); err != nil {
		return nil, err
	}
	var list protocol.ListToolsParams
	if err := transport.Unmarshal(params, &list); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodToolsList, err)
	}

	snapshot := s.toolsSnapshot()
	start, end, next, err := pagination.Page(len(snapshot), list.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodToolsList, err)
	}
	return protocol.ListToolsResult{Tools: snapshot[start:end], NextCursor: next}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodToolsCall); err != nil {
		return nil, err
	}
	var call protocol.CallToolParams
	if err := transport.Unmarshal(params, &call); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodToolsCall, err)
	}

	s.mu.RLock()
	entry, ok := s.tools[call.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, mcperrors.EntryNotFound("tool", call.Name)
	}

	result, err := entry.handler(ctx, call.Arguments)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &protocol.CallToolResult{Content: []protocol.Content{}}
	}
	return result, nil
}

func (s *Server) handleResourcesList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodResourcesList); err != nil {
		return nil, err
	}
	var list protocol.ListResourcesParams
	if err := transport.Unmarshal(params, &list); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodResourcesList, err)
	}

	snapshot := s.resourcesSnapshot()
	start, end, next, err := pagination.Page(len(snapshot), list.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodResourcesList, err)
	}
	return protocol.ListResourcesResult{Resources: snapshot[start:end], NextCursor: next}, nil
}

// handleResourcesRead serves a read from the exact-URI registry first, then
// from the first matching resource template.
func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodResourcesRead); err != nil {
		return nil, err
	}
	var read protocol.ReadResourceParams
	if err := transport.Unmarshal(params, &read); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodResourcesRead, err)
	}

	s.mu.RLock()
	entry, exact := s.resources[read.URI]
	var templated ResourceReadHandler
	if !exact {
		for _, candidate := range s.templates {
			if candidate.matcher.Match(read.URI) != nil {
				templated = candidate.handler
				break
			}
		}
	}
	s.mu.RUnlock()

	var handler ResourceReadHandler
	switch {
	case exact:
		handler = entry.handler
	case templated != nil:
		handler = templated
	default:
		return nil, mcperrors.EntryNotFound("resource", read.URI)
	}

	contents, err := handler(ctx, read.URI)
	if err != nil {
		return nil, err
	}
	return protocol.ReadResourceResult{Contents: contents}, nil
}

func (s *Server) handleTemplatesList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodResourcesTemplatesList); err != nil {
		return nil, err
	}
	var list protocol.ListResourceTemplatesParams
	if err := transport.Unmarshal(params, &list); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodResourcesTemplatesList, err)
	}

	snapshot := s.templatesSnapshot()
	start, end, next, err := pagination.Page(len(snapshot), list.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodResourcesTemplatesList, err)
	}
	return protocol.ListResourceTemplatesResult{ResourceTemplates: snapshot[start:end], NextCursor: next}, nil
}

func (s *Server) handleSubscribe(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodResourcesSubscribe); err != nil {
		return nil, err
	}
	var sub protocol.SubscribeParams
	if err := transport.Unmarshal(params, &sub); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodResourcesSubscribe, err)
	}

	s.mu.Lock()
	s.subscriptions[sub.URI] = struct{}{}
	s.mu.Unlock()
	return protocol.EmptyResult{}, nil
}

func (s *Server) handleUnsubscribe(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodResourcesUnsubscribe); err != nil {
		return nil, err
	}
	var unsub protocol.UnsubscribeParams
	if err := transport.Unmarshal(params, &unsub); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodResourcesUnsubscribe, err)
	}

	s.mu.Lock()
	_, ok := s.subscriptions[unsub.URI]
	delete(s.subscriptions, unsub.URI)
	s.mu.Unlock()
	if !ok {
		return nil, mcperrors.EntryNotFound("subscription", unsub.URI)
	}
	return protocol.EmptyResult{}, nil
}

func (s *Server) handlePromptsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodPromptsList); err != nil {
		return nil, err
	}
	var list protocol.ListPromptsParams
	if err := transport.Unmarshal(params, &list); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodPromptsList, err)
	}

	snapshot := s.promptsSnapshot()
	start, end, next, err := pagination.Page(len(snapshot), list.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodPromptsList, err)
	}
	return protocol.ListPromptsResult{Prompts: snapshot[start:end], NextCursor: next}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if err := s.requireInitialized(protocol.MethodPromptsGet); err != nil {
		return nil, err
	}
	var get protocol.GetPromptParams
	if err := transport.Unmarshal(params, &get); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodPromptsGet, err)
	}

	s.mu.RLock()
	entry, ok := s.prompts[get.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, mcperrors.EntryNotFound("prompt", get.Name)
	}
	return entry.handler(ctx, get.Arguments)
}

func (s *Server) handleSetLevel(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var set protocol.SetLevelParams
	if err := transport.Unmarshal(params, &set); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodLoggingSetLevel, err)
	}
	if !set.Level.IsValid() {
		return nil, mcperrors.InvalidParams(protocol.MethodLoggingSetLevel,
			mcperrors.Newf(mcperrors.CodeInvalidParams, mcperrors.CategoryProtocol,
				"unknown logging level %q", set.Level))
	}

	s.mu.Lock()
	s.minLoggingLevel = set.Level
	s.mu.Unlock()
	return protocol.EmptyResult{}, nil
}

// handleRootsListChanged refreshes the client's root list and fans it out
// to the registered consumers. Consumer failures are logged, never
// propagated.
func (s *Server) handleRootsListChanged(ctx context.Context, params json.RawMessage) error {
	s.consumersMu.Lock()
	consumers := make([]RootsListChangedConsumer, len(s.rootsConsumers))
	copy(consumers, s.rootsConsumers)
	s.consumersMu.Unlock()
	if len(consumers) == 0 {
		return nil
	}

	result, err := s.ListRoots(ctx, "")
	if err != nil {
		return err
	}
	for _, consumer := range consumers {
		if err := consumer(result.Roots); err != nil {
			s.logger.Warn("roots list_changed consumer failed", logging.Err(err))
		}
	}
	return nil
}
