package client

import (
	"context"
	"encoding/json"

	mcperrors "github.com/mcpkit/mcp-go/pkg/errors"
	"github.com/mcpkit/mcp-go/pkg/logging"
	"github.com/mcpkit/mcp-go/pkg/protocol"
	"github.com/mcpkit/mcp-go/pkg/transport"
)

// handleRootsList serves the server's roots/list request from the client's
// root table.
func (c *Client) handleRootsList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return protocol.ListRootsResult{Roots: c.rootsSnapshotLocked()}, nil
}

// handleCreateMessage delegates a server's sampling request to the
// registered sampling handler.
func (c *Client) handleCreateMessage(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req protocol.CreateMessageParams
	if err := transport.Unmarshal(params, &req); err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodSamplingCreateMessage, err)
	}
	return c.samplingHandler(ctx, &req)
}

// handleToolsListChanged refreshes the tool list and fans it out to the
// registered consumers in order.
func (c *Client) handleToolsListChanged(ctx context.Context, params json.RawMessage) error {
	c.consumersMu.Lock()
	consumers := make([]ToolsListChangedConsumer, len(c.toolsConsumers))
	copy(consumers, c.toolsConsumers)
	c.consumersMu.Unlock()
	if len(consumers) == 0 {
		return nil
	}

	result, err := c.ListTools(ctx, "")
	if err != nil {
		return err
	}
	for _, consumer := range consumers {
		if err := consumer(result.Tools); err != nil {
			c.logger.Warn("tools list_changed consumer failed", logging.Err(err))
		}
	}
	return nil
}

// handleResourcesListChanged refreshes the resource list and fans it out.
func (c *Client) handleResourcesListChanged(ctx context.Context, params json.RawMessage) error {
	c.consumersMu.Lock()
	consumers := make([]ResourcesListChangedConsumer, len(c.resourcesConsumers))
	copy(consumers, c.resourcesConsumers)
	c.consumersMu.Unlock()
	if len(consumers) == 0 {
		return nil
	}

	result, err := c.ListResources(ctx, "")
	if err != nil {
		return err
	}
	for _, consumer := range consumers {
		if err := consumer(result.Resources); err != nil {
			c.logger.Warn("resources list_changed consumer failed", logging.Err(err))
		}
	}
	return nil
}

// handlePromptsListChanged refreshes the prompt list and fans it out.
func (c *Client) handlePromptsListChanged(ctx context.Context, params json.RawMessage) error {
	c.consumersMu.Lock()
	consumers := make([]PromptsListChangedConsumer, len(c.promptsConsumers))
	copy(consumers, c.promptsConsumers)
	c.consumersMu.Unlock()
	if len(consumers) == 0 {
		return nil
	}

	result, err := c.ListPrompts(ctx, "")
	if err != nil {
		return err
	}
	for _, consumer := range consumers {
		if err := consumer(result.Prompts); err != nil {
			c.logger.Warn("prompts list_changed consumer failed", logging.Err(err))
		}
	}
	return nil
}

// handleResourceUpdated routes notifications/resources/updated to the
// subscribers of that URI.
func (c *Client) handleResourceUpdated(ctx context.Context, params json.RawMessage) error {
	var update protocol.ResourceUpdatedParams
	if err := transport.Unmarshal(params, &update); err != nil {
		return mcperrors.InvalidParams(protocol.NotificationResourcesUpdated, err)
	}

	c.consumersMu.Lock()
	subscribers := make([]ResourceUpdatedConsumer, len(c.resourceSubscribers[update.URI]))
	copy(subscribers, c.resourceSubscribers[update.URI])
	c.consumersMu.Unlock()

	for _, subscriber := range subscribers {
		if err := subscriber(update.URI); err != nil {
			c.logger.Warn("resource updated consumer failed",
				logging.String("uri", update.URI), logging.Err(err))
		}
	}
	return nil
}

// handleLoggingMessage delivers a server log record to every registered
// logging consumer.
func (c *Client) handleLoggingMessage(ctx context.Context, params json.RawMessage) error {
	var record protocol.LoggingMessageParams
	if err := transport.Unmarshal(params, &record); err != nil {
		return mcperrors.InvalidParams(protocol.NotificationMessage, err)
	}

	c.consumersMu.Lock()
	consumers := make([]LoggingConsumer, len(c.loggingConsumers))
	copy(consumers, c.loggingConsumers)
	c.consumersMu.Unlock()

	for _, consumer := range consumers {
		if err := consumer(&record); err != nil {
			c.logger.Warn("logging consumer failed", logging.Err(err))
		}
	}
	return nil
}

// Consumer registration used by the synchronous facade, which bridges
// consumers off the session's dispatch context.

func (c *Client) addToolsConsumer(consumer ToolsListChangedConsumer) {
	c.consumersMu.Lock()
	defer c.consumersMu.Unlock()
	c.toolsConsumers = append(c.toolsConsumers, consumer)
}

func (c *Client) addResourcesConsumer(consumer ResourcesListChangedConsumer) {
	c.consumersMu.Lock()
	defer c.consumersMu.Unlock()
	c.resourcesConsumers = append(c.resourcesConsumers, consumer)
}

func (c *Client) addPromptsConsumer(consumer PromptsListChangedConsumer) {
	c.consumersMu.Lock()
	defer c.consumersMu.Unlock()
	c.promptsConsumers = append(c.promptsConsumers, consumer)
}

func (c *Client) addLoggingConsumer(consumer LoggingConsumer) {
	c.consumersMu.Lock()
	defer c.consumersMu.Unlock()
	c.loggingConsumers = append(c.loggingConsumers, consumer)
}
