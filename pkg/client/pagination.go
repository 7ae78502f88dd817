package client

import (
	"context"

	"github.com/mcpkit/mcp-go/pkg/pagination"
	"github.com/mcpkit/mcp-go/pkg/protocol"
)

// ListAllTools collects every page of tools/list.
func (c *Client) ListAllTools(ctx context.Context) ([]protocol.Tool, error) {
	return pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]protocol.Tool, string, error) {
		result, err := c.ListTools(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		return result.Tools, result.NextCursor, nil
	})
}

// ListAllResources collects every page of resources/list.
func (c *Client) ListAllResources(ctx context.Context) ([]protocol.Resource, error) {
	return pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]protocol.Resource, string, error) {
		result, err := c.ListResources(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		return result.Resources, result.NextCursor, nil
	})
}

// ListAllResourceTemplates collects every page of resources/templates/list.
func (c *Client) ListAllResourceTemplates(ctx context.Context) ([]protocol.ResourceTemplate, error) {
	return pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]protocol.ResourceTemplate, string, error) {
		result, err := c.ListResourceTemplates(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		return result.ResourceTemplates, result.NextCursor, nil
	})
}

// ListAllPrompts collects every page of prompts/list.
func (c *Client) ListAllPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	return pagination.CollectAll(ctx, func(ctx context.Context, cursor string) ([]protocol.Prompt, string, error) {
		result, err := c.ListPrompts(ctx, cursor)
		if err != nil {
			return nil, "", err
		}
		return result.Prompts, result.NextCursor, nil
	})
}
