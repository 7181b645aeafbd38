package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/clipd/internal/state"
	"github.com/kalambet/clipd/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	State     *state.State
	Clipboard ClipboardWriter
}

// NewMCPServer creates an MCP server exposing clipboard history to agent
// clients: search, single-item inspection, and restore.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"clipd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("clipd is a local clipboard history: search past copies, inspect items, and put them back on the clipboard."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_history",
			mcp.WithDescription("Search the clipboard history. An empty query lists recent items, pinned first."),
			mcp.WithString("query", mcp.Description("Search query; each term matches as a prefix")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
			mcp.WithString("filter", mcp.Description("Restrict to 'favorites' or 'pinned'")),
		),
		mcpSearchHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("get_item",
			mcp.WithDescription("Fetch one history item's text and metadata by id. Image bytes are omitted."),
			mcp.WithNumber("id", mcp.Description("Item id"), mcp.Required()),
		),
		mcpGetItem(deps),
	)

	s.AddTool(
		mcp.NewTool("restore_item",
			mcp.WithDescription("Put a history item back on the OS clipboard."),
			mcp.WithNumber("id", mcp.Description("Item id"), mcp.Required()),
		),
		mcpRestoreItem(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"clipboard://recent",
			"Recent Clipboard Items",
			mcp.WithResourceDescription("The 10 most recent clipboard history items (previews only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpSearchHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		filter := req.GetString("filter", storage.FilterAll)

		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}

		res, err := deps.Store.SearchItems(query, int64(limit), 0, filter)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

// mcpItem is the single-item view handed to agents: everything except the
// raw image bytes, which would blow up the context window.
type mcpItem struct {
	Kind        string `json:"kind"`
	Text        string `json:"text"`
	ImageWidth  *int64 `json:"imageWidth,omitempty"`
	ImageHeight *int64 `json:"imageHeight,omitempty"`
}

func mcpGetItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetInt("id", 0)
		if id <= 0 {
			return mcpError("id is required"), nil
		}

		preview, err := deps.Store.GetItemPreview(int64(id))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("item %d not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load item: %v", err)), nil
		}

		b, err := json.Marshal(mcpItem{
			Kind:        preview.Kind,
			Text:        preview.Text,
			ImageWidth:  preview.ImageWidth,
			ImageHeight: preview.ImageHeight,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal item: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRestoreItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetInt("id", 0)
		if id <= 0 {
			return mcpError("id is required"), nil
		}

		payload, err := deps.Store.GetItemPayload(int64(id))
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("item %d not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load item: %v", err)), nil
		}

		if err := writeBack(deps.Clipboard, deps.State, payload); err != nil {
			return mcpError(fmt.Sprintf("restore failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Restored item %d to the clipboard", id)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		res, err := deps.Store.SearchItems("", 10, 0, storage.FilterAll)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent items: %w", err)
		}

		b, err := json.Marshal(res.Items)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal items: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
