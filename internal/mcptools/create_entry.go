package mcptools

import (
	"context"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CreateEntryHandler returns the handler function for the create_entry MCP tool.
func CreateEntryHandler(store storage.Storage) func(ctx context.Context, req *mcp.CallToolRequest, input CreateEntryInput) (*mcp.CallToolResult, CreateEntryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CreateEntryInput) (*mcp.CallToolResult, CreateEntryOutput, error) {
		// Validates content and generates the ID.
		e, err := entry.New(input.Topic, input.Content)
		if err != nil {
			return nil, CreateEntryOutput{}, err
		}
		if err := store.Create(e); err != nil {
			return nil, CreateEntryOutput{}, err
		}
		return nil, CreateEntryOutput{
			ID:      e.ID,
			Date:    e.CreatedAt.Local().Format(time.DateOnly),
			Heading: e.Heading(),
		}, nil
	}
}
