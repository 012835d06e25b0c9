package mcptools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetEntryHandler returns the handler function for the get_entry MCP tool.
func GetEntryHandler(store storage.Storage) func(ctx context.Context, req *mcp.CallToolRequest, input GetEntryInput) (*mcp.CallToolResult, GetEntryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetEntryInput) (*mcp.CallToolResult, GetEntryOutput, error) {
		e, err := store.Get(input.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, GetEntryOutput{}, fmt.Errorf("entry %s not found", input.ID)
		}
		if err != nil {
			return nil, GetEntryOutput{}, err
		}
		return nil, GetEntryOutput{
			ID:        e.ID,
			Topic:     e.Topic,
			Content:   e.Content,
			ImagePath: e.ImagePath,
			VideoPath: e.VideoPath,
			AudioPath: e.AudioPath,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
			UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
		}, nil
	}
}
