package mcptools

import (
	"context"
	"errors"
	"strings"

	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchHandler returns the handler function for the search_entries MCP tool.
func SearchHandler(store storage.Storage) func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, EntriesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, EntriesOutput, error) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, EntriesOutput{}, errors.New("query must not be empty")
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}

		entries, err := store.List(storage.ListOptions{Query: query, Limit: limit})
		if err != nil {
			return nil, EntriesOutput{}, err
		}
		return nil, EntriesOutput{Entries: toResults(entries)}, nil
	}
}
