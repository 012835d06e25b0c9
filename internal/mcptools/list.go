package mcptools

import (
	"context"
	"fmt"

	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListHandler returns the handler function for the list_entries MCP tool.
func ListHandler(store storage.Storage) func(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, EntriesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, EntriesOutput, error) {
		opts := storage.ListOptions{Limit: input.Limit}
		if opts.Limit <= 0 {
			opts.Limit = 20
		}
		if input.StartDate != "" {
			t, err := parseDate(input.StartDate)
			if err != nil {
				return nil, EntriesOutput{}, fmt.Errorf("invalid start_date %q: use YYYY-MM-DD", input.StartDate)
			}
			opts.StartDate = &t
		}
		if input.EndDate != "" {
			t, err := parseDate(input.EndDate)
			if err != nil {
				return nil, EntriesOutput{}, fmt.Errorf("invalid end_date %q: use YYYY-MM-DD", input.EndDate)
			}
			opts.EndDate = &t
		}

		entries, err := store.List(opts)
		if err != nil {
			return nil, EntriesOutput{}, err
		}
		return nil, EntriesOutput{Entries: toResults(entries)}, nil
	}
}
