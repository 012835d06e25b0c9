// Package mcptools exposes the diary store as Model Context Protocol tools.
package mcptools

import (
	"context"

	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported in the MCP implementation info.
var Version = "dev"

// NewDiaryMCPServer creates an in-memory MCP server exposing diary tools.
// Returns the server and a client transport for connecting to it.
func NewDiaryMCPServer(store storage.Storage) (*mcp.Server, mcp.Transport) {
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	server := CreateMCPServer(store)
	go func() {
		_, _ = server.Connect(context.Background(), serverTransport, nil)
	}()

	return server, clientTransport
}

// CreateMCPServer creates an MCP server with registered diary tools.
func CreateMCPServer(store storage.Storage) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "diaryweb",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_entries",
		Description: "List diary entries newest first, optionally within a date range",
	}, ListHandler(store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_entries",
		Description: "Search diary entries by text in their topic or content",
	}, SearchHandler(store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_entry",
		Description: "Fetch one diary entry by ID",
	}, GetEntryHandler(store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_entry",
		Description: "Create a diary entry with content and an optional topic",
	}, CreateEntryHandler(store))

	return server
}
