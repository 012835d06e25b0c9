package cmd

import (
	"github.com/chris-regnier/diaryweb/internal/mcptools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var mcpServeCmd = &cobra.Command{
	Use:   "mcp-serve",
	Short: "Run MCP server on stdio",
	Long: `Starts a Model Context Protocol (MCP) server that exposes diary tools
over stdio transport. It reads the configured storage backend directly, so
no HTTP server needs to be running.

Available tools:
  - list_entries: List entries, optionally within a date range
  - search_entries: Text search over topics and content
  - get_entry: Fetch one entry with its attachment names
  - create_entry: Create a text entry

Example usage in an MCP client config:
  {
    "mcpServers": {
      "diaryweb": {
        "command": "/path/to/diaryweb",
        "args": ["mcp-serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	rootCmd.AddCommand(mcpServeCmd)
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	store, err := openStorage(appConfig)
	if err != nil {
		return err
	}
	defer store.Close()

	server := mcptools.CreateMCPServer(store)

	// zap writes to stderr; stdout is reserved for the protocol
	logger.Infow("starting MCP server", "transport", "stdio", "storage", appConfig.Storage, "data_dir", appConfig.DataDir)

	// Blocks until the transport is closed
	return server.Run(cmd.Context(), &mcp.StdioTransport{})
}
