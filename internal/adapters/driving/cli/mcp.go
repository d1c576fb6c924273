package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve <file.pdf>",
	Short: "Serve one policy document over MCP",
	Long: `Start a Model Context Protocol server bound to a single policy document.

The document is indexed before the server starts. The server offers a
retrieve tool, an ask tool that returns a verdict, and resources describing
the document's cache.

By default, the server communicates over stdio using JSON-RPC. Use --port to
start an HTTP server instead, for the MCP Inspector or remote access.

Examples:
  # Stdio mode (default, for desktop assistants)
  policyqa mcp serve policy.pdf

  # HTTP mode
  policyqa mcp serve policy.pdf --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "policyqa": {
        "command": "/path/to/policyqa",
        "args": ["mcp", "serve", "/path/to/policy.pdf"]
      }
    }
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	svc, err := need("retrieval", func(s *Services) bool {
		return s.Index != nil && s.Retrieval != nil
	})
	if err != nil {
		return err
	}

	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	path := args[0]
	if _, err := svc.Index.Ensure(cmd.Context(), path); err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}

	ports := &mcp.Ports{
		Retrieval: svc.Retrieval,
		Answer:    svc.Answer,
		Cache:     svc.Cache,
	}

	server, err := mcp.NewServer(ports, path)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
