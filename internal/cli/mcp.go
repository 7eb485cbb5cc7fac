package cli

import (
	"fmt"

	"github.com/akolanti/LegalRAG/internal/mcpServer"
	"github.com/spf13/cobra"
)

func (r *runner) mcpCommand() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
	}

	var port int
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serves the search_legal_documents tool over the Model Context Protocol.

By default the server speaks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.

Examples:
  legalrag mcp serve
  legalrag mcp serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := mcpServer.NewServer(a.Retrieval)
			if err != nil {
				return err
			}
			if port > 0 {
				addr := fmt.Sprintf(":%d", port)
				cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
				return server.RunHTTP(cmd.Context(), addr)
			}
			return server.Run(cmd.Context())
		},
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 = use stdio)")

	mcpCmd.AddCommand(serveCmd)
	return mcpCmd
}
