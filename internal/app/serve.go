package app

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/mcpserver"
	"github.com/blackwell-systems/reposcope/internal/search"
)

var (
	serveNoSearch bool

	// serveTransport replaces stdio in tests.
	serveTransport mcp.Transport

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalogue to MCP clients over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing read-only
catalogue tools: list_repositories, list_categories, category_report,
list_tools and search_catalog.

Logs go to stderr so they do not interfere with the protocol stream.`,
		Example: `  # Register with an MCP client
  reposcope serve

  # Without the search index
  reposcope serve --no-search`,
		Args: exactArgs(0),
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().BoolVar(&serveNoSearch, "no-search", false, "do not open the search index or register search_catalog")
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	var idx *search.Index
	if !serveNoSearch {
		idx, err = search.Open(env.settings.IndexPath(), env.store)
		if err != nil {
			// Serve without search rather than refuse to start.
			env.logger.Error("search index unavailable", "path", env.settings.IndexPath(), "error", err)
			idx = nil
		} else {
			defer idx.Close()
		}
	}

	server := mcpserver.CreateServer(mcpserver.ServerConfig{
		Name:     "reposcope",
		Version:  Version,
		Store:    env.store,
		Reporter: env.catalogue(),
		Index:    idx,
	})

	env.logger.Info("starting MCP server", "version", Version, "search", idx != nil)

	transport := serveTransport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	return server.Run(commandContext(cmd), transport)
}
