// Package mcp exposes route scanning, matching and generation as Model
// Context Protocol tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/watanabe-1/rpc4next-sub001/internal/version"
)

// Server is the rpc4next MCP server for one project directory.
type Server struct {
	workdir    string
	configFile string
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server rooted at workdir.
func NewServer(workdir string) *Server {
	s := &Server{workdir: workdir}

	s.mcpServer = server.NewMCPServer(
		"rpc4next",
		version.GetVersion(),
		server.WithToolCapabilities(false),
	)
	s.registerTools()

	return s
}

// WithConfigFile sets an explicit configuration file.
func (s *Server) WithConfigFile(path string) *Server {
	s.configFile = path
	return s
}

// Serve serves MCP over stdin/stdout until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("Scan the route directory and list every route key with its HTTP methods and parameters"),
	), s.handleListRoutes)

	s.mcpServer.AddTool(mcp.NewTool("match_url",
		mcp.WithDescription("Resolve a URL against the scanned routes and return the route key, parameters, query and fragment"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL to resolve, root-relative (/users/42?tab=posts) or absolute"),
		),
	), s.handleMatchURL)

	s.mcpServer.AddTool(mcp.NewTool("generate_routes",
		mcp.WithDescription("Regenerate the typed route file and Params declarations"),
	), s.handleGenerateRoutes)

	s.mcpServer.AddTool(mcp.NewTool("scaffold_route",
		mcp.WithDescription("Create a route.go with handler stubs. Bracket segments ([id], [...slug], [[...slug]]) are written as marker directories"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Route path relative to the app directory (e.g., users/[id])"),
		),
		mcp.WithString("methods",
			mcp.Description("Comma-separated HTTP methods (default: GET)"),
		),
		mcp.WithBoolean("query",
			mcp.Description("Declare a Query type for the route"),
		),
	), s.handleScaffoldRoute)

	s.mcpServer.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Check the project layout and report invalid routes, conflicts and warnings"),
	), s.handleValidate)
}
