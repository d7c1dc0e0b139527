package commands

import (
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/pkg/mcp"
)

var mcpWorkdir string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the
list_routes, match_url, generate_routes, scaffold_route and validate
tools for the project in the working directory.

Examples:
  rpc4next mcp
  rpc4next mcp --workdir ./site`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.NewServer(mcpWorkdir).WithConfigFile(configFile).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVarP(&mcpWorkdir, "workdir", "w", ".", "Project directory")
}
