package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/pkg/generator"
)

var (
	newMethods []string
	newQuery   bool
	newAppDir  string
)

var newCmd = &cobra.Command{
	Use:   "new <path>",
	Short: "Scaffold a route handler",
	Long: `Create a route.go with one handler per method under the app directory.

Bracket segments are written as marker directories so the handler
package stays importable:
  [id]          → _id
  [...slug]     → ___slug
  [[...slug]]   → _____slug

Examples:
  rpc4next new users --methods GET,POST --query
  rpc4next new users/[id] --methods GET,PUT,DELETE
  rpc4next new "(marketing)/docs/[[...slug]]"`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringSliceVarP(&newMethods, "methods", "m", []string{"GET"}, "HTTP methods")
	newCmd.Flags().BoolVarP(&newQuery, "query", "q", false, "Declare a Query type")
	newCmd.Flags().StringVarP(&newAppDir, "app-dir", "d", "", "App directory (overrides config)")
}

func runNew(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPathFlags(cfg, newAppDir, "")

	result, err := generator.GenerateRoute(generator.RouteConfig{
		Path:      args[0],
		Methods:   newMethods,
		AppDir:    cfg.Path(cfg.AppDir),
		WithQuery: newQuery,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		printSuccess(result)
		return nil
	}

	fmt.Printf("\n  %s Created route %s\n", green("✓"), cyan(result.Key))
	for _, f := range result.Files {
		fmt.Printf("    %s\n", dim(relDir(f)))
	}
	fmt.Printf("\n  Run %s to update the typed routes.\n\n", cyan("rpc4next generate"))
	return nil
}
