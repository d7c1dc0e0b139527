package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/pkg/rpc4next"
	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
)

var routesAppDir string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List all discovered routes",
	Long: `Scan the app directory and list every route with its methods and
parameters, in matching priority order.

Examples:
  rpc4next routes
  rpc4next routes --json`,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringVarP(&routesAppDir, "app-dir", "d", "", "App directory to scan (overrides config)")
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPathFlags(cfg, routesAppDir, "")

	result, err := scan(cfg)
	if err != nil {
		return err
	}

	routes, err := routeOutputs(result)
	if err != nil {
		return err
	}

	if jsonOutput {
		printSuccess(RoutesOutput{
			Routes:      routes,
			TotalRoutes: len(routes),
			Warnings:    result.Warnings,
			Conflicts:   result.Conflicts,
		})
		return nil
	}

	fmt.Printf("\n  %s Routes\n\n", cyan("rpc4next"))
	printScanIssues(result)

	if len(routes) == 0 {
		fmt.Printf("  %s No routes found in %s\n\n", yellow("!"), cfg.AppDir)
		return nil
	}

	width := 0
	for _, r := range routes {
		width = max(width, len(r.Key))
	}
	for _, r := range routes {
		methods := strings.Join(r.Methods, ",")
		if r.Query {
			methods += " +query"
		}
		fmt.Printf("  %-*s  %s  %s\n", width, r.Key, green(methods), dim(r.Dir))
	}
	fmt.Printf("\n  %d routes\n\n", len(routes))
	return nil
}

// routeOutputs lists the scanned routes in table priority order.
func routeOutputs(result *scanner.Result) ([]RouteOutput, error) {
	table, err := rpc4next.NewTable(result.Entries())
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]scanner.Route, len(result.Routes))
	for _, r := range result.Routes {
		byKey[r.Key] = r
	}

	routes := make([]RouteOutput, 0, table.Len())
	for _, tr := range table.Routes() {
		r := byKey[tr.Key]
		out := RouteOutput{
			Key:      r.Key,
			Methods:  r.Methods,
			Query:    r.HasQuery,
			Dir:      relDir(r.Dir),
			Priority: tr.Priority,
		}
		for _, p := range r.Params {
			out.Params = append(out.Params, p.Name)
		}
		routes = append(routes, out)
	}
	return routes, nil
}
