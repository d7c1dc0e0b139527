package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/watanabe-1/rpc4next-sub001/pkg/matcher"
	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
)

// jsonOutput is the global flag for JSON output mode
var jsonOutput bool

// JSONResponse is the standard response wrapper for JSON output
type JSONResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GenerateOutput represents the JSON output for the generate command
type GenerateOutput struct {
	Generated []string           `json:"generated"`
	Unchanged []string           `json:"unchanged"`
	Routes    int                `json:"routes"`
	Warnings  []scanner.Warning  `json:"warnings,omitempty"`
	Conflicts []scanner.Conflict `json:"conflicts,omitempty"`
}

// RoutesOutput represents the JSON output for the routes command
type RoutesOutput struct {
	Routes      []RouteOutput      `json:"routes"`
	TotalRoutes int                `json:"total_routes"`
	Warnings    []scanner.Warning  `json:"warnings,omitempty"`
	Conflicts   []scanner.Conflict `json:"conflicts,omitempty"`
}

// RouteOutput represents a single route in JSON output
type RouteOutput struct {
	Key      string   `json:"key"`
	Methods  []string `json:"methods"`
	Query    bool     `json:"query,omitempty"`
	Params   []string `json:"params,omitempty"`
	Dir      string   `json:"dir"`
	Priority int      `json:"priority"`
}

// MatchOutput represents one resolved URL in JSON output
type MatchOutput struct {
	URL     string                   `json:"url"`
	Matched bool                     `json:"matched"`
	Key     string                   `json:"key,omitempty"`
	Methods []string                 `json:"methods,omitempty"`
	Params  map[string]matcher.Param `json:"params,omitempty"`
	Query   matcher.Query            `json:"query,omitempty"`
	Hash    *string                  `json:"hash,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// InitOutput represents the JSON output for the init command
type InitOutput struct {
	File   string `json:"file"`
	AppDir string `json:"app_dir"`
	Output string `json:"output"`
	Module string `json:"module,omitempty"`
}

// printJSON outputs data as formatted JSON to stdout
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

// printSuccess outputs a successful JSON response
func printSuccess(data any) {
	printJSON(JSONResponse{Success: true, Data: data})
}

// printJSONError outputs an error as JSON
func printJSONError(err error) {
	printJSON(JSONResponse{Success: false, Error: err.Error()})
}

// printError outputs an error for humans
func printError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(os.Stderr, "\n  %s %v\n\n", red("Error:"), err)
}

// printScanIssues prints scan warnings and conflicts
func printScanIssues(result *scanner.Result) {
	yellow := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, w := range result.Warnings {
		fmt.Printf("  %s %s %s\n", yellow("!"), w.Message, dim(w.FilePath))
	}
	for _, c := range result.Conflicts {
		fmt.Printf("  %s %s\n", yellow("!"), c.Message)
		fmt.Printf("    %s %s\n", dim("using:  "), c.Dir1)
		fmt.Printf("    %s %s\n", dim("ignored:"), c.Dir2)
	}
}
