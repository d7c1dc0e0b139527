package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/pkg/openapi"
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Generate an OpenAPI specification",
	Long: `Generate an OpenAPI 3.1 specification from the scanned routes.

Dynamic segments become {name} path parameters and catch-alls become
array parameters. An optional catch-all produces two paths: the bare
prefix and the prefix with the parameter. Query parameters are read from
each route's Query type and summaries from handler doc comments.

Examples:
  rpc4next openapi
  rpc4next openapi --output api.yaml --format yaml
  rpc4next openapi --title "My API" --version 2.0.0
  rpc4next openapi --openapi30`,
	RunE: runOpenAPI,
}

// Flags
var (
	openapiOutput    string
	openapiFormat    string
	openapiTitle     string
	openapiVersion   string
	openapiAppDir    string
	openapiOpenAPI30 bool
	openapiDesc      string
	openapiServerURL string
)

func init() {
	rootCmd.AddCommand(openapiCmd)

	openapiCmd.Flags().StringVarP(&openapiOutput, "output", "o", "openapi.json", "Output file path (- for stdout)")
	openapiCmd.Flags().StringVarP(&openapiFormat, "format", "f", "json", "Output format (json|yaml)")
	openapiCmd.Flags().StringVar(&openapiTitle, "title", "", "API title (defaults to config, then project name)")
	openapiCmd.Flags().StringVar(&openapiVersion, "version", "", "API version (default: 1.0.0)")
	openapiCmd.Flags().StringVar(&openapiDesc, "description", "", "API description")
	openapiCmd.Flags().StringVar(&openapiServerURL, "server", "", "Server URL (e.g., http://localhost:3000)")
	openapiCmd.Flags().StringVarP(&openapiAppDir, "app-dir", "d", "", "App directory to scan (overrides config)")
	openapiCmd.Flags().BoolVar(&openapiOpenAPI30, "openapi30", false, "Use OpenAPI 3.0.3 instead of 3.1.0")
}

func runOpenAPI(cmd *cobra.Command, args []string) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPathFlags(cfg, openapiAppDir, "")

	toStdout := openapiOutput == "-"
	if !jsonOutput && !toStdout {
		fmt.Printf("\n  %s OpenAPI Generator\n\n", cyan("rpc4next"))
		fmt.Printf("  → Scanning routes...\n")
	}

	result, err := scan(cfg)
	if err != nil {
		return err
	}

	gen := openapi.NewGenerator(openapiConfig(cfg.OpenAPI.Title, cfg.OpenAPI.Version, cfg.OpenAPI.Description))

	if toStdout {
		data, err := gen.Render(result, openapiFormat)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := gen.WriteToFile(result, openapiOutput, openapiFormat); err != nil {
		return fmt.Errorf("failed to generate spec: %w", err)
	}

	if jsonOutput {
		printSuccess(map[string]any{
			"file":   openapiOutput,
			"format": openapiFormat,
			"routes": len(result.Routes),
		})
		return nil
	}

	fmt.Printf("  %s Found %d routes\n", green("✓"), len(result.Routes))
	fmt.Printf("  %s Spec generated\n\n", green("✓"))
	fmt.Printf("  Output:  %s\n", green(openapiOutput))
	fmt.Printf("  Format:  %s\n\n", openapiFormat)
	return nil
}

// openapiConfig merges flags over configured values. Flags win.
func openapiConfig(title, version, description string) openapi.Config {
	config := openapi.Config{
		Title:       firstNonEmpty(openapiTitle, title, projectName()),
		Version:     firstNonEmpty(openapiVersion, version),
		Description: firstNonEmpty(openapiDesc, description),
	}
	if openapiOpenAPI30 {
		config.OpenAPIVersion = "3.0.3"
	}
	if openapiServerURL != "" {
		config.Servers = []openapi.Server{{URL: openapiServerURL}}
	}
	return config
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
