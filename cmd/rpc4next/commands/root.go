// Package commands provides the CLI commands for rpc4next.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/internal/config"
	"github.com/watanabe-1/rpc4next-sub001/internal/version"
	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rpc4next",
	Short: "rpc4next - typed routes from a route directory tree",
	Long: `rpc4next scans a file-system route tree and generates a typed route
structure for it. The same segment grammar drives a runtime matcher that
resolves URLs to routes, parameters, query and fragment.

Directory names:
  users          static segment
  _id / [id]     dynamic segment
  ___slug        catch-all (one or more segments)
  _____slug      optional catch-all (zero or more segments)
  (group)        route group, adds no segment

Quick Start:
  rpc4next init              Create rpc4next.yaml
  rpc4next new users/[id]    Scaffold a route handler
  rpc4next generate          Generate typed routes
  rpc4next routes            List discovered routes
  rpc4next match /users/42   Resolve a URL`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			printJSONError(err)
		} else {
			printError(err)
		}
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for automation and LLM agents)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log scan diagnostics to stderr")
}

// loadConfig loads configuration for the current directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".", configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger returns the diagnostics logger selected by --verbose.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// projectName returns the last element of the module path in go.mod, or
// "" when there is none.
func projectName() string {
	name, err := scanner.GetModuleName(".")
	if err != nil {
		return ""
	}
	return path.Base(name)
}
