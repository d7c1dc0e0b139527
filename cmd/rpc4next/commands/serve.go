package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/pkg/playground"
	"github.com/watanabe-1/rpc4next-sub001/pkg/rpc4next"
)

var (
	serveAddr   string
	serveAppDir string
	serveOpen   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the route playground",
	Long: `Start an HTTP server that lists the scanned routes and resolves URLs
against them.

Endpoints:
  GET /routes          all routes in matching order
  GET /match?url=...   resolve a URL (404 when no route matches)
  GET /metrics         Prometheus metrics

Examples:
  rpc4next serve
  rpc4next serve --addr :9000 --open`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides config serve.addr)")
	serveCmd.Flags().StringVarP(&serveAppDir, "app-dir", "d", "", "App directory to scan (overrides config)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the route list in a browser")
}

func runServe(cmd *cobra.Command, args []string) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPathFlags(cfg, serveAppDir, "")
	addr := firstNonEmpty(serveAddr, cfg.Serve.Addr)

	result, err := scan(cfg)
	if err != nil {
		return err
	}
	table, err := rpc4next.NewTable(result.Entries())
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	url := "http://" + displayAddr(ln.Addr()) + "/routes"

	fmt.Printf("\n  %s Playground\n\n", cyan("rpc4next"))
	printScanIssues(result)
	fmt.Printf("  %s Loaded %d routes\n", green("✓"), table.Len())
	fmt.Printf("\n  ➜ Routes:  %s\n", cyan(url))
	fmt.Printf("  ➜ Metrics: %s\n\n", cyan("http://"+displayAddr(ln.Addr())+"/metrics"))

	if serveOpen {
		if err := browser.OpenURL(url); err != nil {
			fmt.Printf("  %s Could not open browser: %v\n\n", yellow("!"), err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := playground.NewServer(table, playground.WithLogger(newLogger()))
	if err := server.Serve(ctx, ln); err != nil {
		return err
	}

	fmt.Println("\n  Server stopped")
	return nil
}

// displayAddr renders a listen address with localhost for unspecified hosts.
func displayAddr(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
