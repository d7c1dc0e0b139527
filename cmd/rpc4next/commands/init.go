package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/internal/config"
	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
)

var initYes bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create rpc4next.yaml",
	Long: `Write an rpc4next.yaml for the current project. In a terminal the
app directory, output file and module path are prompted for; otherwise,
or with --yes, the defaults are written.

Examples:
  rpc4next init
  rpc4next init --yes`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Write defaults without prompting")
}

func runInit(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	path := configFile
	if path == "" {
		path = config.FileName
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.Default()
	if module, err := scanner.GetModuleName("."); err == nil {
		cfg.Module = module
	}

	if interactive() {
		if err := promptConfig(&cfg); err != nil {
			return err
		}
	}

	if err := config.Write(path, cfg); err != nil {
		return err
	}

	if jsonOutput {
		printSuccess(InitOutput{
			File:   path,
			AppDir: cfg.AppDir,
			Output: cfg.Output,
			Module: cfg.Module,
		})
		return nil
	}

	fmt.Printf("\n  %s Created %s\n\n", green("✓"), path)
	fmt.Printf("  Next steps:\n")
	fmt.Printf("    %s\n", cyan("rpc4next new users/[id]"))
	fmt.Printf("    %s\n\n", cyan("rpc4next generate"))
	return nil
}

// interactive reports whether init should prompt.
func interactive() bool {
	if initYes || jsonOutput {
		return false
	}
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

func promptConfig(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("App directory").
				Description("Directory holding the route tree").
				Value(&cfg.AppDir).
				Validate(notEmpty),
			huh.NewInput().
				Title("Output file").
				Description("Generated route file, outside the app directory").
				Value(&cfg.Output).
				Validate(func(s string) error {
					if err := notEmpty(s); err != nil {
						return err
					}
					if within(s, cfg.AppDir) {
						return errors.New("output must not be inside the app directory")
					}
					return nil
				}),
			huh.NewInput().
				Title("Module path").
				Description("Leave empty to read it from go.mod").
				Value(&cfg.Module),
		),
	)
	return form.Run()
}

func notEmpty(s string) error {
	if s == "" {
		return errors.New("required")
	}
	return nil
}

// within reports whether path lies inside dir.
func within(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
