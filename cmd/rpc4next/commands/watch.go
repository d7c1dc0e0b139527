package commands

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/internal/config"
	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

const watchDebounce = 300 * time.Millisecond

var watchAppDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate typed routes on change",
	Long: `Generate once, then watch the app directory and regenerate whenever a
Go file or directory under it changes.

Examples:
  rpc4next watch
  rpc4next watch --app-dir src/app`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchAppDir, "app-dir", "d", "", "App directory to watch (overrides config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPathFlags(cfg, watchAppDir, "")
	appDir := cfg.Path(cfg.AppDir)

	fmt.Printf("\n  %s Watch\n\n", cyan("rpc4next"))

	var mu sync.Mutex
	regenerate := func() {
		mu.Lock()
		defer mu.Unlock()
		timestamp := time.Now().Format("15:04:05")
		result, err := generate(cfg)
		if err != nil {
			fmt.Printf("  [%s] %s route generation failed: %v\n", timestamp, red("✗"), err)
			return
		}
		printScanIssues(result.ScanResult)
		fmt.Printf("  [%s] %s %d routes, %d files written\n", timestamp, green("✓"),
			len(result.ScanResult.Routes), len(result.GeneratedFiles))
	}
	regenerate()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, appDir); err != nil {
		return err
	}
	fmt.Printf("  %s Watching %s for changes...\n\n", green("✓"), cfg.AppDir)

	// Debounce
	var debounceTimer *time.Timer

	// Signal handling
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event, cfg) {
				continue
			}

			// New directories are watched as they appear
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, event.Name)
				}
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				fmt.Printf("  [%s] %s %s changed\n", time.Now().Format("15:04:05"), yellow("→"), relDir(name))
				regenerate()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("  %s watcher error: %v\n", red("✗"), err)

		case <-signals:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Println("\n  Stopped watching")
			return nil
		}
	}
}

// watchTree adds root and every non-private directory below it.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && segment.IsPrivateFolder(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// relevantEvent reports whether event can change the generated output.
// Generated params files are ignored so a regeneration does not trigger
// another one.
func relevantEvent(event fsnotify.Event, cfg *config.Config) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if base == cfg.ParamsFile {
		return false
	}
	if filepath.Ext(base) == ".go" {
		return true
	}
	// directory creation, removal and renames reshape the tree
	return event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 && filepath.Ext(base) == ""
}
