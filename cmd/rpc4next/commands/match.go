package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/watanabe-1/rpc4next-sub001/pkg/matcher"
	"github.com/watanabe-1/rpc4next-sub001/pkg/rpc4next"
)

var (
	matchAppDir string
	matchKeys   []string
)

var matchCmd = &cobra.Command{
	Use:   "match <url>...",
	Short: "Resolve URLs to routes",
	Long: `Resolve one or more URLs against the scanned routes and print the
matched route key, parameters, query and fragment.

With --key the URLs are matched against the given route keys instead of
the scanned tree; each key is compiled once.

Examples:
  rpc4next match /users/42
  rpc4next match "/docs/a/b?tab=api#intro" /docs
  rpc4next match --key /users/_id --key /files/___path /users/7 /files/a/b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVarP(&matchAppDir, "app-dir", "d", "", "App directory to scan (overrides config)")
	matchCmd.Flags().StringArrayVarP(&matchKeys, "key", "k", nil, "Route key to match against instead of scanning (repeatable)")
}

func runMatch(cmd *cobra.Command, args []string) error {
	var results []MatchOutput
	var err error
	if len(matchKeys) > 0 {
		results, err = matchKeyList(matchKeys, args)
	} else {
		results, err = matchScanned(args)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		printSuccess(results)
		return nil
	}

	printMatches(results)
	return nil
}

// matchScanned resolves urls against the scanned route table.
func matchScanned(urls []string) ([]MatchOutput, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	applyPathFlags(cfg, matchAppDir, "")

	result, err := scan(cfg)
	if err != nil {
		return nil, err
	}
	table, err := rpc4next.NewTable(result.Entries())
	if err != nil {
		return nil, err
	}

	outputs := make([]MatchOutput, 0, len(urls))
	for _, u := range urls {
		out := MatchOutput{URL: u}
		match, ok, err := table.Resolve(u)
		switch {
		case err != nil:
			out.Error = err.Error()
		case ok:
			setMatch(&out, match.Key, match.Methods, match.Result)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// matchKeyList resolves urls against explicit route keys, first key wins.
func matchKeyList(keys, urls []string) ([]MatchOutput, error) {
	cache, err := matcher.NewCache(len(keys))
	if err != nil {
		return nil, err
	}

	outputs := make([]MatchOutput, 0, len(urls))
	for _, u := range urls {
		out := MatchOutput{URL: u}
		for _, key := range keys {
			p, err := cache.Pattern(key)
			if err != nil {
				return nil, fmt.Errorf("invalid route key %s: %w", key, err)
			}
			result, ok, err := p.Match(u)
			if err != nil {
				out.Error = err.Error()
				break
			}
			if ok {
				setMatch(&out, key, nil, result)
				break
			}
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func setMatch(out *MatchOutput, key string, methods []string, result *matcher.Result) {
	out.Matched = true
	out.Key = key
	out.Methods = methods
	out.Params = result.Params
	out.Query = result.Query
	out.Hash = result.Hash
}

func printMatches(results []MatchOutput) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Println()
	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Printf("  %s %s %s\n", red("✗"), r.URL, dim(r.Error))
			continue
		case !r.Matched:
			fmt.Printf("  %s %s %s\n", yellow("-"), r.URL, dim("no route"))
			continue
		}

		fmt.Printf("  %s %s → %s", green("✓"), r.URL, cyan(r.Key))
		if len(r.Methods) > 0 {
			fmt.Printf(" %s", dim(strings.Join(r.Methods, ",")))
		}
		fmt.Println()
		for _, name := range sortedKeys(r.Params) {
			fmt.Printf("      %s = %s\n", name, formatParam(r.Params[name]))
		}
		for _, name := range sortedKeys(r.Query) {
			fmt.Printf("      ?%s = %s\n", name, strings.Join(r.Query[name].All(), ", "))
		}
		if r.Hash != nil {
			fmt.Printf("      #%s\n", *r.Hash)
		}
	}
	fmt.Println()
}

func formatParam(p matcher.Param) string {
	switch p.Kind {
	case matcher.ParamAbsent:
		return "(absent)"
	case matcher.ParamList:
		return "[" + strings.Join(p.Values, ", ") + "]"
	}
	return p.Value
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
