package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/watanabe-1/rpc4next-sub001/internal/config"
	"github.com/watanabe-1/rpc4next-sub001/internal/version"
	"github.com/watanabe-1/rpc4next-sub001/pkg/generator"
	"github.com/watanabe-1/rpc4next-sub001/pkg/rpc4next"
	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
)

func (s *Server) loadConfig() (*config.Config, error) {
	return config.Load(s.workdir, s.configFile)
}

// scan scans the configured app directory without requiring go.mod.
func (s *Server) scan() (*scanner.Result, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	sc := scanner.NewScanner(cfg.Path(cfg.AppDir), scanner.WithParamsFile(cfg.ParamsFile))
	return sc.Scan(cfg.Path(cfg.Output))
}

func (s *Server) handleListRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.scan()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scan routes: %v", err)), nil
	}

	routes := result.Routes
	if routes == nil {
		routes = []scanner.Route{}
	}
	return jsonResult(map[string]any{
		"routes":    routes,
		"total":     len(routes),
		"warnings":  result.Warnings,
		"conflicts": result.Conflicts,
	})
}

func (s *Server) handleMatchURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := req.GetString("url", "")
	if rawURL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	result, err := s.scan()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scan routes: %v", err)), nil
	}

	table, err := rpc4next.NewTable(result.Entries())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build route table: %v", err)), nil
	}

	match, ok, err := table.Resolve(rawURL)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("malformed URL: %v", err)), nil
	}
	if !ok {
		return jsonResult(map[string]any{"matched": false, "url": rawURL})
	}

	return jsonResult(map[string]any{
		"matched": true,
		"url":     rawURL,
		"route":   match.Entry,
		"params":  match.Params,
		"query":   match.Query,
		"hash":    match.Hash,
	})
}

func (s *Server) handleGenerateRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load config: %v", err)), nil
	}
	gc, err := cfg.GeneratorConfig(nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	gen, err := scanner.NewGenerator(gc).Generate()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"success":   true,
		"routes":    len(gen.ScanResult.Routes),
		"generated": relPaths(s.workdir, gen.GeneratedFiles),
		"unchanged": relPaths(s.workdir, gen.UnchangedFiles),
		"warnings":  gen.ScanResult.Warnings,
		"conflicts": gen.ScanResult.Conflicts,
	})
}

func (s *Server) handleScaffoldRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load config: %v", err)), nil
	}

	var methods []string
	if m := req.GetString("methods", ""); m != "" {
		methods = strings.Split(m, ",")
	}

	result, err := generator.GenerateRoute(generator.RouteConfig{
		Path:      path,
		Methods:   methods,
		AppDir:    cfg.Path(cfg.AppDir),
		WithQuery: req.GetBool("query", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to scaffold route: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"success": true,
		"key":     result.Key,
		"files":   relPaths(s.workdir, result.Files),
	})
}

func (s *Server) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues := []string{}
	var warnings []string

	cfg, err := s.loadConfig()
	if err != nil {
		issues = append(issues, err.Error())
		return jsonResult(map[string]any{"valid": false, "issues": issues})
	}

	if _, err := os.Stat(filepath.Join(s.workdir, "go.mod")); os.IsNotExist(err) {
		issues = append(issues, "go.mod not found")
	}

	appDir := cfg.Path(cfg.AppDir)
	if _, err := os.Stat(appDir); os.IsNotExist(err) {
		issues = append(issues, cfg.AppDir+"/ directory not found")
	} else {
		result, err := s.scan()
		switch {
		case errors.Is(err, scanner.ErrInvalidRoute):
			issues = append(issues, err.Error())
		case err != nil:
			issues = append(issues, fmt.Sprintf("scan failed: %v", err))
		default:
			for _, c := range result.Conflicts {
				issues = append(issues, fmt.Sprintf("%s: %s and %s", c.Message, c.Dir1, c.Dir2))
			}
			for _, w := range result.Warnings {
				warnings = append(warnings, fmt.Sprintf("%s: %s", w.FilePath, w.Message))
			}
			files := []string{cfg.Path(cfg.Output)}
			for _, decl := range result.Params {
				files = append(files, filepath.Join(decl.Dir, cfg.ParamsFile))
			}
			for _, file := range relPaths(s.workdir, staleFiles(files)) {
				issues = append(issues, fmt.Sprintf("%s was generated with another schema version; run generate", file))
			}
		}
	}

	return jsonResult(map[string]any{
		"valid":    len(issues) == 0,
		"issues":   issues,
		"warnings": warnings,
	})
}

// staleFiles returns the files that exist and carry a generated header
// from another schema version.
func staleFiles(files []string) []string {
	var stale []string
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		if version.IsStale(src) {
			stale = append(stale, file)
		}
	}
	return stale
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func relPaths(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(base, p); err == nil {
			p = rel
		}
		out = append(out, filepath.ToSlash(p))
	}
	return out
}
