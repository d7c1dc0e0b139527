// Package generator scaffolds route handler files for rpc4next projects.
package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// RouteConfig holds configuration for route generation.
type RouteConfig struct {
	Path      string   // Route path (e.g., "users/[id]" or "users/_id")
	Methods   []string // HTTP methods (e.g., ["GET", "PUT", "DELETE"])
	AppDir    string   // App directory (default: "app")
	WithQuery bool     // Declare an empty Query type
}

// Result holds the result of a generation operation.
type Result struct {
	Files []string `json:"files"`
	Key   string   `json:"key"`
}

// handler is one generated method function.
type handler struct {
	Symbol string
	Method string
}

// GenerateRoute writes a route.go declaring one handler per method.
// Bracket segments are written as marker directories so the generated
// package stays importable: "users/[id]" becomes app/users/_id.
func GenerateRoute(cfg RouteConfig) (*Result, error) {
	if cfg.AppDir == "" {
		cfg.AppDir = "app"
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{"GET"}
	}

	dirs, chain, err := parsePath(cfg.Path)
	if err != nil {
		return nil, err
	}

	handlers, err := methodHandlers(cfg.Methods)
	if err != nil {
		return nil, err
	}

	dirPath := filepath.Join(append([]string{cfg.AppDir}, dirs...)...)
	filePath := filepath.Join(dirPath, scanner.HandlerFile)

	// Check if file exists
	if _, err := os.Stat(filePath); err == nil {
		return nil, fmt.Errorf("file already exists: %s", filePath)
	}

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	pkgName := "app"
	if len(chain) > 0 {
		pkgName = scanner.MakePackageName(chain[len(chain)-1])
	}

	key := segment.Join(chain)
	data := routeTemplateData{
		Package:   pkgName,
		Key:       key,
		Handlers:  handlers,
		WithQuery: cfg.WithQuery,
		Params:    segment.Params(chain),
	}
	if err := executeTemplate(filePath, routeTemplate, data); err != nil {
		return nil, err
	}

	return &Result{
		Files: []string{filePath},
		Key:   key,
	}, nil
}

// parsePath splits a route path into directory names and the segment
// chain they form. Route groups are kept as directories but add no
// segment; private folders are rejected.
func parsePath(p string) ([]string, []segment.Segment, error) {
	var dirs []string
	var chain []segment.Segment

	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part == "" {
			continue
		}
		key, kind := segment.FromDirName(part)
		switch kind {
		case segment.DirPrivate:
			return nil, nil, fmt.Errorf("%w: %s is a private folder and is never scanned", scanner.ErrInvalidRoute, part)
		case segment.DirGroup:
			dirs = append(dirs, part)
			continue
		}
		dirs = append(dirs, key)
		chain = append(chain, segment.Classify(key))
	}

	if err := segment.Validate(chain); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", scanner.ErrInvalidRoute, p, err)
	}
	return dirs, chain, nil
}

// methodHandlers maps HTTP methods to handler symbols in emission order.
func methodHandlers(methods []string) ([]handler, error) {
	wanted := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if !slices.Contains(wanted, m) {
			wanted = append(wanted, m)
		}
	}

	var handlers []handler
	for _, sym := range scanner.MethodSymbols {
		method := scanner.HTTPMethods[sym]
		if i := slices.Index(wanted, method); i >= 0 {
			handlers = append(handlers, handler{Symbol: sym, Method: method})
			wanted = slices.Delete(wanted, i, i+1)
		}
	}
	if len(wanted) > 0 {
		return nil, fmt.Errorf("unsupported HTTP method: %s", strings.Join(wanted, ", "))
	}
	return handlers, nil
}

func executeTemplate(filePath, tmplContent string, data any) error {
	tmpl, err := template.New(filepath.Base(filePath)).Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to format %s: %w", filePath, err)
	}

	return os.WriteFile(filePath, src, 0644)
}
