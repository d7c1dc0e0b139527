package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/watanabe-1/rpc4next-sub001/pkg/alias"
	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// DefaultParamsFile is the file name the generator writes Params into.
const DefaultParamsFile = "params_gen.go"

// Scanner scans a route directory tree.
type Scanner struct {
	rootDir    string
	paramsFile string
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithParamsFile sets the generated params file name. Files with this
// name are ignored when detecting a directory's package name.
func WithParamsFile(name string) Option {
	return func(s *Scanner) {
		if name != "" {
			s.paramsFile = name
		}
	}
}

// NewScanner creates a new Scanner for the given root directory.
func NewScanner(rootDir string, opts ...Option) *Scanner {
	s := &Scanner{
		rootDir:    rootDir,
		paramsFile: DefaultParamsFile,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RootDir returns the scanned root directory.
func (s *Scanner) RootDir() string {
	return s.rootDir
}

// scanState is the per-scan state threaded through the walk. It is never
// shared between scans.
type scanState struct {
	table     *alias.Table
	inspector *Inspector
	outDir    string
	result    *Result
	// handlerDirs maps key paths to the directory that bound handlers first
	handlerDirs map[string]string
}

// Scan walks the root directory. outputFile is the file the generated code
// will be written to; it is only used to compute relative binding paths.
func (s *Scanner) Scan(outputFile string) (*Result, error) {
	outDir, err := filepath.Abs(filepath.Dir(outputFile))
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}

	st := &scanState{
		table:       alias.NewTable(),
		inspector:   NewInspector(),
		outDir:      outDir,
		result:      &Result{Output: outputFile},
		handlerDirs: make(map[string]string),
	}

	root := newNode("", s.rootDir, nil)
	if err := s.scanDir(st, root, s.rootDir, nil); err != nil {
		return nil, err
	}

	result := st.result
	result.Tree = root
	result.Imports = st.table.Bindings()
	root.Walk(func(n *RouteNode) {
		if !n.HasHandlers() {
			return
		}
		route := Route{
			Key:      n.KeyPath(),
			Dir:      n.Dir,
			Methods:  n.SortedMethods(),
			HasQuery: n.Query != nil,
		}
		if n.Params != nil {
			route.Params = n.Params.Fields
		}
		result.Routes = append(result.Routes, route)
	})

	s.logger.Debug("scan complete",
		"root", s.rootDir,
		"routes", len(result.Routes),
		"imports", len(result.Imports),
		"warnings", len(result.Warnings))

	return result, nil
}

// scanDir scans one directory into node. Route group directories are
// scanned into their parent's node with the parent's chain.
func (s *Scanner) scanDir(st *scanState, node *RouteNode, dir string, chain []segment.Segment) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", dir, err)
	}

	var subdirs []string
	var goFiles []string
	hasHandlerFile := false
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			subdirs = append(subdirs, name)
		case name == HandlerFile:
			hasHandlerFile = true
		case isPackageFile(name, s.paramsFile):
			goFiles = append(goFiles, name)
		}
	}

	if hasHandlerFile {
		s.bindHandlers(st, node, dir)
	}

	if len(segment.Params(chain)) > 0 {
		pkg := s.packageName(st, dir, hasHandlerFile, goFiles, chain[len(chain)-1])
		decl := newParamsDecl(dir, pkg, chain)
		st.result.Params = append(st.result.Params, *decl)
		if node.Params == nil {
			node.Params = decl
		}
	}

	sortNatural(subdirs)
	for _, name := range subdirs {
		sub := filepath.Join(dir, name)
		key, kind := segment.FromDirName(name)

		switch kind {
		case segment.DirPrivate:
			s.logger.Debug("skipping private folder", "dir", sub)
			continue
		case segment.DirGroup:
			if err := s.scanDir(st, node, sub, chain); err != nil {
				return err
			}
			continue
		}

		seg := segment.Classify(key)
		childChain := make([]segment.Segment, len(chain), len(chain)+1)
		copy(childChain, chain)
		childChain = append(childChain, seg)

		if err := segment.Validate(childChain); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidRoute, sub, err)
		}

		child, ok := node.Children[key]
		if !ok {
			child = newNode(key, sub, childChain)
			node.Children[key] = child
		}
		if err := s.scanDir(st, child, sub, childChain); err != nil {
			return err
		}
	}

	return nil
}

// bindHandlers records the method and query exports of dir's handler file.
func (s *Scanner) bindHandlers(st *scanState, node *RouteNode, dir string) {
	file := filepath.Join(dir, HandlerFile)
	key := node.KeyPath()

	if existing, ok := st.handlerDirs[key]; ok {
		st.result.Conflicts = append(st.result.Conflicts, Conflict{
			Key:     key,
			Dir1:    existing,
			Dir2:    dir,
			Message: fmt.Sprintf("Duplicate handlers for %s", key),
		})
		return
	}

	exports, err := st.inspector.Parse(file)
	if err != nil {
		st.result.Warnings = append(st.result.Warnings, Warning{
			FilePath: file,
			Message:  err.Error(),
		})
		return
	}

	bindingPath, err := st.bindingPath(dir)
	if err != nil {
		st.result.Warnings = append(st.result.Warnings, Warning{
			FilePath: file,
			Message:  err.Error(),
		})
		return
	}

	found := false
	for _, sym := range MethodSymbols {
		if _, ok := exports.Lookup(sym); !ok {
			continue
		}
		method := HTTPMethods[sym]
		node.Methods[method] = st.table.Bind(bindingPath, sym)
		found = true
		s.logger.Debug("found handler", "method", method, "key", key, "file", file)
	}

	if _, ok := exports.Lookup(QuerySymbol); ok {
		b := st.table.Bind(bindingPath, QuerySymbol)
		node.Query = &b
		found = true
		s.logger.Debug("found query type", "key", key, "file", file)
	}

	if found {
		node.Dir = dir
		node.Package = exports.Package
		st.handlerDirs[key] = dir
	}
}

// bindingPath returns dir relative to the output directory with forward
// slashes, the declaration site handler aliases are keyed on.
func (st *scanState) bindingPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(st.outDir, abs)
	if err != nil {
		return "", fmt.Errorf("relative path from %s: %w", st.outDir, err)
	}
	return filepath.ToSlash(rel), nil
}

// packageName returns the Go package name for dir: the handler file's
// package, else the first other Go file's, else one derived from the
// directory's segment.
func (s *Scanner) packageName(st *scanState, dir string, hasHandlerFile bool, goFiles []string, seg segment.Segment) string {
	candidates := goFiles
	if hasHandlerFile {
		candidates = append([]string{HandlerFile}, goFiles...)
	}
	for _, name := range candidates {
		pkg, err := st.inspector.PackageName(filepath.Join(dir, name))
		if err == nil {
			return pkg
		}
	}
	return MakePackageName(seg)
}

func isPackageFile(name, paramsFile string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		name != paramsFile
}
