package scanner

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"sort"
	"strconv"
)

// ExportForm is the way a symbol is exported from a Go file.
type ExportForm int

const (
	// DirectExport is a func or type declaration (func Get(...), type Query struct{...})
	DirectExport ExportForm = iota
	// AssignedExport is a single var or const (var Get = handler)
	AssignedExport
	// DestructuredExport is one name of a multi-name spec (var Get, Post = h.Get, h.Post)
	DestructuredExport
	// ReExport forwards a symbol of an imported package (var Get = users.Get, type Query = users.Query)
	ReExport
)

// String returns the form name.
func (f ExportForm) String() string {
	switch f {
	case DirectExport:
		return "direct"
	case AssignedExport:
		return "assigned"
	case DestructuredExport:
		return "destructured"
	case ReExport:
		return "re-export"
	}
	return "unknown"
}

// Exports is the exported symbol set of one Go file.
type Exports struct {
	// Package is the file's package name
	Package string
	symbols map[string]ExportForm
}

// Lookup reports whether symbol is exported and under which form.
func (e *Exports) Lookup(symbol string) (ExportForm, bool) {
	form, ok := e.symbols[symbol]
	return form, ok
}

// Names returns the exported names in sorted order.
func (e *Exports) Names() []string {
	names := make([]string, 0, len(e.symbols))
	for name := range e.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Inspector answers export questions about Go source files. Parsed files
// are cached, so an Inspector belongs to a single scan.
type Inspector struct {
	fset  *token.FileSet
	files map[string]*Exports
}

// NewInspector creates an empty Inspector.
func NewInspector() *Inspector {
	return &Inspector{
		fset:  token.NewFileSet(),
		files: make(map[string]*Exports),
	}
}

// Parse returns the exports of the file at filePath.
func (in *Inspector) Parse(filePath string) (*Exports, error) {
	return in.ParseSource(filePath, nil)
}

// ParseSource returns the exports of src, or of the file at filename when
// src is nil.
func (in *Inspector) ParseSource(filename string, src []byte) (*Exports, error) {
	if src == nil {
		if exports, ok := in.files[filename]; ok {
			return exports, nil
		}
	}

	// ParseFile only opens filename for an untyped nil source
	var source any
	if src != nil {
		source = src
	}

	file, err := parser.ParseFile(in.fset, filename, source, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	exports := collectExports(file)
	if src == nil {
		in.files[filename] = exports
	}
	return exports, nil
}

// Lookup reports whether the file at filePath exports symbol.
func (in *Inspector) Lookup(filePath, symbol string) (ExportForm, bool, error) {
	exports, err := in.Parse(filePath)
	if err != nil {
		return 0, false, err
	}
	form, ok := exports.Lookup(symbol)
	return form, ok, nil
}

// PackageName returns the package clause of the file at filePath.
func (in *Inspector) PackageName(filePath string) (string, error) {
	if exports, ok := in.files[filePath]; ok {
		return exports.Package, nil
	}
	file, err := parser.ParseFile(in.fset, filePath, nil, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("failed to parse: %w", err)
	}
	return file.Name.Name, nil
}

func collectExports(file *ast.File) *Exports {
	exports := &Exports{
		Package: file.Name.Name,
		symbols: make(map[string]ExportForm),
	}
	imports := importNames(file)

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.IsExported() {
				exports.symbols[d.Name.Name] = DirectExport
			}

		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if !s.Name.IsExported() {
						continue
					}
					form := DirectExport
					if s.Assign.IsValid() && isPackageSelector(s.Type, imports) {
						form = ReExport
					}
					exports.symbols[s.Name.Name] = form

				case *ast.ValueSpec:
					for i, name := range s.Names {
						if !name.IsExported() {
							continue
						}
						exports.symbols[name.Name] = valueForm(s, i, imports)
					}
				}
			}
		}
	}

	return exports
}

func valueForm(s *ast.ValueSpec, i int, imports map[string]bool) ExportForm {
	if len(s.Names) > 1 {
		return DestructuredExport
	}
	if i < len(s.Values) && isPackageSelector(s.Values[i], imports) {
		return ReExport
	}
	return AssignedExport
}

// isPackageSelector reports whether expr is pkg.Name for an imported pkg.
func isPackageSelector(expr ast.Expr, imports map[string]bool) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && imports[ident.Name]
}

// importNames returns the local names the file's imports are bound to.
func importNames(file *ast.File) map[string]bool {
	names := make(map[string]bool, len(file.Imports))
	for _, imp := range file.Imports {
		if imp.Name != nil {
			names[imp.Name.Name] = true
			continue
		}
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		names[path.Base(p)] = true
	}
	return names
}
