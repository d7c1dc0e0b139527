package scanner

import (
	"bytes"
	"fmt"
	"go/format"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/watanabe-1/rpc4next-sub001/internal/version"
	"github.com/watanabe-1/rpc4next-sub001/pkg/alias"
)

// RuntimeImportPath is the package generated code refers to for Method and
// Entry.
const RuntimeImportPath = "github.com/watanabe-1/rpc4next-sub001/pkg/rpc4next"

// GeneratorConfig holds configuration for code generation.
type GeneratorConfig struct {
	// ModuleName is the Go module path (from go.mod)
	ModuleName string
	// ModuleRoot is the directory holding go.mod (default: ".")
	ModuleRoot string
	// AppDir is the route directory (default: "app")
	AppDir string
	// Output is the generated route file (default: "rpc/paths_gen.go")
	Output string
	// Package is the output package name (default: derived from Output's directory)
	Package string
	// ParamsFile is the per-directory params file name (default: "params_gen.go")
	ParamsFile string
	// Logger receives scan and write diagnostics
	Logger *slog.Logger
}

// Generator generates Go code from scan results.
type Generator struct {
	config GeneratorConfig
}

// NewGenerator creates a new Generator with the given config.
func NewGenerator(config GeneratorConfig) *Generator {
	if config.ModuleRoot == "" {
		config.ModuleRoot = "."
	}
	if config.AppDir == "" {
		config.AppDir = "app"
	}
	if config.Output == "" {
		config.Output = filepath.Join("rpc", "paths_gen.go")
	}
	if config.ParamsFile == "" {
		config.ParamsFile = DefaultParamsFile
	}
	if config.Package == "" {
		config.Package = sanitizePackageName(filepath.Base(filepath.Dir(config.Output)))
		if config.Package == "" {
			config.Package = "rpc"
		}
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{config: config}
}

// Config returns the effective configuration.
func (g *Generator) Config() GeneratorConfig {
	return g.config
}

// GenerateResult holds the result of code generation.
type GenerateResult struct {
	// ScanResult is the scan results used for generation
	ScanResult *Result
	// GeneratedFiles are the files written by this run
	GeneratedFiles []string
	// UnchangedFiles already had the generated content
	UnchangedFiles []string
}

// File is one rendered output file.
type File struct {
	Path    string
	Content []byte
}

// Scan scans the configured app directory.
func (g *Generator) Scan() (*Result, error) {
	s := NewScanner(g.config.AppDir,
		WithLogger(g.config.Logger),
		WithParamsFile(g.config.ParamsFile),
	)
	result, err := s.Scan(g.config.Output)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return result, nil
}

// Generate scans the app directory and writes the route file and every
// params file. Files whose content is already current are not rewritten.
func (g *Generator) Generate() (*GenerateResult, error) {
	scanResult, err := g.Scan()
	if err != nil {
		return nil, err
	}

	files, err := g.Render(scanResult)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{ScanResult: scanResult}
	for _, f := range files {
		written, err := writeIfChanged(f)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		if written {
			result.GeneratedFiles = append(result.GeneratedFiles, f.Path)
			g.config.Logger.Info("generated", "file", f.Path)
		} else {
			result.UnchangedFiles = append(result.UnchangedFiles, f.Path)
		}
	}
	return result, nil
}

func writeIfChanged(f File) (bool, error) {
	if existing, err := os.ReadFile(f.Path); err == nil && bytes.Equal(existing, f.Content) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return false, err
	}
	return true, os.WriteFile(f.Path, f.Content, 0644)
}

// Render renders the route file followed by one params file per Params
// declaration. Rendering is deterministic for a given scan result.
func (g *Generator) Render(result *Result) ([]File, error) {
	paths, err := g.renderPaths(result)
	if err != nil {
		return nil, err
	}
	files := []File{{Path: g.config.Output, Content: paths}}

	for _, decl := range result.Params {
		content, err := renderParams(decl)
		if err != nil {
			return nil, fmt.Errorf("failed to render params for %s: %w", decl.Dir, err)
		}
		files = append(files, File{
			Path:    filepath.Join(decl.Dir, g.config.ParamsFile),
			Content: content,
		})
	}
	return files, nil
}

// importEntry is used for template rendering
type importEntry struct {
	Alias string
	Path  string
}

// bindingEntry is used for template rendering
type bindingEntry struct {
	Alias   string
	Package string
	Symbol  string
}

// structField is used for template rendering. A field either has a Type
// or nested Fields.
type structField struct {
	Name   string
	Type   string
	Tag    string
	Fields []structField
}

func (g *Generator) renderPaths(result *Result) ([]byte, error) {
	// binding path -> package alias
	pkgAliases := make(map[string]string)
	var imports []importEntry

	var err error
	result.Tree.Walk(func(n *RouteNode) {
		if err != nil || !n.HasHandlers() {
			return
		}
		var importPath string
		importPath, err = g.importPath(n.Dir)
		if err != nil {
			return
		}
		pkgAlias := alias.Generate(importPath, n.Package)
		imports = append(imports, importEntry{Alias: pkgAlias, Path: importPath})
		for _, b := range n.Methods {
			pkgAliases[b.Path] = pkgAlias
		}
		if n.Query != nil {
			pkgAliases[n.Query.Path] = pkgAlias
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(imports, func(i, j int) bool {
		return imports[i].Path < imports[j].Path
	})

	var vars, types []bindingEntry
	for _, b := range result.Imports {
		e := bindingEntry{Alias: b.Alias, Package: pkgAliases[b.Path], Symbol: b.Symbol}
		if b.Symbol == QuerySymbol {
			types = append(types, e)
		} else {
			vars = append(vars, e)
		}
	}

	return execute(pathsTemplate, map[string]any{
		"Package":       g.config.Package,
		"Header":        version.Header(),
		"RuntimeImport": RuntimeImportPath,
		"Imports":       imports,
		"Vars":          vars,
		"Types":         types,
		"Structure":     structFields(result.Tree),
		"Entries":       result.Entries(),
	})
}

// structFields builds the PathStructure fields of a node: method fields,
// the query field, then one nested struct per child that leads to a route.
func structFields(n *RouteNode) []structField {
	names := make(fieldNames)
	var fields []structField

	for _, sym := range MethodSymbols {
		method := HTTPMethods[sym]
		b, ok := n.Methods[method]
		if !ok {
			continue
		}
		fields = append(fields, structField{
			Name: names.claim(sym),
			Type: "rpc4next.Method",
			Tag:  tagLiteral(`rpc:` + strconv.Quote(method) + ` alias:` + strconv.Quote(b.Alias)),
		})
	}

	if n.Query != nil {
		fields = append(fields, structField{
			Name: names.claim(QuerySymbol),
			Type: n.Query.Alias,
			Tag:  tagLiteral(`rpc:"query"`),
		})
	}

	for _, child := range n.SortedChildren() {
		if !child.HasRoutes() {
			continue
		}
		fields = append(fields, structField{
			Name:   names.claim(FieldName(child.Segments[len(child.Segments)-1])),
			Tag:    tagLiteral(`rpc:` + strconv.Quote(child.Key)),
			Fields: structFields(child),
		})
	}
	return fields
}

func renderParams(decl ParamsDecl) ([]byte, error) {
	names := make(fieldNames)
	fields := make([]structField, 0, len(decl.Fields))
	for _, f := range decl.Fields {
		fields = append(fields, structField{
			Name: names.claim(f.GoName()),
			Type: f.GoType(),
			Tag:  tagLiteral(`rpc:` + strconv.Quote(f.Tag())),
		})
	}

	return execute(paramsTemplate, map[string]any{
		"Package": decl.Package,
		"Header":  version.Header(),
		"KeyPath": decl.KeyPath,
		"Fields":  fields,
	})
}

// importPath returns the Go import path of a directory inside the module.
func (g *Generator) importPath(dir string) (string, error) {
	absRoot, err := filepath.Abs(g.config.ModuleRoot)
	if err != nil {
		return "", err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside module root %s", dir, g.config.ModuleRoot)
	}

	importPath := g.config.ModuleName
	if rel != "." {
		importPath += "/" + filepath.ToSlash(rel)
	}
	if err := module.CheckImportPath(importPath); err != nil {
		return "", fmt.Errorf("%w: handler directory %s cannot be imported (%v); use marker names such as _id or ___slug", ErrInvalidRoute, dir, err)
	}
	return importPath, nil
}

// tagLiteral returns a struct tag as a Go string literal.
func tagLiteral(tag string) string {
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

var templateFuncs = template.FuncMap{
	"quote": strconv.Quote,
}

func execute(text string, data any) ([]byte, error) {
	var buf bytes.Buffer
	tmpl := template.Must(template.New("gen").Funcs(templateFuncs).Parse(text))
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated code: %w", err)
	}
	return src, nil
}

const pathsTemplate = `{{.Header}}
package {{.Package}}

import (
	"{{.RuntimeImport}}"
{{range .Imports}}
	{{.Alias}} {{quote .Path}}
{{- end}}
)
{{if .Vars}}
var (
{{- range .Vars}}
	{{.Alias}} = {{.Package}}.{{.Symbol}}
{{- end}}
)
{{end}}
{{- if .Types}}
type (
{{- range .Types}}
	{{.Alias}} = {{.Package}}.{{.Symbol}}
{{- end}}
)
{{end}}
{{- define "fields"}}
{{- range .}}
{{- if .Type}}
	{{.Name}} {{.Type}} {{.Tag}}
{{- else}}
	{{.Name}} struct {
{{- template "fields" .Fields}}
	} {{.Tag}}
{{- end}}
{{- end}}
{{- end}}
// PathStructure mirrors the route directory tree. Fields are tagged with
// the directory key; method fields carry the handler alias.
type PathStructure struct {
{{- template "fields" .Structure}}
}

// Routes lists every route that declares handlers, in tree order.
var Routes = []rpc4next.Entry{
{{- range .Entries}}
	{Key: {{quote .Key}}, Methods: []string{ {{- range $i, $m := .Methods}}{{if $i}}, {{end}}{{quote $m}}{{end -}} }},
{{- end}}
}
`

const paramsTemplate = `{{.Header}}
package {{.Package}}

// Params holds the route parameters of {{.KeyPath}}.
type Params struct {
{{- range .Fields}}
	{{.Name}} {{.Type}} {{.Tag}}
{{- end}}
}
`

// GetModuleName reads the module path from the go.mod in dir.
func GetModuleName(dir string) (string, error) {
	content, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", err
	}

	name := modfile.ModulePath(content)
	if name == "" {
		return "", fmt.Errorf("module name not found in go.mod")
	}
	return name, nil
}
