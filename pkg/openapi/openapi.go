// Package openapi builds an OpenAPI 3 document from a route scan.
package openapi

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// Config configures document generation.
type Config struct {
	// Title is the API title (default: "API").
	Title string

	// Version is the API version (default: "1.0.0").
	Version string

	// Description is the API description.
	Description string

	// Servers are the server URLs.
	Servers []Server

	// OpenAPIVersion is the OpenAPI version ("3.1.0" or "3.0.3", default: "3.1.0").
	OpenAPIVersion string
}

// Server represents a server URL.
type Server struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Description string `mapstructure:"description" yaml:"description,omitempty"`
}

// Generator builds OpenAPI documents from scan results.
type Generator struct {
	config Config
}

// NewGenerator creates a new Generator.
func NewGenerator(config Config) *Generator {
	if config.Version == "" {
		config.Version = "1.0.0"
	}
	if config.OpenAPIVersion == "" {
		config.OpenAPIVersion = "3.1.0"
	}
	if config.Title == "" {
		config.Title = "API"
	}
	return &Generator{config: config}
}

// Build creates a document with one path per route. Optional catch-all
// routes get two paths: the bare prefix and the prefix with the parameter.
func (g *Generator) Build(result *scanner.Result) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: g.config.OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       g.config.Title,
			Version:     g.config.Version,
			Description: g.config.Description,
		},
		Paths: openapi3.NewPaths(),
	}

	if len(g.config.Servers) > 0 {
		doc.Servers = make(openapi3.Servers, 0, len(g.config.Servers))
		for _, srv := range g.config.Servers {
			doc.Servers = append(doc.Servers, &openapi3.Server{
				URL:         srv.URL,
				Description: srv.Description,
			})
		}
	}

	for _, route := range result.Routes {
		if len(route.Methods) == 0 {
			continue
		}
		file := filepath.Join(route.Dir, scanner.HandlerFile)
		docs := extractDocs(file)
		query := queryParameters(file)

		segments := segment.Split(route.Key)
		for _, path := range Paths(segments) {
			// the first route in tree order owns a shared path
			if doc.Paths.Find(path) != nil {
				continue
			}
			doc.Paths.Set(path, g.buildPathItem(route, path, segments, docs, query))
		}
	}

	return doc, nil
}

// JSON returns the document as indented JSON.
func (g *Generator) JSON(result *scanner.Result) ([]byte, error) {
	doc, err := g.Build(result)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// YAML returns the document as YAML.
func (g *Generator) YAML(result *scanner.Result) ([]byte, error) {
	doc, err := g.Build(result)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// Render returns the document in the given format ("json", "yaml" or "yml").
func (g *Generator) Render(result *scanner.Result, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return g.YAML(result)
	case "json":
		return g.JSON(result)
	}
	return nil, fmt.Errorf("unsupported format: %s (use json or yaml)", format)
}

// WriteToFile writes the document to a file.
func (g *Generator) WriteToFile(result *scanner.Result, path, format string) error {
	data, err := g.Render(result, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Paths returns the OpenAPI path templates for a segment chain.
// Example: /users/_id -> ["/users/{id}"], /docs/_____slug -> ["/docs", "/docs/{slug}"]
func Paths(segments []segment.Segment) []string {
	var b strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case segment.Static:
			b.WriteString("/" + seg.Raw)
		case segment.Dynamic, segment.CatchAll:
			b.WriteString("/{" + seg.Name + "}")
		case segment.OptionalCatchAll:
			prefix := b.String()
			if prefix == "" {
				prefix = "/"
			}
			return []string{prefix, b.String() + "/{" + seg.Name + "}"}
		}
	}
	if b.Len() == 0 {
		return []string{"/"}
	}
	return []string{b.String()}
}

func (g *Generator) buildPathItem(route scanner.Route, path string, segments []segment.Segment, docs map[string]handlerDoc, query openapi3.Parameters) *openapi3.PathItem {
	pathItem := &openapi3.PathItem{}
	params := pathParameters(segments, path)
	tag := deriveTag(segments)

	for _, method := range route.Methods {
		op := buildOperation(method, docs[method], tag, params, query)
		pathItem.SetOperation(method, op)
	}
	return pathItem
}

func buildOperation(method string, doc handlerDoc, tag string, params, query openapi3.Parameters) *openapi3.Operation {
	op := &openapi3.Operation{
		Summary:     doc.summary,
		Description: doc.description,
		Tags:        []string{tag},
		Responses:   openapi3.NewResponses(),
	}

	op.Parameters = append(op.Parameters, params...)
	if method == "GET" || method == "HEAD" {
		op.Parameters = append(op.Parameters, query...)
	}

	op.Responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: openapi3.Ptr("Success"),
		},
	})

	hasBody := method == "POST" || method == "PUT" || method == "PATCH"
	if hasBody {
		op.Responses.Set("400", &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: openapi3.Ptr("Bad Request"),
			},
		})
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Description: "Request body",
				Required:    true,
				Content:     openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema()),
			},
		}
	}

	if len(params) > 0 && method != "POST" {
		op.Responses.Set("404", &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: openapi3.Ptr("Not Found"),
			},
		})
	}

	return op
}

// pathParameters returns the path parameters present in path. Catch-all
// parameters are arrays of path components.
func pathParameters(segments []segment.Segment, path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, seg := range segment.Params(segments) {
		if !strings.Contains(path, "{"+seg.Name+"}") {
			continue
		}

		schema := openapi3.NewStringSchema()
		description := fmt.Sprintf("%s parameter", seg.Name)
		if seg.Kind.IsCatchAll() {
			schema = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
			description = fmt.Sprintf("%s path components", seg.Name)
		}

		params = append(params, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:        seg.Name,
			In:          openapi3.ParameterInPath,
			Required:    true,
			Description: description,
			Schema:      schema.NewRef(),
		}})
	}
	return params
}

// deriveTag derives a tag from the first static segment, skipping "api".
// Example: /api/users/_id -> "users"
func deriveTag(segments []segment.Segment) string {
	for i, seg := range segments {
		if seg.Kind != segment.Static {
			continue
		}
		if i == 0 && seg.Raw == "api" {
			continue
		}
		return seg.Raw
	}
	return "default"
}

type handlerDoc struct {
	summary     string
	description string
}

// extractDocs returns handler doc comments keyed by HTTP method. The first
// line is the summary and the rest is the description.
func extractDocs(filePath string) map[string]handlerDoc {
	docs := make(map[string]handlerDoc)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return docs
	}

	for _, decl := range file.Decls {
		var name string
		var doc *ast.CommentGroup
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue
			}
			name, doc = d.Name.Name, d.Doc
		case *ast.GenDecl:
			if len(d.Specs) != 1 {
				continue
			}
			vs, ok := d.Specs[0].(*ast.ValueSpec)
			if !ok || len(vs.Names) != 1 {
				continue
			}
			name, doc = vs.Names[0].Name, d.Doc
		default:
			continue
		}

		method, ok := scanner.HTTPMethods[name]
		if !ok || doc == nil {
			continue
		}

		var lines []string
		for _, line := range strings.Split(doc.Text(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}

		d := handlerDoc{summary: lines[0]}
		if len(lines) > 1 {
			d.description = strings.Join(lines[1:], "\n")
		}
		docs[method] = d
	}

	return docs
}

// queryParameters documents the fields of the file's Query struct. The
// parameter name comes from the `query` tag, then the `json` tag, then
// the field name.
func queryParameters(filePath string) openapi3.Parameters {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil
	}

	var params openapi3.Parameters
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			st, ok := ts.Type.(*ast.StructType)
			if ts.Name.Name != scanner.QuerySymbol || !ok {
				continue
			}
			for _, field := range st.Fields.List {
				for _, name := range field.Names {
					if !name.IsExported() {
						continue
					}
					paramName := queryName(name.Name, field.Tag)
					if paramName == "" {
						continue
					}
					params = append(params, &openapi3.ParameterRef{Value: &openapi3.Parameter{
						Name:   paramName,
						In:     openapi3.ParameterInQuery,
						Schema: fieldSchema(field.Type).NewRef(),
					}})
				}
			}
		}
	}
	return params
}

func queryName(fieldName string, tag *ast.BasicLit) string {
	if tag != nil {
		raw, err := strconv.Unquote(tag.Value)
		if err == nil {
			st := reflect.StructTag(raw)
			for _, key := range []string{"query", "json"} {
				if v, ok := st.Lookup(key); ok {
					name, _, _ := strings.Cut(v, ",")
					if name == "-" {
						return ""
					}
					if name != "" {
						return name
					}
				}
			}
		}
	}
	return strings.ToLower(fieldName[:1]) + fieldName[1:]
}

func fieldSchema(expr ast.Expr) *openapi3.Schema {
	switch t := expr.(type) {
	case *ast.ArrayType:
		return openapi3.NewArraySchema().WithItems(fieldSchema(t.Elt))
	case *ast.StarExpr:
		return fieldSchema(t.X)
	case *ast.Ident:
		switch t.Name {
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			return openapi3.NewIntegerSchema()
		case "float32", "float64":
			return openapi3.NewFloat64Schema()
		case "bool":
			return openapi3.NewBoolSchema()
		}
	}
	return openapi3.NewStringSchema()
}
