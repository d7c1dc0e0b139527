// Package scanner discovers file-system routes and turns them into a typed
// route tree. Directory names are classified with the segment grammar
// (static, _dynamic, ___catchAll, _____optionalCatchAll), handler exports
// are found in each directory's route.go using go/parser, and every
// discovered symbol is bound to a generated alias so many route packages
// can export a Get side by side.
package scanner

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"unicode"

	"github.com/maruel/natural"
	"github.com/watanabe-1/rpc4next-sub001/pkg/alias"
	"github.com/watanabe-1/rpc4next-sub001/pkg/rpc4next"
	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// ErrInvalidRoute is returned when a directory chain cannot be expressed by
// the segment grammar (a catch-all that is not last, a parameter bound
// twice, an empty parameter name).
var ErrInvalidRoute = errors.New("invalid route")

// HandlerFile is the file inspected for handler exports in every directory.
const HandlerFile = "route.go"

// QuerySymbol is the exported type name declaring a route's query shape.
const QuerySymbol = "Query"

// HTTP method to export name mapping
var HTTPMethods = map[string]string{
	"Get":     http.MethodGet,
	"Post":    http.MethodPost,
	"Put":     http.MethodPut,
	"Patch":   http.MethodPatch,
	"Delete":  http.MethodDelete,
	"Head":    http.MethodHead,
	"Options": http.MethodOptions,
}

// MethodSymbols lists the handler export names in emission order.
var MethodSymbols = []string{"Get", "Post", "Put", "Patch", "Delete", "Head", "Options"}

// RouteNode is one route key in the scanned tree. Route groups are
// transparent, so a node may collect children from several directories.
type RouteNode struct {
	// Key is the raw segment key (e.g., "_id", "users"); empty for the root
	Key string
	// Dir is the directory holding the handler file, or the first
	// directory seen for this key when there is none
	Dir string
	// Package is the handler file's package name
	Package string
	// Segments is the root-to-node chain
	Segments []segment.Segment
	// Methods maps HTTP methods to handler bindings
	Methods map[string]alias.Binding
	// Query is the query type binding, if the route declares one
	Query *alias.Binding
	// Params is the parameter declaration for the node's chain
	Params *ParamsDecl
	// Children are keyed by raw segment key
	Children map[string]*RouteNode
}

func newNode(key, dir string, chain []segment.Segment) *RouteNode {
	return &RouteNode{
		Key:      key,
		Dir:      dir,
		Segments: chain,
		Methods:  make(map[string]alias.Binding),
		Children: make(map[string]*RouteNode),
	}
}

// KeyPath returns the route key path (e.g., "/users/_id").
func (n *RouteNode) KeyPath() string {
	return segment.Join(n.Segments)
}

// HasHandlers reports whether the node declares any method or query type.
func (n *RouteNode) HasHandlers() bool {
	return len(n.Methods) > 0 || n.Query != nil
}

// HasRoutes reports whether the node or any descendant declares handlers.
func (n *RouteNode) HasRoutes() bool {
	if n.HasHandlers() {
		return true
	}
	for _, child := range n.Children {
		if child.HasRoutes() {
			return true
		}
	}
	return false
}

// SortedMethods returns the node's HTTP methods in emission order.
func (n *RouteNode) SortedMethods() []string {
	var methods []string
	for _, sym := range MethodSymbols {
		if _, ok := n.Methods[HTTPMethods[sym]]; ok {
			methods = append(methods, HTTPMethods[sym])
		}
	}
	return methods
}

// SortedChildren returns children in natural (numeric-aware) key order.
func (n *RouteNode) SortedChildren() []*RouteNode {
	keys := make([]string, 0, len(n.Children))
	for k := range n.Children {
		keys = append(keys, k)
	}
	sortNatural(keys)

	children := make([]*RouteNode, len(keys))
	for i, k := range keys {
		children[i] = n.Children[k]
	}
	return children
}

// Walk visits the node and its descendants depth-first in stable order.
func (n *RouteNode) Walk(fn func(*RouteNode)) {
	fn(n)
	for _, child := range n.SortedChildren() {
		child.Walk(fn)
	}
}

// ParamField is one field of a synthesized Params declaration.
type ParamField struct {
	Name string       `json:"name"`
	Kind segment.Kind `json:"kind"`
}

// GoName returns the exported struct field name.
func (f ParamField) GoName() string {
	return exportedIdent(f.Name)
}

// GoType returns the Go type of the field.
func (f ParamField) GoType() string {
	if f.Kind.IsCatchAll() {
		return "[]string"
	}
	return "string"
}

// Tag returns the struct tag value read by matcher.Decode.
func (f ParamField) Tag() string {
	if f.Kind == segment.OptionalCatchAll {
		return f.Name + ",optional"
	}
	return f.Name
}

// ParamsDecl is the Params type synthesized for a directory whose chain
// contains parameter segments.
type ParamsDecl struct {
	// Dir is the directory the declaration belongs to
	Dir string
	// Package is the Go package name used in that directory
	Package string
	// KeyPath is the route key path of the chain
	KeyPath string
	// Fields follow the chain order
	Fields []ParamField
}

func newParamsDecl(dir, pkg string, chain []segment.Segment) *ParamsDecl {
	params := segment.Params(chain)
	if len(params) == 0 {
		return nil
	}
	decl := &ParamsDecl{Dir: dir, Package: pkg, KeyPath: segment.Join(chain)}
	for _, seg := range params {
		decl.Fields = append(decl.Fields, ParamField{Name: seg.Name, Kind: seg.Kind})
	}
	return decl
}

// Route is a flattened view of a node that declares handlers.
type Route struct {
	Key      string       `json:"key"`
	Dir      string       `json:"dir"`
	Methods  []string     `json:"methods"`
	HasQuery bool         `json:"hasQuery"`
	Params   []ParamField `json:"params,omitempty"`
}

// Warning represents a non-fatal issue during scanning.
type Warning struct {
	FilePath string `json:"filePath"`
	Message  string `json:"message"`
}

// Conflict represents two directories that declare handlers for the same
// route key. The first directory in scan order wins.
type Conflict struct {
	Key     string `json:"key"`
	Dir1    string `json:"dir1"`
	Dir2    string `json:"dir2"`
	Message string `json:"message"`
}

// Result holds everything discovered by one scan.
type Result struct {
	// Tree is the root route node
	Tree *RouteNode
	// Output is the output file the binding paths are relative to
	Output string
	// Imports are the alias bindings, one per (path, symbol) pair
	Imports []alias.Binding
	// Params are the synthesized Params declarations in scan order
	Params []ParamsDecl
	// Routes are the nodes that declare handlers, in stable order
	Routes []Route
	// Warnings are non-fatal issues encountered during scanning
	Warnings []Warning
	// Conflicts are duplicate handler directories for one key
	Conflicts []Conflict
}

// Entries returns the runtime table entries for the scanned routes, the
// same list the generated Routes variable holds.
func (r *Result) Entries() []rpc4next.Entry {
	entries := make([]rpc4next.Entry, 0, len(r.Routes))
	for _, route := range r.Routes {
		entries = append(entries, rpc4next.Entry{Key: route.Key, Methods: route.Methods})
	}
	return entries
}

func sortNatural(s []string) {
	sort.Sort(natural.StringSlice(s))
}

// exportedIdent converts a name to an exported Go identifier.
// Example: "user_id" -> "UserId", "postSlug" -> "PostSlug"
func exportedIdent(s string) string {
	name := toPascalCase(s)
	if name == "" {
		return "X"
	}
	r := []rune(name)[0]
	if !unicode.IsUpper(r) {
		return "X" + name
	}
	return name
}

// toPascalCase converts a string to PascalCase.
func toPascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var result strings.Builder
	for _, part := range parts {
		r := []rune(part)
		result.WriteRune(unicode.ToUpper(r[0]))
		result.WriteString(string(r[1:]))
	}
	return result.String()
}
