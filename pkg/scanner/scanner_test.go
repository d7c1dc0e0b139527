package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/watanabe-1/rpc4next-sub001/pkg/alias"
	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
}

// setupApp creates a route tree under a temp dir and returns the root.
func setupApp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	app := filepath.Join(tmp, "app")

	writeFile(t, filepath.Join(app, "route.go"), "package app\n\nfunc Get() {}\n")
	writeFile(t, filepath.Join(app, "users", "route.go"),
		"package users\n\nfunc Get() {}\n\nfunc Post() {}\n\ntype Query struct{ Page string }\n")
	writeFile(t, filepath.Join(app, "users", "_id", "route.go"),
		"package id\n\nvar Get = handler\n\nfunc handler() {}\n")
	mkdir(t, filepath.Join(app, "users", "_id", "posts", "___slug"))
	writeFile(t, filepath.Join(app, "(marketing)", "about", "route.go"), "package about\n\nfunc Get() {}\n")
	writeFile(t, filepath.Join(app, "_components", "button.go"), "package components\n\nfunc Get() {}\n")
	writeFile(t, filepath.Join(app, "docs", "_____path", "route.go"), "package path\n\nvar Get, Post = 1, 2\n")
	for _, n := range []string{"10", "2", "1"} {
		writeFile(t, filepath.Join(app, "items", n, "route.go"), "package item\n\nfunc Get() {}\n")
	}

	return tmp
}

func scan(t *testing.T, tmp string) *Result {
	t.Helper()
	result, err := NewScanner(filepath.Join(tmp, "app")).Scan(filepath.Join(tmp, "rpc", "paths_gen.go"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return result
}

func TestScan_Routes(t *testing.T) {
	result := scan(t, setupApp(t))

	var keys []string
	for _, r := range result.Routes {
		keys = append(keys, r.Key)
	}
	want := []string{
		"/",
		"/about",
		"/docs/_____path",
		"/items/1",
		"/items/2",
		"/items/10",
		"/users",
		"/users/_id",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("route keys = %v, want %v", keys, want)
	}

	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("unexpected conflicts: %v", result.Conflicts)
	}
}

func TestScan_MethodsAndQuery(t *testing.T) {
	tmp := setupApp(t)
	result := scan(t, tmp)

	users := result.Tree.Children["users"]
	if users == nil {
		t.Fatal("users node missing")
	}
	if got := users.SortedMethods(); !reflect.DeepEqual(got, []string{"GET", "POST"}) {
		t.Errorf("users methods = %v, want [GET POST]", got)
	}
	if users.Query == nil {
		t.Fatal("users query binding missing")
	}

	bindingPath := "../app/users"
	if got := users.Methods["GET"]; got.Path != bindingPath || got.Alias != alias.Generate(bindingPath, "Get") {
		t.Errorf("GET binding = %+v, want path %q", got, bindingPath)
	}
	if users.Query.Alias != alias.Generate(bindingPath, "Query") {
		t.Errorf("query alias = %q", users.Query.Alias)
	}
	if users.Package != "users" {
		t.Errorf("users package = %q", users.Package)
	}

	docs := result.Tree.Children["docs"].Children["_____path"]
	if got := docs.SortedMethods(); !reflect.DeepEqual(got, []string{"GET", "POST"}) {
		t.Errorf("destructured exports = %v, want [GET POST]", got)
	}
}

func TestScan_RouteGroupsAreTransparent(t *testing.T) {
	result := scan(t, setupApp(t))

	about, ok := result.Tree.Children["about"]
	if !ok {
		t.Fatal("about should be merged into the root")
	}
	if about.KeyPath() != "/about" {
		t.Errorf("about key = %q", about.KeyPath())
	}
	if _, ok := result.Tree.Children["(marketing)"]; ok {
		t.Error("route group must not contribute a segment")
	}
	if _, ok := result.Tree.Children["_components"]; ok {
		t.Error("private folder must be skipped")
	}
}

func TestScan_Params(t *testing.T) {
	result := scan(t, setupApp(t))

	type decl struct {
		key    string
		pkg    string
		fields []ParamField
	}
	var got []decl
	for _, p := range result.Params {
		got = append(got, decl{p.KeyPath, p.Package, p.Fields})
	}

	id := ParamField{Name: "id", Kind: segment.Dynamic}
	want := []decl{
		{"/docs/_____path", "path", []ParamField{{Name: "path", Kind: segment.OptionalCatchAll}}},
		{"/users/_id", "id", []ParamField{id}},
		{"/users/_id/posts", "posts", []ParamField{id}},
		{"/users/_id/posts/___slug", "slug", []ParamField{id, {Name: "slug", Kind: segment.CatchAll}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("params =\n%+v\nwant\n%+v", got, want)
	}
}

func TestScan_Deterministic(t *testing.T) {
	tmp := setupApp(t)

	a := scan(t, tmp)
	b := scan(t, tmp)
	if !reflect.DeepEqual(a.Imports, b.Imports) {
		t.Error("imports differ between scans")
	}
	if !reflect.DeepEqual(a.Routes, b.Routes) {
		t.Error("routes differ between scans")
	}
	for _, imp := range a.Imports {
		if imp.Requests != 1 {
			t.Errorf("binding %s requested %d times, want 1 per scan", imp.Alias, imp.Requests)
		}
	}
}

func TestScan_BracketDirectories(t *testing.T) {
	tmp := t.TempDir()
	app := filepath.Join(tmp, "app")
	writeFile(t, filepath.Join(app, "blog", "[slug]", "route.go"), "package slug\n\nfunc Get() {}\n")
	mkdir(t, filepath.Join(app, "shop", "[[...rest]]"))

	result := scan(t, tmp)

	if got := result.Routes; len(got) != 1 || got[0].Key != "/blog/_slug" {
		t.Errorf("routes = %+v, want /blog/_slug", got)
	}
	shop := result.Tree.Children["shop"]
	if _, ok := shop.Children["_____rest"]; !ok {
		t.Error("[[...rest]] should normalize to _____rest")
	}
}

func TestScan_Conflicts(t *testing.T) {
	tmp := t.TempDir()
	app := filepath.Join(tmp, "app")
	writeFile(t, filepath.Join(app, "(a)", "x", "route.go"), "package x\n\nfunc Get() {}\n")
	writeFile(t, filepath.Join(app, "(b)", "x", "route.go"), "package x\n\nfunc Post() {}\n")

	result := scan(t, tmp)

	if len(result.Conflicts) != 1 {
		t.Fatalf("conflicts = %v, want 1", result.Conflicts)
	}
	c := result.Conflicts[0]
	if c.Key != "/x" || filepath.Base(filepath.Dir(c.Dir1)) != "(a)" {
		t.Errorf("conflict = %+v", c)
	}
	if got := result.Tree.Children["x"].SortedMethods(); !reflect.DeepEqual(got, []string{"GET"}) {
		t.Errorf("first directory should win, methods = %v", got)
	}
}

func TestScan_InvalidChains(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{"catch-all not last", filepath.Join("___rest", "more")},
		{"optional catch-all not last", filepath.Join("_____rest", "more")},
		{"duplicate parameter", filepath.Join("_id", "x", "_id")},
		{"empty parameter name", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			mkdir(t, filepath.Join(tmp, "app", tt.dir))

			_, err := NewScanner(filepath.Join(tmp, "app")).Scan(filepath.Join(tmp, "rpc", "paths_gen.go"))
			if !errors.Is(err, ErrInvalidRoute) {
				t.Errorf("error = %v, want ErrInvalidRoute", err)
			}
			if !errors.Is(err, segment.ErrInvalidChain) {
				t.Errorf("error = %v, want it to wrap ErrInvalidChain", err)
			}
		})
	}
}

func TestScan_ParseFailureIsWarning(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "app", "broken", "route.go"), "package broken\nfunc (")

	result := scan(t, tmp)
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", result.Warnings)
	}
	if len(result.Routes) != 0 {
		t.Errorf("routes = %v, want none", result.Routes)
	}
}

func TestScan_MissingExportsAreAbsent(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "app", "empty", "route.go"), "package empty\n\nfunc helper() {}\n")

	result := scan(t, tmp)
	if len(result.Routes) != 0 || len(result.Warnings) != 0 {
		t.Errorf("routes = %v, warnings = %v, want none", result.Routes, result.Warnings)
	}
}

func TestScan_UnreadableRoot(t *testing.T) {
	tmp := t.TempDir()
	_, err := NewScanner(filepath.Join(tmp, "missing")).Scan(filepath.Join(tmp, "out.go"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if errors.Is(err, ErrInvalidRoute) {
		t.Error("filesystem errors must not be reported as invalid routes")
	}
}

func TestRouteNode_SortedChildrenNatural(t *testing.T) {
	root := newNode("", "", nil)
	for _, k := range []string{"10", "b", "2", "a", "1"} {
		root.Children[k] = newNode(k, "", []segment.Segment{segment.Classify(k)})
	}

	var got []string
	for _, c := range root.SortedChildren() {
		got = append(got, c.Key)
	}
	want := []string{"1", "2", "10", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedChildren = %v, want %v", got, want)
	}
}
