package commands

import (
	"net"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fsnotify/fsnotify"

	"github.com/watanabe-1/rpc4next-sub001/internal/config"
	"github.com/watanabe-1/rpc4next-sub001/pkg/matcher"
	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
)

func writeRoute(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, scanner.HandlerFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRouteOutputs(t *testing.T) {
	tmpDir := t.TempDir()
	appDir := filepath.Join(tmpDir, "app")
	writeRoute(t, filepath.Join(appDir, "users"), "package users\n\nfunc Get() {}\n\ntype Query struct{}\n")
	writeRoute(t, filepath.Join(appDir, "users", "_id"), "package id\n\nfunc Get() {}\n")
	writeRoute(t, filepath.Join(appDir, "files", "___path"), "package path\n\nfunc Get() {}\n")

	result, err := scanner.NewScanner(appDir).Scan(filepath.Join(tmpDir, "rpc", "paths_gen.go"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	routes, err := routeOutputs(result)
	if err != nil {
		t.Fatalf("routeOutputs failed: %v", err)
	}

	var keys []string
	for _, r := range routes {
		keys = append(keys, r.Key)
	}
	want := []string{"/users", "/users/_id", "/files/___path"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	if !routes[0].Query || routes[0].Priority != 100 {
		t.Errorf("/users = %+v", routes[0])
	}
	if !reflect.DeepEqual(routes[1].Params, []string{"id"}) || routes[1].Priority != 50 {
		t.Errorf("/users/_id = %+v", routes[1])
	}
	if routes[2].Priority != 10 {
		t.Errorf("/files/___path priority = %d, want 10", routes[2].Priority)
	}
}

func TestMatchKeyList(t *testing.T) {
	results, err := matchKeyList(
		[]string{"/users/_id", "/files/___path"},
		[]string{"/users/7?x=1", "/files/a/b", "/other", "/users/%zz"},
	)
	if err != nil {
		t.Fatalf("matchKeyList failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	if r := results[0]; !r.Matched || r.Key != "/users/_id" || r.Params["id"].Value != "7" || r.Query.Get("x") != "1" {
		t.Errorf("results[0] = %+v", r)
	}
	if r := results[1]; !r.Matched || !reflect.DeepEqual(r.Params["path"].Values, []string{"a", "b"}) {
		t.Errorf("results[1] = %+v", r)
	}
	if r := results[2]; r.Matched || r.Error != "" {
		t.Errorf("results[2] = %+v, want no match", r)
	}
	if r := results[3]; r.Matched || r.Error == "" {
		t.Errorf("results[3] = %+v, want decode error", r)
	}
}

func TestMatchKeyList_InvalidKey(t *testing.T) {
	if _, err := matchKeyList([]string{"/a/___rest/b"}, []string{"/a/x/b"}); err == nil {
		t.Error("expected error for invalid route key")
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		param matcher.Param
		want  string
	}{
		{matcher.Param{Kind: matcher.ParamString, Value: "42"}, "42"},
		{matcher.Param{Kind: matcher.ParamList, Values: []string{"a", "b"}}, "[a, b]"},
		{matcher.Param{Kind: matcher.ParamAbsent}, "(absent)"},
	}
	for _, tt := range tests {
		if got := formatParam(tt.param); got != tt.want {
			t.Errorf("formatParam(%+v) = %q, want %q", tt.param, got, tt.want)
		}
	}
}

func TestRelevantEvent(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"route write", fsnotify.Event{Name: "app/users/route.go", Op: fsnotify.Write}, true},
		{"other go file", fsnotify.Event{Name: "app/users/helper.go", Op: fsnotify.Create}, true},
		{"params file", fsnotify.Event{Name: "app/users/_id/params_gen.go", Op: fsnotify.Write}, false},
		{"chmod", fsnotify.Event{Name: "app/users/route.go", Op: fsnotify.Chmod}, false},
		{"markdown", fsnotify.Event{Name: "app/README.md", Op: fsnotify.Write}, false},
		{"new directory", fsnotify.Event{Name: "app/posts", Op: fsnotify.Create}, true},
		{"removed directory", fsnotify.Event{Name: "app/posts", Op: fsnotify.Remove}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevantEvent(tt.event, &cfg); got != tt.want {
				t.Errorf("relevantEvent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatchTree(t *testing.T) {
	appDir := filepath.Join(t.TempDir(), "app")
	for _, dir := range []string{"users/_id", "_components/button", ".cache"} {
		if err := os.MkdirAll(filepath.Join(appDir, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, appDir); err != nil {
		t.Fatalf("watchTree failed: %v", err)
	}

	watched := make(map[string]bool)
	for _, p := range watcher.WatchList() {
		watched[p] = true
	}
	for _, want := range []string{appDir, filepath.Join(appDir, "users"), filepath.Join(appDir, "users", "_id")} {
		if !watched[want] {
			t.Errorf("%s not watched", want)
		}
	}
	for _, skip := range []string{filepath.Join(appDir, "_components"), filepath.Join(appDir, ".cache")} {
		if watched[skip] {
			t.Errorf("%s should not be watched", skip)
		}
	}

	if err := watchTree(watcher, filepath.Join(appDir, "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		path, dir string
		want      bool
	}{
		{"app/rpc/paths_gen.go", "app", true},
		{"app", "app", true},
		{"rpc/paths_gen.go", "app", false},
		{"../app/x.go", "app", false},
		{"application/x.go", "app", false},
	}
	for _, tt := range tests {
		if got := within(tt.path, tt.dir); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty = %q, want b", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{&net.TCPAddr{IP: net.IPv4zero, Port: 4010}, "localhost:4010"},
		{&net.TCPAddr{IP: net.IPv6unspecified, Port: 4010}, "localhost:4010"},
		{&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}, "127.0.0.1:9000"},
	}
	for _, tt := range tests {
		if got := displayAddr(tt.addr); got != tt.want {
			t.Errorf("displayAddr(%s) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestApplyPathFlags(t *testing.T) {
	cfg := config.Default()
	applyPathFlags(&cfg, "src/app", "")
	if cfg.AppDir != "src/app" || cfg.Output != config.Default().Output {
		t.Errorf("cfg = %+v", cfg)
	}
	applyPathFlags(&cfg, "", "gen/routes.go")
	if cfg.AppDir != "src/app" || cfg.Output != "gen/routes.go" {
		t.Errorf("cfg = %+v", cfg)
	}
}
