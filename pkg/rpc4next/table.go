// Package rpc4next is the runtime support imported by generated route
// code. Generated files describe every route with an Entry; a Table built
// from those entries resolves request URLs to routes and parameters.
package rpc4next

import (
	"fmt"
	"slices"
	"sort"

	"github.com/watanabe-1/rpc4next-sub001/pkg/matcher"
	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// Method marks an HTTP method field in a generated PathStructure. The
// field's struct tag names the method and the handler alias.
type Method struct{}

// Entry is one generated route.
type Entry struct {
	// Key is the route key path (e.g., "/users/_id")
	Key string `json:"key"`
	// Methods are the HTTP methods the route declares
	Methods []string `json:"methods"`
}

// HasMethod reports whether the entry declares method.
func (e Entry) HasMethod(method string) bool {
	return slices.Contains(e.Methods, method)
}

// Route is a compiled entry.
type Route struct {
	Entry
	// Pattern is the compiled key path
	Pattern *matcher.Pattern `json:"-"`
	// Priority determines matching order (higher = matched first)
	// Static: 100, Dynamic: 50, CatchAll: 10, OptionalCatchAll: 5
	Priority int `json:"priority"`
}

// Match is a resolved URL.
type Match struct {
	Entry
	*matcher.Result
}

// Table resolves URLs against a fixed set of routes. It is immutable after
// construction and safe for concurrent use.
type Table struct {
	routes []Route
}

// NewTable compiles every entry and orders the routes by priority.
func NewTable(entries []Entry) (*Table, error) {
	routes := make([]Route, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		if seen[e.Key] {
			return nil, fmt.Errorf("duplicate route %s", e.Key)
		}
		seen[e.Key] = true

		p, err := matcher.CompileKey(e.Key)
		if err != nil {
			return nil, fmt.Errorf("compiling route %s: %w", e.Key, err)
		}
		routes = append(routes, Route{
			Entry:    Entry{Key: e.Key, Methods: slices.Clone(e.Methods)},
			Pattern:  p,
			Priority: CalculatePriority(segment.Split(e.Key)),
		})
	}

	sort.SliceStable(routes, func(i, j int) bool {
		// Higher priority first
		if routes[i].Priority != routes[j].Priority {
			return routes[i].Priority > routes[j].Priority
		}
		// Then by key length (more specific first)
		if len(routes[i].Key) != len(routes[j].Key) {
			return len(routes[i].Key) > len(routes[j].Key)
		}
		return routes[i].Key < routes[j].Key
	})

	return &Table{routes: routes}, nil
}

// MustTable is like NewTable but panics on error. Generated entries are
// validated at generation time, so this is the usual constructor for them.
func MustTable(entries []Entry) *Table {
	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns all routes in matching order.
func (t *Table) Routes() []Route {
	return slices.Clone(t.routes)
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}

// Lookup returns the route registered for a key path.
func (t *Table) Lookup(key string) (Route, bool) {
	for _, r := range t.routes {
		if r.Key == key {
			return r, true
		}
	}
	return Route{}, false
}

// Resolve finds the first route, in priority order, matching rawURL.
// matched=false with a nil error means no route matched; a non-nil error
// means the URL is malformed.
func (t *Table) Resolve(rawURL string) (*Match, bool, error) {
	for _, r := range t.routes {
		result, ok, err := r.Pattern.Match(rawURL)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return &Match{Entry: r.Entry, Result: result}, true, nil
		}
	}
	return nil, false, nil
}

// CalculatePriority calculates the priority for a segment chain.
// Static routes have highest priority, optional catch-all lowest.
func CalculatePriority(segments []segment.Segment) int {
	priority := 100
	for _, seg := range segments {
		switch seg.Kind {
		case segment.OptionalCatchAll:
			return 5
		case segment.CatchAll:
			return 10
		case segment.Dynamic:
			priority = min(priority, 50)
		}
	}
	return priority
}
