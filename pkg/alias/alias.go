// Package alias generates collision-free identifiers for imported symbols.
//
// Many route packages export a handler under the same name (every route
// has a Get). Generate derives a stable identifier from the declaration
// site and the symbol name so generated code can reference all of them
// side by side.
package alias

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Separator joins the declaration path and the symbol before hashing.
const Separator = "::"

// DigestLength is the number of hex characters kept from the digest.
const DigestLength = 16

// Generate returns symbol + "_" + the first 16 hex characters of
// sha256(path + "::" + symbol). The inputs are hashed verbatim: callers
// that want "a\b" and "a/b" to share an alias must normalize first.
func Generate(path, symbol string) string {
	return symbol + "_" + Digest(path, symbol)
}

// Digest returns the hex digest part of an alias.
func Digest(path, symbol string) string {
	sum := sha256.Sum256([]byte(path + Separator + symbol))
	return hex.EncodeToString(sum[:])[:DigestLength]
}

// Binding is one imported symbol.
type Binding struct {
	// Symbol is the declared name (e.g., "Get", "Query")
	Symbol string
	// Path is the declaration site the alias is keyed on
	Path string
	// Alias is the generated identifier
	Alias string
	// Requests counts how many times this (Path, Symbol) pair was bound
	Requests int
}

type bindingKey struct {
	path   string
	symbol string
}

// Table records the bindings requested during one scan. A Table is owned
// by a single scan and must not be shared between concurrent scans.
type Table struct {
	bindings map[bindingKey]*Binding
}

// NewTable creates an empty binding table.
func NewTable() *Table {
	return &Table{bindings: make(map[bindingKey]*Binding)}
}

// Bind returns the binding for (path, symbol), minting it on first use.
// Repeated requests reuse the alias and bump Requests.
func (t *Table) Bind(path, symbol string) Binding {
	key := bindingKey{path: path, symbol: symbol}
	b, ok := t.bindings[key]
	if !ok {
		b = &Binding{
			Symbol: symbol,
			Path:   path,
			Alias:  Generate(path, symbol),
		}
		t.bindings[key] = b
	}
	b.Requests++
	return *b
}

// Len returns the number of distinct bindings.
func (t *Table) Len() int {
	return len(t.bindings)
}

// Bindings returns all bindings sorted by path, then symbol.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, 0, len(t.bindings))
	for _, b := range t.bindings {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Paths returns the distinct declaration paths in sorted order.
func (t *Table) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	for key := range t.bindings {
		if !seen[key.path] {
			seen[key.path] = true
			paths = append(paths, key.path)
		}
	}
	sort.Strings(paths)
	return paths
}
