package segment

import (
	"regexp"
	"strings"
)

// Next.js-style directory names, normalized to marker keys
var (
	// [id] - dynamic segment
	dynamicDirRe = regexp.MustCompile(`^\[([a-zA-Z_][a-zA-Z0-9_]*)\]$`)

	// [...slug] - catch-all segment
	catchAllDirRe = regexp.MustCompile(`^\[\.\.\.([a-zA-Z_][a-zA-Z0-9_]*)\]$`)

	// [[...slug]] - optional catch-all segment
	optionalCatchAllDirRe = regexp.MustCompile(`^\[\[\.\.\.([a-zA-Z_][a-zA-Z0-9_]*)\]\]$`)

	// (group) - route group (doesn't affect the route key)
	routeGroupDirRe = regexp.MustCompile(`^\(([a-zA-Z_][a-zA-Z0-9_-]*)\)$`)
)

// knownPrivateFolders contains folder names that are never routes, even
// though the underscore prefix would otherwise read as a dynamic marker.
var knownPrivateFolders = map[string]bool{
	"_components":  true,
	"_lib":         true,
	"_utils":       true,
	"_helpers":     true,
	"_private":     true,
	"_shared":      true,
	"node_modules": true,
	"testdata":     true,
	"vendor":       true,
}

// DirKind tells the scanner how to treat a directory.
type DirKind int

const (
	// DirRoute contributes a segment to the route key
	DirRoute DirKind = iota
	// DirGroup is transparent: its children belong to the parent route
	DirGroup
	// DirPrivate is skipped entirely
	DirPrivate
)

// FromDirName maps a directory name to its route key and treatment.
// Bracket names are rewritten to marker keys ([id] → _id,
// [...slug] → ___slug, [[...slug]] → _____slug); marker names and static
// names are returned as-is.
func FromDirName(name string) (string, DirKind) {
	if IsPrivateFolder(name) {
		return "", DirPrivate
	}

	if m := optionalCatchAllDirRe.FindStringSubmatch(name); len(m) > 1 {
		return Key(OptionalCatchAll, m[1]), DirRoute
	}
	if m := catchAllDirRe.FindStringSubmatch(name); len(m) > 1 {
		return Key(CatchAll, m[1]), DirRoute
	}
	if m := dynamicDirRe.FindStringSubmatch(name); len(m) > 1 {
		return Key(Dynamic, m[1]), DirRoute
	}
	if routeGroupDirRe.MatchString(name) {
		return "", DirGroup
	}

	return name, DirRoute
}

// IsPrivateFolder checks if a directory should be skipped during scanning.
func IsPrivateFolder(name string) bool {
	// Hidden directories
	if strings.HasPrefix(name, ".") {
		return true
	}
	return knownPrivateFolders[name]
}

// IsBracketStyle checks if a directory name uses Next.js bracket naming.
func IsBracketStyle(name string) bool {
	return dynamicDirRe.MatchString(name) ||
		catchAllDirRe.MatchString(name) ||
		optionalCatchAllDirRe.MatchString(name) ||
		routeGroupDirRe.MatchString(name)
}
