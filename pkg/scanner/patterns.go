package scanner

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"

	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// MakePackageName creates a valid Go package name from a segment, used
// when a directory has no Go files to take the name from.
// Example: "_userId" -> "userid", "___slug" -> "slug", "2024" -> "pkg2024"
func MakePackageName(seg segment.Segment) string {
	name := seg.Raw
	if seg.Kind.IsParam() {
		name = seg.Name
	}

	name = sanitizePackageName(name)
	if name == "" {
		return "route"
	}
	return name
}

// sanitizePackageName converts a directory name to a valid Go package name.
func sanitizePackageName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_' || r == '.':
			b.WriteByte('_')
		}
	}
	name = strings.Trim(b.String(), "_")

	// Ensure it starts with a letter
	if len(name) > 0 && (name[0] >= '0' && name[0] <= '9') {
		name = "pkg" + name
	}
	if token.IsKeyword(name) {
		name += "_"
	}
	return name
}

// FieldName returns the PathStructure field name for a segment.
// Example: "users" -> "Users", "_id" -> "ParamId", "___slug" -> "CatchAllSlug"
func FieldName(seg segment.Segment) string {
	switch seg.Kind {
	case segment.Static:
		return exportedIdent(seg.Raw)
	case segment.Dynamic:
		return "Param" + toPascalCase(seg.Name)
	case segment.CatchAll:
		return "CatchAll" + toPascalCase(seg.Name)
	case segment.OptionalCatchAll:
		return "OptionalCatchAll" + toPascalCase(seg.Name)
	}
	panic("scanner: unhandled segment kind " + seg.Kind.String())
}

// fieldNames hands out unique identifiers within one struct.
type fieldNames map[string]int

func (f fieldNames) claim(name string) string {
	n := f[name]
	f[name] = n + 1
	if n == 0 {
		return name
	}
	unique := name + strconv.Itoa(n+1)
	for f[unique] > 0 {
		n++
		unique = name + strconv.Itoa(n+1)
	}
	f[unique] = 1
	return unique
}
