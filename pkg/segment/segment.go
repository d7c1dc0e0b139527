// Package segment classifies route directory names against the four-kind
// segment grammar shared by the scanner and the runtime matcher.
//
// The grammar is keyed on literal prefix markers:
//
//	_____slug → optional catch-all (slug may match zero components)
//	___slug   → catch-all (slug matches one or more components)
//	_id       → dynamic (id matches exactly one component)
//	users     → static
//
// The markers are part of the contract between generated code and the
// matcher. Changing them silently breaks every generated artifact.
package segment

import "strings"

// Marker prefixes, longest first.
const (
	OptionalCatchAllMarker = "_____"
	CatchAllMarker         = "___"
	DynamicMarker          = "_"
)

// Kind is the kind of a route segment.
type Kind int

const (
	// Static matches its literal text (e.g., "users")
	Static Kind = iota
	// Dynamic matches one path component (e.g., "_id")
	Dynamic
	// CatchAll matches one or more path components (e.g., "___slug")
	CatchAll
	// OptionalCatchAll matches zero or more path components (e.g., "_____slug")
	OptionalCatchAll
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case CatchAll:
		return "catch-all"
	case OptionalCatchAll:
		return "optional-catch-all"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsParam reports whether segments of this kind bind a parameter.
func (k Kind) IsParam() bool {
	return k != Static
}

// IsCatchAll reports whether the kind consumes the rest of the path.
func (k Kind) IsCatchAll() bool {
	return k == CatchAll || k == OptionalCatchAll
}

// Segment represents a classified path segment.
type Segment struct {
	// Raw is the route key of the segment (e.g., "_id", "users")
	Raw string
	// Name is the bound parameter name, empty for static segments
	Name string
	// Kind is the segment kind
	Kind Kind
}

// Classify classifies a raw segment name. Markers are checked longest
// first so "_____x" is never mistaken for a catch-all or dynamic segment.
// Every string classifies to exactly one kind; the empty string is static.
func Classify(raw string) Segment {
	switch {
	case strings.HasPrefix(raw, OptionalCatchAllMarker):
		return Segment{Raw: raw, Name: raw[len(OptionalCatchAllMarker):], Kind: OptionalCatchAll}
	case strings.HasPrefix(raw, CatchAllMarker):
		return Segment{Raw: raw, Name: raw[len(CatchAllMarker):], Kind: CatchAll}
	case strings.HasPrefix(raw, DynamicMarker):
		return Segment{Raw: raw, Name: raw[len(DynamicMarker):], Kind: Dynamic}
	}
	return Segment{Raw: raw, Kind: Static}
}

// Key returns the route key for a bound name of the given kind. It is the
// inverse of Classify for parameter segments.
func Key(kind Kind, name string) string {
	switch kind {
	case Dynamic:
		return DynamicMarker + name
	case CatchAll:
		return CatchAllMarker + name
	case OptionalCatchAll:
		return OptionalCatchAllMarker + name
	}
	return name
}

// Split splits a route key path ("/users/_id") into classified segments.
// Empty components are dropped.
func Split(keyPath string) []Segment {
	parts := strings.Split(keyPath, "/")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		segments = append(segments, Classify(part))
	}
	return segments
}

// Join joins segments back into a route key path with a leading slash.
func Join(segments []Segment) string {
	if len(segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(seg.Raw)
	}
	return b.String()
}

// Params returns the parameter segments of a chain, in order.
func Params(segments []Segment) []Segment {
	var params []Segment
	for _, seg := range segments {
		if seg.Kind.IsParam() {
			params = append(params, seg)
		}
	}
	return params
}
