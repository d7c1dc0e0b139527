// Package matcher compiles route key chains into anchored patterns and
// matches request URLs against them.
//
// A pattern is compiled from the same classified segments the scanner
// uses to generate types, so a URL that matches yields exactly the
// parameter shape the generated Params declaration promises.
package matcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// Sub-patterns per segment kind. Each parameter kind contributes exactly
// one capturing group.
const (
	componentRe      = `[^/]+`
	dynamicRe        = `/(` + componentRe + `)`
	componentsRe     = componentRe + `(?:/+` + componentRe + `)*`
	catchAllRe       = `/(` + componentsRe + `)`
	optionalCatchAll = `(?:/(` + componentsRe + `))?`
	trailingSlashRe  = `/?`
)

// Pattern is a compiled route pattern. It is immutable and safe for
// concurrent use.
type Pattern struct {
	key   string
	re    *regexp.Regexp
	names []string
	kinds []segment.Kind
}

// Compile builds a pattern from a root-to-leaf segment chain.
func Compile(segments []segment.Segment) *Pattern {
	var b strings.Builder
	p := &Pattern{key: segment.Join(segments)}

	b.WriteByte('^')
	for _, seg := range segments {
		switch seg.Kind {
		case segment.Static:
			b.WriteByte('/')
			b.WriteString(staticRe(seg.Raw))
		case segment.Dynamic:
			b.WriteString(dynamicRe)
		case segment.CatchAll:
			b.WriteString(catchAllRe)
		case segment.OptionalCatchAll:
			b.WriteString(optionalCatchAll)
		default:
			panic(fmt.Sprintf("matcher: unhandled segment kind %d", seg.Kind))
		}
		if seg.Kind.IsParam() {
			p.names = append(p.names, seg.Name)
			p.kinds = append(p.kinds, seg.Kind)
		}
	}
	b.WriteString(trailingSlashRe)
	b.WriteByte('$')

	p.re = regexp.MustCompile(b.String())
	return p
}

// CompileKey validates and compiles a route key path such as "/users/_id".
func CompileKey(key string) (*Pattern, error) {
	segments := segment.Split(key)
	if err := segment.Validate(segments); err != nil {
		return nil, err
	}
	return Compile(segments), nil
}

// staticRe matches a static segment literally. Segments that need escaping
// in a URL also match their percent-encoded form.
func staticRe(raw string) string {
	escaped := url.PathEscape(raw)
	if escaped == raw {
		return regexp.QuoteMeta(raw)
	}
	return `(?:` + regexp.QuoteMeta(raw) + `|` + regexp.QuoteMeta(escaped) + `)`
}

// Key returns the route key path the pattern was compiled from.
func (p *Pattern) Key() string {
	return p.key
}

// Names returns the parameter names in capture order.
func (p *Pattern) Names() []string {
	return append([]string(nil), p.names...)
}

// Kinds returns the segment kind of each captured parameter.
func (p *Pattern) Kinds() []segment.Kind {
	return append([]segment.Kind(nil), p.kinds...)
}

// NumCaptures returns the number of capturing groups.
func (p *Pattern) NumCaptures() int {
	return p.re.NumSubexp()
}

// String returns the regular expression source.
func (p *Pattern) String() string {
	return p.re.String()
}

// Match matches rawURL using the pattern's own parameter names.
func (p *Pattern) Match(rawURL string) (*Result, bool, error) {
	return Match(p, p.names, rawURL)
}
