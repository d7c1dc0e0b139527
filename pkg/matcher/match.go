package matcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

// ParamKind describes the shape of a matched parameter.
type ParamKind int

const (
	// ParamString is a single decoded component (dynamic segments)
	ParamString ParamKind = iota
	// ParamList is an ordered list of decoded components (catch-alls)
	ParamList
	// ParamAbsent marks an optional catch-all that matched nothing
	ParamAbsent
)

// Param is one matched parameter value.
type Param struct {
	Kind   ParamKind
	Value  string
	Values []string
}

// MarshalJSON encodes strings as strings, lists as arrays and absent
// values as null.
func (p Param) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ParamString:
		return json.Marshal(p.Value)
	case ParamList:
		return json.Marshal(p.Values)
	}
	return []byte("null"), nil
}

// Result is the outcome of a successful match. Each match produces a new
// Result; nothing is shared between calls.
type Result struct {
	Params map[string]Param `json:"params"`
	Query  Query            `json:"query"`
	// Hash is the decoded fragment, nil when the URL has none
	Hash *string `json:"hash"`
}

// ErrInvalidUTF8 is wrapped by a DecodeError when a decoded URL part is not
// valid UTF-8 (e.g., "%FF").
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// DecodeError reports a URL component that is not valid percent-encoding
// or does not decode to valid UTF-8.
type DecodeError struct {
	Part  string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s %q: %v", e.Part, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Match applies p to rawURL, binding captures to names in order.
//
// It reports matched=false without an error when the path does not match.
// A non-nil error means the URL itself is malformed. Passing a names slice
// whose length differs from the pattern's capture count is a programming
// error and panics.
func Match(p *Pattern, names []string, rawURL string) (*Result, bool, error) {
	if len(names) != p.re.NumSubexp() {
		panic(fmt.Sprintf("matcher: %d parameter names for pattern %q with %d captures",
			len(names), p.key, p.re.NumSubexp()))
	}

	path, rawQuery, fragment, hasFragment, err := splitURL(rawURL)
	if err != nil {
		return nil, false, err
	}

	loc := p.re.FindStringSubmatchIndex(path)
	if loc == nil {
		return nil, false, nil
	}

	result := &Result{
		Params: make(map[string]Param, len(names)),
		Query:  ParseQuery(rawQuery),
	}

	for i, name := range names {
		start, end := loc[2*i+2], loc[2*i+3]
		param, err := decodeCapture(p.kinds[i], path, start, end)
		if err != nil {
			return nil, false, err
		}
		result.Params[name] = param
	}

	if hasFragment && fragment != "" {
		hash, err := unescape("fragment", fragment)
		if err != nil {
			return nil, false, err
		}
		result.Hash = &hash
	}

	return result, true, nil
}

// decodeCapture decodes one captured group. Catch-all captures are split
// on "/" before decoding so an encoded %2F stays inside its component.
func decodeCapture(kind segment.Kind, path string, start, end int) (Param, error) {
	switch kind {
	case segment.Dynamic:
		value, err := unescape("path parameter", path[start:end])
		if err != nil {
			return Param{}, err
		}
		return Param{Kind: ParamString, Value: value}, nil

	case segment.CatchAll, segment.OptionalCatchAll:
		if start < 0 || start == end {
			if kind == segment.OptionalCatchAll {
				return Param{Kind: ParamAbsent}, nil
			}
			return Param{Kind: ParamList, Values: []string{}}, nil
		}
		values, err := splitDecode(path[start:end])
		if err != nil {
			return Param{}, err
		}
		if len(values) == 0 && kind == segment.OptionalCatchAll {
			return Param{Kind: ParamAbsent}, nil
		}
		return Param{Kind: ParamList, Values: values}, nil
	}
	panic(fmt.Sprintf("matcher: unhandled capture kind %d", kind))
}

func splitDecode(raw string) ([]string, error) {
	parts := strings.Split(raw, "/")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		value, err := unescape("path parameter", part)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// unescape percent-decodes one URL part. The decoded bytes must be valid
// UTF-8.
func unescape(part, raw string) (string, error) {
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", &DecodeError{Part: part, Value: raw, Err: err}
	}
	if !utf8.ValidString(value) {
		return "", &DecodeError{Part: part, Value: raw, Err: ErrInvalidUTF8}
	}
	return value, nil
}

// splitURL separates an absolute or root-relative URL into its escaped
// path, raw query and raw fragment.
func splitURL(rawURL string) (path, rawQuery, fragment string, hasFragment bool, err error) {
	rest, fragment, hasFragment := strings.Cut(rawURL, "#")
	rest, rawQuery, _ = strings.Cut(rest, "?")

	u, err := url.Parse(rest)
	if err != nil {
		return "", "", "", false, &DecodeError{Part: "path", Value: rest, Err: err}
	}

	path = u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return path, rawQuery, fragment, hasFragment, nil
}
