package matcher

import (
	"encoding/json"
	"net/url"
	"strings"
)

// QueryValue is a query parameter value. A key seen once is a scalar; a
// key seen more than once is a list in encounter order. The shape follows
// the arity in the URL, not any declared type.
type QueryValue struct {
	Value  string
	Values []string
}

// IsList reports whether the key appeared more than once.
func (v QueryValue) IsList() bool {
	return v.Values != nil
}

// All returns the value(s) as a slice regardless of arity.
func (v QueryValue) All() []string {
	if v.IsList() {
		return v.Values
	}
	return []string{v.Value}
}

// MarshalJSON encodes scalars as strings and lists as arrays.
func (v QueryValue) MarshalJSON() ([]byte, error) {
	if v.IsList() {
		return json.Marshal(v.Values)
	}
	return json.Marshal(v.Value)
}

// Query maps query keys to values.
type Query map[string]QueryValue

// Get returns the first value for key.
func (q Query) Get(key string) string {
	v, ok := q[key]
	if !ok {
		return ""
	}
	if v.IsList() {
		return v.Values[0]
	}
	return v.Value
}

// ParseQuery parses a raw query string ("a=1&a=2&b=3", no leading "?").
// Keys and values are decoded with "+" read as a space. Sequences that are
// not valid percent-encoding are kept verbatim rather than rejected.
func ParseQuery(rawQuery string) Query {
	q := make(Query)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key := unescapeQuery(rawKey)
		value := unescapeQuery(rawValue)

		existing, ok := q[key]
		switch {
		case !ok:
			q[key] = QueryValue{Value: value}
		case existing.IsList():
			existing.Values = append(existing.Values, value)
			q[key] = existing
		default:
			q[key] = QueryValue{Values: []string{existing.Value, value}}
		}
	}
	return q
}

func unescapeQuery(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
