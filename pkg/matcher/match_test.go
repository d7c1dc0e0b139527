package matcher

import (
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/watanabe-1/rpc4next-sub001/pkg/segment"
)

func mustCompile(t *testing.T, key string) *Pattern {
	t.Helper()
	p, err := CompileKey(key)
	if err != nil {
		t.Fatalf("CompileKey(%q) failed: %v", key, err)
	}
	return p
}

func mustMatch(t *testing.T, p *Pattern, rawURL string) *Result {
	t.Helper()
	res, ok, err := p.Match(rawURL)
	if err != nil {
		t.Fatalf("Match(%q) error: %v", rawURL, err)
	}
	if !ok {
		t.Fatalf("Match(%q) against %q: expected a match", rawURL, p.Key())
	}
	return res
}

func TestCompile_Captures(t *testing.T) {
	tests := []struct {
		key       string
		wantNames []string
	}{
		{"/", nil},
		{"/api/users", nil},
		{"/users/_id", []string{"id"}},
		{"/users/_userId/posts/_postId", []string{"userId", "postId"}},
		{"/docs/___slug", []string{"slug"}},
		{"/docs/_____slug", []string{"slug"}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p := mustCompile(t, tt.key)
			if p.NumCaptures() != len(tt.wantNames) {
				t.Errorf("NumCaptures() = %d, want %d", p.NumCaptures(), len(tt.wantNames))
			}
			if !reflect.DeepEqual(p.Names(), tt.wantNames) {
				t.Errorf("Names() = %v, want %v", p.Names(), tt.wantNames)
			}
			if !strings.HasPrefix(p.String(), "^") || !strings.HasSuffix(p.String(), "$") {
				t.Errorf("pattern %q is not anchored", p.String())
			}
		})
	}
}

func TestCompileKey_Invalid(t *testing.T) {
	for _, key := range []string{"/___a/b", "/_id/_id", "/users/_"} {
		if _, err := CompileKey(key); !errors.Is(err, segment.ErrInvalidChain) {
			t.Errorf("CompileKey(%q) error = %v, want ErrInvalidChain", key, err)
		}
	}
}

func TestMatch_Dynamic(t *testing.T) {
	p := mustCompile(t, "/users/_id")

	res := mustMatch(t, p, "/users/42")
	if got := res.Params["id"]; got.Kind != ParamString || got.Value != "42" {
		t.Errorf("id = %+v, want string 42", got)
	}
}

func TestMatch_UnicodeComponent(t *testing.T) {
	p := mustCompile(t, "/users/_id")

	res := mustMatch(t, p, "/users/%E3%81%93%E3%82%93%E3%81%AB%E3%81%A1%E3%81%AF")
	if got := res.Params["id"].Value; got != "こんにちは" {
		t.Errorf("id = %q, want こんにちは", got)
	}
}

func TestMatch_UnicodeStatic(t *testing.T) {
	p := mustCompile(t, "/こんにちは/_id")

	for _, rawURL := range []string{
		"/%E3%81%93%E3%82%93%E3%81%AB%E3%81%A1%E3%81%AF/1",
		"/こんにちは/1",
	} {
		res := mustMatch(t, p, rawURL)
		if res.Params["id"].Value != "1" {
			t.Errorf("Match(%q) id = %q, want 1", rawURL, res.Params["id"].Value)
		}
	}
}

func TestMatch_TrailingSlash(t *testing.T) {
	p := mustCompile(t, "/blog/_year/_month/_day")

	a := mustMatch(t, p, "/blog/2020/10/01")
	b := mustMatch(t, p, "/blog/2020/10/01/")
	if !reflect.DeepEqual(a.Params, b.Params) {
		t.Errorf("trailing slash changed params: %v vs %v", a.Params, b.Params)
	}
	if a.Params["month"].Value != "10" {
		t.Errorf("month = %q, want 10", a.Params["month"].Value)
	}
}

func TestMatch_NoPartialMatch(t *testing.T) {
	tests := []struct {
		key string
		url string
	}{
		{"/users/_id", "/users"},
		{"/users/_id", "/users/"},
		{"/users/_id", "/users/1/edit"},
		{"/users", "/api/users"},
		{"/docs/___slug", "/docs"},
		{"/docs/___slug", "/docs/"},
		{"/", "/anything"},
	}

	for _, tt := range tests {
		t.Run(tt.key+" "+tt.url, func(t *testing.T) {
			p := mustCompile(t, tt.key)
			res, ok, err := p.Match(tt.url)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok || res != nil {
				t.Errorf("Match(%q) against %q = %+v, want no match", tt.url, tt.key, res)
			}
		})
	}
}

func TestMatch_Root(t *testing.T) {
	p := mustCompile(t, "/")
	for _, rawURL := range []string{"/", "", "/?q=1", "https://example.com"} {
		if _, ok, err := p.Match(rawURL); !ok || err != nil {
			t.Errorf("Match(%q) = (%v, %v), want match", rawURL, ok, err)
		}
	}
}

func TestMatch_CatchAll(t *testing.T) {
	p := mustCompile(t, "/docs/___slug")

	res := mustMatch(t, p, "/docs/a/b/c")
	want := []string{"a", "b", "c"}
	if got := res.Params["slug"]; got.Kind != ParamList || !reflect.DeepEqual(got.Values, want) {
		t.Errorf("slug = %+v, want %v", got, want)
	}

	res = mustMatch(t, p, "/docs/only")
	if got := res.Params["slug"].Values; !reflect.DeepEqual(got, []string{"only"}) {
		t.Errorf("slug = %v, want [only]", got)
	}
}

func TestMatch_CatchAllEmptyComponents(t *testing.T) {
	tests := []struct {
		key    string
		rawURL string
		want   []string
	}{
		{"/docs/___slug", "/docs/a//b", []string{"a", "b"}},
		{"/docs/___slug", "/docs/a///b/", []string{"a", "b"}},
		{"/docs/_____slug", "/docs/a//b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			res := mustMatch(t, mustCompile(t, tt.key), tt.rawURL)
			if got := res.Params["slug"]; got.Kind != ParamList || !reflect.DeepEqual(got.Values, tt.want) {
				t.Errorf("slug = %+v, want %q", got, tt.want)
			}
		})
	}

	// a catch-all still needs one non-empty component
	for _, rawURL := range []string{"/docs//", "/docs//a"} {
		if _, ok, err := mustCompile(t, "/docs/___slug").Match(rawURL); ok || err != nil {
			t.Errorf("Match(%q) = (%v, %v), want no-match", rawURL, ok, err)
		}
	}
}

func TestMatch_CatchAllSplitsBeforeDecoding(t *testing.T) {
	p := mustCompile(t, "/files/___path")

	res := mustMatch(t, p, "/files/a%2Fb/c%20d")
	want := []string{"a/b", "c d"}
	if got := res.Params["path"].Values; !reflect.DeepEqual(got, want) {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestMatch_OptionalCatchAll(t *testing.T) {
	p := mustCompile(t, "/shop/_____slug")

	for _, rawURL := range []string{"/shop", "/shop/"} {
		res := mustMatch(t, p, rawURL)
		got, ok := res.Params["slug"]
		if !ok {
			t.Fatalf("Match(%q): slug missing from params", rawURL)
		}
		if got.Kind != ParamAbsent {
			t.Errorf("Match(%q): slug kind = %v, want ParamAbsent", rawURL, got.Kind)
		}
		if got.Values != nil {
			t.Errorf("Match(%q): absent slug carries values %v", rawURL, got.Values)
		}
	}

	res := mustMatch(t, p, "/shop/shoes/red")
	if got := res.Params["slug"]; got.Kind != ParamList || !reflect.DeepEqual(got.Values, []string{"shoes", "red"}) {
		t.Errorf("slug = %+v, want [shoes red]", got)
	}
}

func TestMatch_QueryArity(t *testing.T) {
	p := mustCompile(t, "/search")

	res := mustMatch(t, p, "/search?id=1&id=2&page=5")

	id := res.Query["id"]
	if !id.IsList() || !reflect.DeepEqual(id.Values, []string{"1", "2"}) {
		t.Errorf("id = %+v, want list [1 2]", id)
	}
	page := res.Query["page"]
	if page.IsList() || page.Value != "5" {
		t.Errorf("page = %+v, want scalar 5", page)
	}
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery("a=1&b=x+y&a=2&c&a=3&&d=%E3%81%82&bad=%zz")

	if got := q["a"].Values; !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Errorf("a = %v, want [1 2 3]", got)
	}
	if got := q.Get("b"); got != "x y" {
		t.Errorf("b = %q, want %q", got, "x y")
	}
	if v, ok := q["c"]; !ok || v.Value != "" || v.IsList() {
		t.Errorf("c = %+v, want empty scalar", v)
	}
	if got := q.Get("d"); got != "あ" {
		t.Errorf("d = %q, want あ", got)
	}
	if got := q.Get("bad"); got != "%zz" {
		t.Errorf("bad = %q, want raw %%zz", got)
	}
	if got := q.Get("missing"); got != "" {
		t.Errorf("missing = %q, want empty", got)
	}
	if len(ParseQuery("")) != 0 {
		t.Error("empty query should parse to an empty map")
	}
}

func TestMatch_Fragment(t *testing.T) {
	p := mustCompile(t, "/page")

	res := mustMatch(t, p, "/page")
	if res.Hash != nil {
		t.Errorf("Hash = %q, want nil", *res.Hash)
	}

	res = mustMatch(t, p, "/page?x=1#section%20two")
	if res.Hash == nil || *res.Hash != "section two" {
		t.Errorf("Hash = %v, want %q", res.Hash, "section two")
	}
	if res.Query.Get("x") != "1" {
		t.Errorf("query lost when fragment present: %v", res.Query)
	}

	for _, rawURL := range []string{"/page#", "/page?x=1#"} {
		res = mustMatch(t, p, rawURL)
		if res.Hash != nil {
			t.Errorf("Match(%q): Hash = %q, want nil", rawURL, *res.Hash)
		}
	}
}

func TestMatch_AbsoluteURL(t *testing.T) {
	p := mustCompile(t, "/users/_id")

	res := mustMatch(t, p, "https://example.com/users/7?tab=posts")
	if res.Params["id"].Value != "7" || res.Query.Get("tab") != "posts" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestMatch_Malformed(t *testing.T) {
	p := mustCompile(t, "/users/_id")

	_, ok, err := p.Match("/users/%zz")
	if ok {
		t.Error("malformed URL must not match")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}

	_, _, err = p.Match("/users/1#%zz")
	if !errors.As(err, &decodeErr) || decodeErr.Part != "fragment" {
		t.Errorf("fragment error = %v, want fragment DecodeError", err)
	}

	for _, tc := range []struct {
		key    string
		rawURL string
		part   string
	}{
		{"/users/_id", "/users/%FF", "path parameter"},
		{"/files/___path", "/files/ok/%C3%28", "path parameter"},
		{"/users/_id", "/users/1#%FF", "fragment"},
	} {
		_, ok, err := mustCompile(t, tc.key).Match(tc.rawURL)
		if ok || !errors.As(err, &decodeErr) || decodeErr.Part != tc.part || !errors.Is(err, ErrInvalidUTF8) {
			t.Errorf("Match(%q) = (%v, %v), want %s ErrInvalidUTF8", tc.rawURL, ok, err, tc.part)
		}
	}
}

func TestMatch_NameCountMismatchPanics(t *testing.T) {
	p := mustCompile(t, "/users/_id")

	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched parameter names")
		}
	}()
	_, _, _ = Match(p, []string{"id", "extra"}, "/users/1")
}

func TestMatch_RoundTrip(t *testing.T) {
	tests := []struct {
		key    string
		values map[string][]string
	}{
		{"/users/_id", map[string][]string{"id": {"a b"}}},
		{"/orgs/_org/repos/_repo", map[string][]string{"org": {"go"}, "repo": {"x/y"}}},
		{"/docs/___slug", map[string][]string{"slug": {"guide", "intro", "ü"}}},
		{"/shop/_cat/_____rest", map[string][]string{"cat": {"1"}, "rest": {"a", "b%c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			segments := segment.Split(tt.key)
			var parts []string
			for _, seg := range segments {
				if seg.Kind == segment.Static {
					parts = append(parts, seg.Raw)
					continue
				}
				for _, v := range tt.values[seg.Name] {
					parts = append(parts, url.PathEscape(v))
				}
			}
			rawURL := "/" + strings.Join(parts, "/")

			res := mustMatch(t, Compile(segments), rawURL)
			for _, seg := range segment.Params(segments) {
				got := res.Params[seg.Name]
				want := tt.values[seg.Name]
				if seg.Kind == segment.Dynamic {
					if got.Value != want[0] {
						t.Errorf("%s = %q, want %q", seg.Name, got.Value, want[0])
					}
					continue
				}
				if !reflect.DeepEqual(got.Values, want) {
					t.Errorf("%s = %q, want %q", seg.Name, got.Values, want)
				}
			}
		})
	}
}

func TestResult_JSON(t *testing.T) {
	p := mustCompile(t, "/docs/_lang/_____slug")
	res := mustMatch(t, p, "/docs/en?tag=a&tag=b&v=1")

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"params":{"lang":"en","slug":null},"query":{"tag":["a","b"],"v":"1"},"hash":null}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}
