package generator

import "github.com/watanabe-1/rpc4next-sub001/pkg/segment"

type routeTemplateData struct {
	Package   string
	Key       string
	Handlers  []handler
	WithQuery bool
	Params    []segment.Segment
}

// Route template
var routeTemplate = `package {{.Package}}

import "net/http"
{{if .WithQuery}}
// Query is the query string accepted by {{.Key}}.
type Query struct {
}
{{end}}
{{- range .Handlers}}
// {{.Symbol}} handles {{.Method}} {{$.Key}}
{{- if $.Params}}
//
// Path parameters are declared by Params in params_gen.go:
{{- range $.Params}}
//   - {{.Name}} ({{.Kind}})
{{- end}}
{{- end}}
func {{.Symbol}}(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}
{{end}}`
