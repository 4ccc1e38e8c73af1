// Package templates holds the pages served by sntpal-report.
package templates

import (
	"embed"
	"html/template"
	"time"
)

const Index = "index.tmpl.html"

//go:embed templates/*.tmpl.html
var resources embed.FS

var funcs = template.FuncMap{
	"rfc3339": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	},
}

var TemplateExecutor = template.Must(template.New("").Funcs(funcs).ParseFS(resources, "templates/*.tmpl.html"))
