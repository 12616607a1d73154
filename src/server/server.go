package server

import (
	"embed"
	"html/template"
	"io/fs"
)

// Embed all templates and static files into the binary

//go:embed templates/*/*.tmpl
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// GetTemplatesFS returns the embedded templates filesystem
func GetTemplatesFS() embed.FS {
	return templatesFS
}

// GetStaticSubFS returns the static files as a sub-filesystem for http.FileServer
func GetStaticSubFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

// LoadTemplates parses the page and section templates with the given helpers
func LoadTemplates(funcs template.FuncMap) (*template.Template, error) {
	return template.New("weather").Funcs(funcs).ParseFS(templatesFS, "templates/*/*.tmpl")
}
