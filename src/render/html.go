// Package render turns pipeline views into HTML fragments for the browser
// and styled text for the terminal.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/search"
	"github.com/apimgr/weatherio/src/server"
)

// DefaultIconURL is the OpenWeatherMap icon set; {icon} is replaced by the code
const DefaultIconURL = "https://openweathermap.org/img/wn/{icon}@2x.png"

// PageData fills the page shell
type PageData struct {
	Title       string
	AppName     string
	Description string
	DefaultHash string
	WSPath      string
	State       pipeline.State
}

// HTML renders views with the embedded templates
type HTML struct {
	tmpl *template.Template
}

var pollutantLabels = map[string]template.HTML{
	"PM2.5": "PM<sub>2.5</sub>",
	"SO2":   "SO<sub>2</sub>",
	"NO2":   "NO<sub>2</sub>",
	"O3":    "O<sub>3</sub>",
}

// NewHTML parses the templates. iconURL may contain {icon}.
func NewHTML(iconURL string) (*HTML, error) {
	if iconURL == "" {
		iconURL = DefaultIconURL
	}

	funcs := template.FuncMap{
		"icon": func(code string) string {
			return strings.ReplaceAll(iconURL, "{icon}", code)
		},
		"pollutant": func(name string) template.HTML {
			if label, ok := pollutantLabels[name]; ok {
				return label
			}
			return template.HTML(template.HTMLEscapeString(name))
		},
	}

	tmpl, err := server.LoadTemplates(funcs)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return &HTML{tmpl: tmpl}, nil
}

// View renders one view into the fragment for its region
func (h *HTML) View(v pipeline.View) (string, error) {
	name := string(v.Region())
	if e, ok := v.(*pipeline.SectionError); ok {
		name = "section-error"
		if e.Target == pipeline.RegionLocation {
			name = "location-error"
		}
	}
	return h.fragment(name, v)
}

// SearchResults renders the result list
func (h *HTML) SearchResults(results []search.Result) (string, error) {
	return h.fragment("search-results", results)
}

// Page writes the full page shell
func (h *HTML) Page(w io.Writer, data PageData) error {
	return h.tmpl.ExecuteTemplate(w, "index", data)
}

func (h *HTML) fragment(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
