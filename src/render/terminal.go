package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/search"
)

var windArrows = []string{"↑", "↗", "→", "↘", "↓", "↙", "←", "↖"}

// Terminal renders a snapshot as styled text. Styles degrade to plain text
// when the output is not a terminal.
type Terminal struct {
	heading lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	muted   lipgloss.Style
	alert   lipgloss.Style
	box     lipgloss.Style
	title   cases.Caser
}

// NewTerminal creates a terminal renderer for stdout
func NewTerminal() *Terminal {
	return newTerminal(lipgloss.DefaultRenderer())
}

// NewTerminalFor creates a renderer whose color support follows w, so
// output to a pipe or an HTTP response stays plain
func NewTerminalFor(w io.Writer) *Terminal {
	return newTerminal(lipgloss.NewRenderer(w))
}

func newTerminal(r *lipgloss.Renderer) *Terminal {
	return &Terminal{
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		label:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		value:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#626262")),
		alert:   r.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		title: cases.Title(language.English),
	}
}

// Snapshot renders every filled region of s
func (t *Terminal) Snapshot(s *pipeline.Snapshot) string {
	if state, msg := s.State(); state == pipeline.Error {
		return t.alert.Render(msg)
	}

	var blocks []string
	if v := s.View(pipeline.RegionCurrent); v != nil {
		blocks = append(blocks, t.box.Render(t.current(v, s.View(pipeline.RegionLocation))))
	}
	if v := s.View(pipeline.RegionHighlights); v != nil {
		blocks = append(blocks, t.section("Todays Highlights", t.highlights(v)))
	}
	if v := s.View(pipeline.RegionHourly); v != nil {
		blocks = append(blocks, t.section("Today at", t.hourly(v)))
	}
	if v := s.View(pipeline.RegionDaily); v != nil {
		blocks = append(blocks, t.section("5 Days Forecast", t.daily(v)))
	}
	return strings.Join(blocks, "\n\n")
}

// SearchResults renders a numbered result list
func (t *Terminal) SearchResults(results []search.Result) string {
	if len(results) == 0 {
		return t.muted.Render("No places found")
	}
	lines := make([]string, 0, len(results))
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. %s %s", i+1, t.value.Render(r.Title), t.label.Render(r.Subtitle)))
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) section(title, body string) string {
	return t.heading.Render(title) + "\n" + body
}

func (t *Terminal) current(v, loc pipeline.View) string {
	cv, ok := v.(*pipeline.CurrentView)
	if !ok {
		return t.sectionError(v)
	}

	place := ""
	switch l := loc.(type) {
	case *pipeline.LocationView:
		place = l.Label()
	case *pipeline.SectionError:
		place = l.Message
	}

	lines := []string{
		t.heading.Render("Now"),
		fmt.Sprintf("%s  %s", t.value.Render(fmt.Sprintf("%d°C", cv.Temperature)), t.title.String(cv.Description)),
		t.label.Render(cv.Date),
	}
	if place != "" {
		lines = append(lines, t.label.Render(place))
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) highlights(v pipeline.View) string {
	hv, ok := v.(*pipeline.HighlightsView)
	if !ok {
		return t.sectionError(v)
	}

	pollutants := make([]string, 0, len(hv.Pollutants))
	for _, p := range hv.Pollutants {
		pollutants = append(pollutants, fmt.Sprintf("%s %s", t.label.Render(p.Name), p.Value))
	}

	return strings.Join([]string{
		fmt.Sprintf("%s %s  %s", t.label.Render("Air Quality"), t.value.Render(hv.AQILevel), strings.Join(pollutants, "  ")),
		fmt.Sprintf("%s %s  %s %s", t.label.Render("Sunrise"), hv.Sunrise, t.label.Render("Sunset"), hv.Sunset),
		fmt.Sprintf("%s %d%%  %s %d hPa  %s %s km  %s %d°C",
			t.label.Render("Humidity"), hv.Humidity,
			t.label.Render("Pressure"), hv.Pressure,
			t.label.Render("Visibility"), hv.Visibility,
			t.label.Render("Feels Like"), hv.FeelsLike),
	}, "\n")
}

func (t *Terminal) hourly(v pipeline.View) string {
	hv, ok := v.(*pipeline.HourlyView)
	if !ok {
		return t.sectionError(v)
	}

	lines := make([]string, 0, len(hv.Items))
	for _, it := range hv.Items {
		lines = append(lines, fmt.Sprintf("%-6s %4d°  %s %d km/h",
			it.Hour, it.Temperature, WindArrow(it.WindRotation), it.WindSpeedKmh))
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) daily(v pipeline.View) string {
	dv, ok := v.(*pipeline.DailyView)
	if !ok {
		return t.sectionError(v)
	}

	lines := make([]string, 0, len(dv.Items))
	for _, it := range dv.Items {
		lines = append(lines, fmt.Sprintf("%-10s %2d %-9s %4d°  %s",
			it.Weekday, it.Day, it.Month, it.TempMax, t.title.String(it.Description)))
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) sectionError(v pipeline.View) string {
	if e, ok := v.(*pipeline.SectionError); ok {
		return t.alert.Render(e.Message)
	}
	return ""
}

// WindArrow maps an icon rotation in degrees to the nearest arrow, where 0
// points up.
func WindArrow(rotation int) string {
	deg := ((rotation % 360) + 360) % 360
	return windArrows[((deg+22)/45)%8]
}
