package render

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/search"
)

// textOf parses an HTML fragment and returns its text content
func textOf(t *testing.T, fragment string) string {
	t.Helper()
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div})
	if err != nil {
		t.Fatalf("invalid HTML: %v", err)
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// findAttr returns the value of attr on the first element carrying it
func findAttr(t *testing.T, fragment, attr string) (string, bool) {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("invalid HTML: %v", err)
	}
	var find func(*html.Node) (string, bool)
	find = func(n *html.Node) (string, bool) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == attr {
					return a.Val, true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if v, ok := find(c); ok {
				return v, true
			}
		}
		return "", false
	}
	return find(doc)
}

func newHTML(t *testing.T) *HTML {
	t.Helper()
	h, err := NewHTML("/icons/{icon}.png")
	if err != nil {
		t.Fatalf("NewHTML() error = %v", err)
	}
	return h
}

func TestCurrentWeatherFragment(t *testing.T) {
	h := newHTML(t)
	view := pipeline.NewCurrentView(&models.CurrentConditions{
		Temperature: 15.4,
		Description: "light rain",
		Icon:        "10d",
		ObservedAt:  1719792000,
	})

	out, err := h.View(view)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}

	text := textOf(t, out)
	if !strings.Contains(text, "15°c") {
		t.Errorf("text = %q, want 15°c", text)
	}
	if !strings.Contains(text, "Monday, 1, July") {
		t.Errorf("text = %q, want date", text)
	}
	if src, _ := findAttr(t, out, "src"); src != "/icons/10d.png" {
		t.Errorf("icon src = %q", src)
	}
	if _, ok := findAttr(t, out, "data-location"); !ok {
		t.Error("location slot missing")
	}
}

func TestHighlightsFragment(t *testing.T) {
	h := newHTML(t)
	view, err := pipeline.NewHighlightsView(
		&models.AirQuality{Index: 4, PM2_5: 3.2, SO2: 1.4, NO2: 12.5, O3: 68.66},
		&models.CurrentConditions{Humidity: 81, Pressure: 1012, Visibility: 8500, FeelsLike: 13.8},
	)
	if err != nil {
		t.Fatal(err)
	}

	out, err := h.View(view)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	text := textOf(t, out)
	for _, want := range []string{"Poor", "3.20", "PM2.5", "68.7", "81%", "1012hPa", "8.5km", "13°c"} {
		if !strings.Contains(text, want) {
			t.Errorf("text %q missing %q", text, want)
		}
	}
	if !strings.Contains(out, `class="badge aqi_4 label_4"`) {
		t.Errorf("AQI badge class missing in %s", out)
	}
}

func TestForecastFragments(t *testing.T) {
	h := newHTML(t)
	forecast := &models.Forecast{}
	for i := 0; i < 16; i++ {
		forecast.Entries = append(forecast.Entries, models.ForecastEntry{
			Time: 1719792000 + int64(i)*3*3600, Temperature: 20.7, TempMax: 22.2,
			Icon: "01d", Description: "clear sky", WindDirection: 0, WindSpeed: 5,
		})
	}

	hourly, err := h.View(pipeline.NewHourlyView(forecast))
	if err != nil {
		t.Fatalf("hourly error = %v", err)
	}
	if n := strings.Count(hourly, `class="slider_item"`); n != 16 {
		t.Errorf("slider items = %d, want 16 (8 temperature + 8 wind)", n)
	}
	if !strings.Contains(hourly, "rotate(-180deg)") {
		t.Errorf("wind rotation missing in %s", hourly)
	}
	if !strings.Contains(textOf(t, hourly), "18 km/h") {
		t.Errorf("wind speed missing in %s", textOf(t, hourly))
	}

	daily, err := h.View(pipeline.NewDailyView(forecast))
	if err != nil {
		t.Fatalf("daily error = %v", err)
	}
	text := textOf(t, daily)
	if !strings.Contains(text, "22°") || !strings.Contains(text, "1 July") || !strings.Contains(text, "Monday") {
		t.Errorf("daily text = %q", text)
	}
}

func TestSectionErrorFragments(t *testing.T) {
	h := newHTML(t)

	out, err := h.View(&pipeline.SectionError{Target: pipeline.RegionHighlights, Message: "Air quality is unavailable"})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := findAttr(t, out, "data-section-error"); v != "highlights" {
		t.Errorf("data-section-error = %q", v)
	}

	loc, err := h.View(&pipeline.SectionError{Target: pipeline.RegionLocation, Message: "Location unavailable"})
	if err != nil {
		t.Fatal(err)
	}
	if textOf(t, loc) != "Location unavailable" {
		t.Errorf("location error = %q", loc)
	}
}

func TestLocationFragmentEscapes(t *testing.T) {
	h := newHTML(t)
	out, err := h.View(&pipeline.LocationView{Name: "<b>Oslo</b>", Country: "NO"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<b>") {
		t.Errorf("name not escaped: %s", out)
	}
	if textOf(t, out) != "<b>Oslo</b>, NO" {
		t.Errorf("text = %q", textOf(t, out))
	}
}

func TestSearchResultsFragment(t *testing.T) {
	h := newHTML(t)
	results := search.Results([]models.Place{
		{Name: "London", State: "England", Country: "GB", Latitude: 51.5073219, Longitude: -0.1276474},
	})

	out, err := h.SearchResults(results)
	if err != nil {
		t.Fatal(err)
	}
	if href, _ := findAttr(t, out, "href"); href != "#/weather?lat=51.5073219&lon=-0.1276474" {
		t.Errorf("href = %q", href)
	}
	if text := textOf(t, out); text != "location_on London England GB" {
		t.Errorf("text = %q", text)
	}
}

func TestPage(t *testing.T) {
	h := newHTML(t)
	var buf bytes.Buffer
	err := h.Page(&buf, PageData{Title: "Weather", AppName: "weatherio", DefaultHash: "#/weather?lat=1&lon=2", WSPath: "/ws"})
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}

	for _, hook := range []string{
		"data-current-weather", "data-highlights", "data-hourly-forecast", "data-5-day-forecast",
		"data-loading", "data-error-content", "data-container", "data-current-location-btn",
		"data-search-field", "data-search-result", "data-search-view",
	} {
		if _, ok := findAttr(t, buf.String(), hook); !ok {
			t.Errorf("page is missing %s", hook)
		}
	}
	if v, _ := findAttr(t, buf.String(), "data-default-hash"); v != "#/weather?lat=1&lon=2" {
		t.Errorf("data-default-hash = %q", v)
	}
}

func TestTerminalSnapshot(t *testing.T) {
	snap := pipeline.NewSnapshot()
	snap.SetState(pipeline.Ready, "")
	snap.Render(&pipeline.CurrentView{Temperature: 15, Description: "light rain", Date: "Monday, 1, July"})
	snap.Render(&pipeline.LocationView{Name: "London", Country: "GB"})
	snap.Render(&pipeline.SectionError{Target: pipeline.RegionHighlights, Message: "Air quality is unavailable"})
	snap.Render(&pipeline.HourlyView{Items: []pipeline.HourlyItem{{Hour: "3 PM", Temperature: 17, WindRotation: 90, WindSpeedKmh: 12}}})

	out := NewTerminal().Snapshot(snap)
	for _, want := range []string{"15°C", "Light Rain", "London, GB", "Air quality is unavailable", "3 PM", "→ 12 km/h"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalErrorState(t *testing.T) {
	snap := pipeline.NewSnapshot()
	snap.SetState(pipeline.Error, pipeline.UnavailableMessage)
	if out := NewTerminal().Snapshot(snap); !strings.Contains(out, pipeline.UnavailableMessage) {
		t.Errorf("output = %q", out)
	}
}

func TestWindArrow(t *testing.T) {
	tests := map[int]string{0: "↑", 90: "→", -180: "↓", 180: "↓", -90: "←", 45: "↗", 359: "↑", 200: "↓"}
	for rotation, want := range tests {
		if got := WindArrow(rotation); got != want {
			t.Errorf("WindArrow(%d) = %s, want %s", rotation, got, want)
		}
	}
}
