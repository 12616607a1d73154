package client

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/search"
)

type fakeBackend struct {
	queries []string
	coords  []models.Coordinates
	err     error
}

func (f *fakeBackend) Weather(ctx context.Context, coords models.Coordinates, format string) (string, error) {
	f.coords = append(f.coords, coords)
	if f.err != nil {
		return "", f.err
	}
	return "Now\n15°C  Light Rain", nil
}

func (f *fakeBackend) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return search.Results([]models.Place{
		{Name: "London", Country: "GB", Latitude: 51.5, Longitude: -0.12},
		{Name: "London", State: "Ontario", Country: "CA", Latitude: 42.98, Longitude: -81.24},
	}), nil
}

func typeText(m tuiModel, text string) (tuiModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, r := range text {
		var next tea.Model
		next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(tuiModel)
	}
	return m, cmd
}

func update(m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(tuiModel), cmd
}

func TestTUISearchAndSelect(t *testing.T) {
	backend := &fakeBackend{}
	m := newTUIModel(context.Background(), backend, time.Millisecond)

	m, cmd := typeText(m, "Lon")
	if cmd == nil || m.seq != 3 {
		t.Fatalf("seq = %d, cmd = %v", m.seq, cmd)
	}

	// an earlier keystroke's timer is ignored
	m, cmd = update(m, debounceMsg{seq: 1})
	if cmd != nil || m.searching {
		t.Fatal("stale debounce started a search")
	}

	m, cmd = update(m, debounceMsg{seq: 3})
	if !m.searching || cmd == nil {
		t.Fatal("search not started")
	}
	m, _ = update(m, cmd())
	if len(backend.queries) != 1 || backend.queries[0] != "Lon" {
		t.Errorf("queries = %v", backend.queries)
	}
	if len(m.results) != 2 || m.searching {
		t.Fatalf("results = %v", m.results)
	}
	if view := m.View(); !strings.Contains(view, "> London") || !strings.Contains(view, "Ontario CA") {
		t.Errorf("view:\n%s", view)
	}

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}

	m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.loading || cmd == nil {
		t.Fatal("enter did not fetch weather")
	}
	m, _ = update(m, cmd())
	if len(backend.coords) != 1 || backend.coords[0].Latitude != 42.98 {
		t.Errorf("coords = %v", backend.coords)
	}
	if !strings.Contains(m.View(), "15°C  Light Rain") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestTUIStaleResults(t *testing.T) {
	m := newTUIModel(context.Background(), &fakeBackend{}, time.Millisecond)
	m, _ = typeText(m, "Par")

	m, _ = update(m, searchResultsMsg{seq: 1, results: []search.Result{{Title: "Pa"}}})
	if len(m.results) != 0 {
		t.Errorf("stale results shown: %v", m.results)
	}
}

func TestTUIEmptyInputClears(t *testing.T) {
	backend := &fakeBackend{}
	m := newTUIModel(context.Background(), backend, time.Millisecond)
	m, _ = typeText(m, "L")
	m, _ = update(m, searchResultsMsg{seq: 1, results: []search.Result{{Title: "London"}}})

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyBackspace})
	if cmd != nil || len(m.results) != 0 || len(m.query) != 0 {
		t.Errorf("results = %v, query = %q", m.results, string(m.query))
	}
	if len(backend.queries) != 0 {
		t.Errorf("empty input searched: %v", backend.queries)
	}
}

func TestTUIWeatherError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("Weather data is currently unavailable")}
	m := newTUIModel(context.Background(), backend, time.Millisecond)
	m.results = []search.Result{{Title: "London"}}

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(m, cmd())
	if m.loading || !strings.Contains(m.View(), "Weather data is currently unavailable") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestTUIQuit(t *testing.T) {
	m := newTUIModel(context.Background(), &fakeBackend{}, 0)
	if m.delay != search.DefaultDelay {
		t.Errorf("delay = %v", m.delay)
	}

	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd == nil {
			t.Fatalf("%v: no command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v did not quit", key)
		}
	}
}
