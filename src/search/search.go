// Package search turns free-text input into a short list of selectable
// places. Keystrokes are debounced, and a result that arrives after newer
// input is dropped.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/route"
	"github.com/apimgr/weatherio/src/server/metrics"
)

// MaxResults caps the list
const MaxResults = 5

// Geocoder resolves a query to places
type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]models.Place, error)
}

// Logger is the subset of the application logger the searcher writes to
type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

// Result is one selectable entry
type Result struct {
	Title       string             `json:"title"`
	Subtitle    string             `json:"subtitle"`
	Href        string             `json:"href"`
	Coordinates models.Coordinates `json:"coordinates"`
}

// ResultList is the visible list under the search field. Calls are
// serialized by the Searcher.
type ResultList interface {
	// SetSearching toggles the busy indicator of the field
	SetSearching(active bool)
	// ShowResults opens the list with the given entries
	ShowResults(results []Result)
	// Clear empties and closes the list
	Clear()
}

// Searcher wires input events to a Geocoder and a ResultList
type Searcher struct {
	geocoder Geocoder
	list     ResultList
	debounce *Debouncer
	logger   Logger
	onSelect func(Result)

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// Option configures a Searcher
type Option func(*Searcher)

// WithDelay sets the debounce delay
func WithDelay(d time.Duration) Option {
	return func(s *Searcher) { s.debounce = NewDebouncer(d) }
}

// WithLogger sets the logger
func WithLogger(l Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// WithOnSelect sets the callback run when an entry is chosen
func WithOnSelect(fn func(Result)) Option {
	return func(s *Searcher) { s.onSelect = fn }
}

// New creates a searcher
func New(geocoder Geocoder, list ResultList, opts ...Option) *Searcher {
	s := &Searcher{
		geocoder: geocoder,
		list:     list,
		debounce: NewDebouncer(DefaultDelay),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDelay changes the debounce delay, e.g. after a config reload
func (s *Searcher) SetDelay(d time.Duration) {
	s.debounce.SetDelay(d)
}

// Input handles the current text of the search field. Empty input clears
// the list at once and never fetches.
func (s *Searcher) Input(ctx context.Context, text string) {
	query := strings.TrimSpace(text)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.stopLocked()

	if query == "" {
		s.list.SetSearching(false)
		s.list.Clear()
		s.mu.Unlock()
		return
	}
	s.list.SetSearching(true)
	// under the lock, so the timer left pending belongs to the newest input
	s.debounce.Trigger(func() { s.run(ctx, gen, query) })
	s.mu.Unlock()
}

// Select closes the list and hands the entry to the select callback
func (s *Searcher) Select(r Result) {
	s.mu.Lock()
	s.generation++
	s.stopLocked()
	s.list.SetSearching(false)
	s.list.Clear()
	s.mu.Unlock()

	if s.onSelect != nil {
		s.onSelect(r)
	}
}

// Close cancels pending and in-flight searches
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.stopLocked()
}

// stopLocked cancels the pending timer and the in-flight request
func (s *Searcher) stopLocked() {
	s.debounce.Stop()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Searcher) run(parent context.Context, gen uint64, query string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	results, err := Lookup(ctx, s.geocoder, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		metrics.RecordSearch("stale")
		return
	}
	s.cancel = nil
	s.list.SetSearching(false)

	if err != nil {
		metrics.RecordSearch("error")
		if s.logger != nil {
			s.logger.Warn("search %q failed: %v", query, err)
		}
		s.list.Clear()
		return
	}

	metrics.RecordSearch("ok")
	if s.logger != nil {
		s.logger.Debug("search %q: %d results", query, len(results))
	}
	s.list.ShowResults(results)
}

// Lookup runs one query synchronously and maps the matches to results
func Lookup(ctx context.Context, geocoder Geocoder, query string) ([]Result, error) {
	places, err := geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	return Results(places), nil
}

// Results maps places to list entries, at most MaxResults
func Results(places []models.Place) []Result {
	if len(places) > MaxResults {
		places = places[:MaxResults]
	}

	results := make([]Result, 0, len(places))
	for _, p := range places {
		results = append(results, Result{
			Title:       p.Name,
			Subtitle:    strings.TrimSpace(p.State + " " + p.Country),
			Href:        route.WeatherHash(p.Coordinates()),
			Coordinates: p.Coordinates(),
		})
	}
	return results
}
