// Package pipeline runs render cycles: for one set of coordinates it fetches
// current conditions, then location, air quality and forecast concurrently,
// and writes the resulting views into a Display.
//
// Every cycle gets a generation number. Starting a new cycle cancels the
// previous one, and every Display write happens under the pipeline lock after
// checking the generation, so a superseded cycle never writes and sections
// never interleave.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/server/metrics"
)

// ErrSuperseded is returned by a cycle that was replaced by a newer request
var ErrSuperseded = errors.New("render cycle superseded")

// User-visible messages
const (
	NotFoundMessage    = "Page not found"
	UnavailableMessage = "Weather data is currently unavailable"
)

var sectionMessages = map[Region]string{
	RegionLocation:   "Location unavailable",
	RegionHighlights: "Air quality is unavailable",
	RegionHourly:     "Hourly forecast is unavailable",
	RegionDaily:      "Forecast is unavailable",
}

// Source provides the weather data of one location
type Source interface {
	CurrentWeather(ctx context.Context, coords models.Coordinates) (*models.CurrentConditions, error)
	ReverseGeocode(ctx context.Context, coords models.Coordinates) ([]models.Place, error)
	AirPollution(ctx context.Context, coords models.Coordinates) (*models.AirQuality, error)
	Forecast(ctx context.Context, coords models.Coordinates) (*models.Forecast, error)
}

// Logger is the subset of the application logger the pipeline writes to
type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
}

// Request asks for one render cycle
type Request struct {
	Coordinates     models.Coordinates `json:"coordinates"`
	CurrentLocation bool               `json:"currentLocation"`
}

// Result describes how a cycle ended
type Result struct {
	CycleID       string            `json:"cycleId"`
	State         State             `json:"state"`
	Message       string            `json:"message,omitempty"`
	SectionErrors map[Region]string `json:"sectionErrors,omitempty"`
}

// Pipeline owns the state machine of one display
type Pipeline struct {
	source  Source
	display Display
	logger  Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      State
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates an idle pipeline writing into display
func New(source Source, display Display, opts ...Option) *Pipeline {
	p := &Pipeline{source: source, display: display, state: Idle}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close cancels the in-flight cycle, if any
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// NotFound supersedes any running cycle and shows the not-found error
func (p *Pipeline) NotFound() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state = Error
	p.display.SetState(Error, NotFoundMessage)
	metrics.RecordRenderCycle("not_found")

	return &Result{CycleID: ulid.Make().String(), State: Error, Message: NotFoundMessage}
}

// Update runs a full render cycle for req. It returns ErrSuperseded when a
// newer Update or NotFound replaced it before it finished.
func (p *Pipeline) Update(ctx context.Context, req Request) (*Result, error) {
	return p.Start(ctx, req).Run()
}

// Start supersedes the running cycle and resets the display for req. The
// order of Start calls decides which request is displayed, so callers that
// fetch in the background call Start before handing the cycle off to Run.
func (p *Pipeline) Start(ctx context.Context, req Request) *Cycle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.generation++

	cctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = Loading

	p.display.Clear(Regions...)
	p.display.SetState(Loading, "")
	p.display.SetCurrentLocation(req.CurrentLocation)

	return &Cycle{
		p:      p,
		req:    req,
		gen:    p.generation,
		id:     ulid.Make().String(),
		ctx:    cctx,
		cancel: cancel,
	}
}

// Run fetches and renders the cycle. A cycle runs at most once.
func (cyc *Cycle) Run() (*Result, error) {
	defer cyc.cancel()

	p, req := cyc.p, cyc.req
	result := &Result{CycleID: cyc.id, State: Loading}
	p.debug("cycle %s started for %s", cyc.id, req.Coordinates)

	current, err := p.source.CurrentWeather(cyc.ctx, req.Coordinates)
	if err != nil {
		return p.fail(cyc, result, err)
	}
	if err := cyc.write(func(d Display) { d.Render(NewCurrentView(current)) }); err != nil {
		return p.stop(cyc, result, err)
	}

	var errMu sync.Mutex
	sectionErrs := make(map[Region]string)

	g, gctx := errgroup.WithContext(cyc.ctx)
	section := func(regions []Region, build func(context.Context) ([]View, error)) {
		g.Go(func() error {
			views, err := build(gctx)
			if err != nil {
				if cerr := cyc.check(); cerr != nil {
					return cerr
				}
				p.warn("cycle %s: %v section failed: %v", cyc.id, regions, err)
				views = views[:0]
				errMu.Lock()
				for _, r := range regions {
					sectionErrs[r] = err.Error()
					views = append(views, &SectionError{Target: r, Message: sectionMessages[r]})
					metrics.RecordSectionError(string(r))
				}
				errMu.Unlock()
			}
			return cyc.write(func(d Display) {
				for _, v := range views {
					d.Render(v)
				}
			})
		})
	}

	section([]Region{RegionLocation}, func(ctx context.Context) ([]View, error) {
		places, err := p.source.ReverseGeocode(ctx, req.Coordinates)
		if err != nil {
			return nil, err
		}
		view, ok := NewLocationView(places)
		if !ok {
			return nil, errors.New("no place found")
		}
		return []View{view}, nil
	})

	section([]Region{RegionHighlights}, func(ctx context.Context) ([]View, error) {
		air, err := p.source.AirPollution(ctx, req.Coordinates)
		if err != nil {
			return nil, err
		}
		view, err := NewHighlightsView(air, current)
		if err != nil {
			return nil, err
		}
		return []View{view}, nil
	})

	section([]Region{RegionHourly, RegionDaily}, func(ctx context.Context) ([]View, error) {
		forecast, err := p.source.Forecast(ctx, req.Coordinates)
		if err != nil {
			return nil, err
		}
		return []View{NewHourlyView(forecast), NewDailyView(forecast)}, nil
	})

	// Dependents are issued; the cycle is usable from here on.
	if err := cyc.write(func(d Display) {
		p.state = Ready
		d.SetState(Ready, "")
	}); err != nil {
		g.Wait()
		return p.stop(cyc, result, err)
	}
	result.State = Ready

	if err := g.Wait(); err != nil {
		return p.stop(cyc, result, err)
	}
	if err := cyc.write(func(d Display) { d.Reveal() }); err != nil {
		return p.stop(cyc, result, err)
	}

	if len(sectionErrs) > 0 {
		result.SectionErrors = sectionErrs
	}
	metrics.RecordRenderCycle("ready")
	p.debug("cycle %s ready (%d section errors)", cyc.id, len(sectionErrs))
	return result, nil
}

// fail handles a primary fetch failure
func (p *Pipeline) fail(cyc *Cycle, result *Result, err error) (*Result, error) {
	if cerr := cyc.check(); cerr != nil {
		return p.stop(cyc, result, cerr)
	}

	p.warn("cycle %s failed: %v", cyc.id, err)
	if werr := cyc.write(func(d Display) {
		p.state = Error
		d.SetState(Error, UnavailableMessage)
	}); werr != nil {
		return p.stop(cyc, result, werr)
	}

	metrics.RecordRenderCycle("error")
	result.State = Error
	result.Message = UnavailableMessage
	return result, fmt.Errorf("current weather: %w", err)
}

// stop ends a cycle that was superseded or canceled by the caller
func (p *Pipeline) stop(cyc *Cycle, result *Result, err error) (*Result, error) {
	if errors.Is(err, ErrSuperseded) {
		metrics.RecordRenderCycle("superseded")
		p.debug("cycle %s superseded", cyc.id)
	} else {
		metrics.RecordRenderCycle("canceled")
	}
	return result, err
}

func (p *Pipeline) debug(format string, v ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(format, v...)
	}
}

func (p *Pipeline) warn(format string, v ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(format, v...)
	}
}

// Cycle is one started render cycle
type Cycle struct {
	p      *Pipeline
	req    Request
	gen    uint64
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

// write runs fn against the display only while the cycle is current
func (cyc *Cycle) write(fn func(d Display)) error {
	cyc.p.mu.Lock()
	defer cyc.p.mu.Unlock()
	if cyc.gen != cyc.p.generation {
		return ErrSuperseded
	}
	if err := cyc.ctx.Err(); err != nil {
		return err
	}
	fn(cyc.p.display)
	return nil
}

// check reports why the cycle can no longer write, or nil
func (cyc *Cycle) check() error {
	cyc.p.mu.Lock()
	defer cyc.p.mu.Unlock()
	if cyc.gen != cyc.p.generation {
		return ErrSuperseded
	}
	return cyc.ctx.Err()
}
