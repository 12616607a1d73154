package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/apimgr/weatherio/src/models"
)

// fakeSource derives every value from the latitude so the output of two
// cycles can be told apart.
type fakeSource struct {
	currentErr  error
	placesErr   error
	airErr      error
	forecastErr error
	aqi         int
	entries     int
	noPlaces    bool
	temperature float64

	// stall blocks the named endpoint until ctx is done
	stall   func(endpoint string, c models.Coordinates) bool
	started chan string

	// gate holds every fetch until it is closed
	gate chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{aqi: 2, entries: 40}
}

func (f *fakeSource) wait(ctx context.Context, endpoint string, c models.Coordinates) error {
	if f.started != nil {
		select {
		case f.started <- endpoint:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.stall != nil && f.stall(endpoint, c) {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (f *fakeSource) CurrentWeather(ctx context.Context, c models.Coordinates) (*models.CurrentConditions, error) {
	if err := f.wait(ctx, "current", c); err != nil {
		return nil, err
	}
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	temp := c.Latitude + 0.4
	if f.temperature != 0 {
		temp = f.temperature
	}
	return &models.CurrentConditions{
		Description:    "light rain",
		Icon:           "10d",
		Temperature:    temp,
		FeelsLike:      c.Latitude - 1.2,
		Pressure:       1012,
		Humidity:       81,
		Visibility:     10000,
		Sunrise:        julyFirst + 5*3600,
		Sunset:         julyFirst + 21*3600 + 30*60,
		TimezoneOffset: 0,
		ObservedAt:     julyFirst + 9*3600,
	}, nil
}

func (f *fakeSource) ReverseGeocode(ctx context.Context, c models.Coordinates) ([]models.Place, error) {
	if err := f.wait(ctx, "reverse", c); err != nil {
		return nil, err
	}
	if f.placesErr != nil {
		return nil, f.placesErr
	}
	if f.noPlaces {
		return nil, nil
	}
	return []models.Place{{Name: fmt.Sprintf("City%v", c.Latitude), Country: "GB"}}, nil
}

func (f *fakeSource) AirPollution(ctx context.Context, c models.Coordinates) (*models.AirQuality, error) {
	if err := f.wait(ctx, "air", c); err != nil {
		return nil, err
	}
	if f.airErr != nil {
		return nil, f.airErr
	}
	return &models.AirQuality{Index: f.aqi, PM2_5: 3.2, SO2: 1.4, NO2: 12.5, O3: 68.66, CO: 230.31}, nil
}

func (f *fakeSource) Forecast(ctx context.Context, c models.Coordinates) (*models.Forecast, error) {
	if err := f.wait(ctx, "forecast", c); err != nil {
		return nil, err
	}
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	forecast := &models.Forecast{TimezoneOffset: 0}
	for i := 0; i < f.entries; i++ {
		forecast.Entries = append(forecast.Entries, models.ForecastEntry{
			Time:          julyFirst + int64(i)*3*3600,
			Temperature:   c.Latitude + 0.4,
			TempMax:       c.Latitude + 0.9,
			Description:   "clouds",
			Icon:          "04d",
			WindDirection: 270,
			WindSpeed:     10,
		})
	}
	return forecast, nil
}

// 2024-07-01 00:00:00 UTC
const julyFirst = int64(1719792000)

func TestUpdateRendersAllSections(t *testing.T) {
	snap := NewSnapshot()
	p := New(newFakeSource(), snap)

	res, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 15, Longitude: -0.12}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if res.State != Ready || p.State() != Ready {
		t.Errorf("state = %v / %v, want ready", res.State, p.State())
	}
	if res.CycleID == "" {
		t.Error("cycle ID is empty")
	}
	if len(res.SectionErrors) != 0 {
		t.Errorf("unexpected section errors: %v", res.SectionErrors)
	}
	if !snap.Revealed() {
		t.Error("container was not revealed")
	}

	current, ok := snap.View(RegionCurrent).(*CurrentView)
	if !ok {
		t.Fatalf("current region = %T", snap.View(RegionCurrent))
	}
	if current.Temperature != 15 || current.Date != "Monday, 1, July" {
		t.Errorf("current = %+v", current)
	}

	loc, ok := snap.View(RegionLocation).(*LocationView)
	if !ok || loc.Label() != "City15, GB" {
		t.Errorf("location = %+v", snap.View(RegionLocation))
	}

	hl, ok := snap.View(RegionHighlights).(*HighlightsView)
	if !ok {
		t.Fatalf("highlights region = %T", snap.View(RegionHighlights))
	}
	if hl.AQILevel != "Fair" || hl.Sunrise != "5:00 AM" || hl.Sunset != "9:30 PM" || hl.Visibility != "10" || hl.FeelsLike != 13 {
		t.Errorf("highlights = %+v", hl)
	}
	if hl.Pollutants[0].Value != "3.20" || hl.Pollutants[3].Value != "68.7" {
		t.Errorf("pollutants = %+v", hl.Pollutants)
	}

	hourly := snap.View(RegionHourly).(*HourlyView)
	if len(hourly.Items) != 8 {
		t.Fatalf("hourly items = %d, want 8", len(hourly.Items))
	}
	if it := hourly.Items[1]; it.Hour != "3 AM" || it.WindRotation != 90 || it.WindSpeedKmh != 36 || it.Temperature != 15 {
		t.Errorf("hourly[1] = %+v", it)
	}

	daily := snap.View(RegionDaily).(*DailyView)
	if len(daily.Items) != 5 {
		t.Fatalf("daily items = %d, want 5", len(daily.Items))
	}
	if d := daily.Items[0]; d.Day != 1 || d.Month != "July" || d.Weekday != "Monday" || d.TempMax != 15 {
		t.Errorf("daily[0] = %+v", d)
	}
}

// A current temperature of 15.4 at (51.5, -0.12) shows as 15.
func TestUpdateTruncatesTemperature(t *testing.T) {
	src := newFakeSource()
	src.temperature = 15.4
	snap := NewSnapshot()
	p := New(src, snap)

	if _, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 51.5, Longitude: -0.12}}); err != nil {
		t.Fatal(err)
	}
	if got := snap.View(RegionCurrent).(*CurrentView).Temperature; got != 15 {
		t.Errorf("Temperature = %d, want 15", got)
	}

	view := NewCurrentView(&models.CurrentConditions{Temperature: -0.5})
	if view.Temperature != 0 {
		t.Errorf("NewCurrentView(-0.5).Temperature = %d, want 0", view.Temperature)
	}
}

func TestHourlySlice(t *testing.T) {
	for _, n := range []int{0, 1, 3, 8, 9, 40} {
		entries := make([]models.ForecastEntry, n)
		want := n
		if want > 8 {
			want = 8
		}
		if got := len(HourlySlice(entries)); got != want {
			t.Errorf("len(HourlySlice(%d)) = %d, want %d", n, got, want)
		}
	}
}

func TestDailyIndices(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{7, nil},
		{8, []int{7}},
		{16, []int{7, 15}},
		{40, []int{7, 15, 23, 31, 39}},
		{41, []int{7, 15, 23, 31, 39}},
	}

	for _, tt := range tests {
		got := DailyIndices(tt.n)
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("DailyIndices(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestDailySlicePicksEntries(t *testing.T) {
	entries := make([]models.ForecastEntry, 24)
	for i := range entries {
		entries[i].Time = int64(i)
	}
	got := DailySlice(entries)
	if len(got) != 3 || got[0].Time != 7 || got[1].Time != 15 || got[2].Time != 23 {
		t.Errorf("DailySlice() = %+v", got)
	}
}

func TestUpdatePrimaryFailure(t *testing.T) {
	src := newFakeSource()
	src.currentErr = errors.New("connection refused")
	snap := NewSnapshot()
	p := New(src, snap)

	res, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 1}})
	if !errors.Is(err, src.currentErr) {
		t.Fatalf("error = %v, want wrapped %v", err, src.currentErr)
	}
	if res.State != Error || p.State() != Error {
		t.Errorf("state = %v / %v, want error", res.State, p.State())
	}
	state, msg := snap.State()
	if state != Error || msg != UnavailableMessage {
		t.Errorf("snapshot state = %v %q", state, msg)
	}
	for _, r := range Regions {
		if snap.View(r) != nil {
			t.Errorf("region %s rendered after primary failure", r)
		}
	}
	if snap.Revealed() {
		t.Error("container revealed after primary failure")
	}
}

func TestUpdateDependentFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeSource)
		failed  []Region
		healthy []Region
	}{
		{
			name:    "air pollution",
			setup:   func(f *fakeSource) { f.airErr = errors.New("503") },
			failed:  []Region{RegionHighlights},
			healthy: []Region{RegionCurrent, RegionLocation, RegionHourly, RegionDaily},
		},
		{
			name:    "aqi out of range",
			setup:   func(f *fakeSource) { f.aqi = 9 },
			failed:  []Region{RegionHighlights},
			healthy: []Region{RegionCurrent, RegionLocation, RegionHourly, RegionDaily},
		},
		{
			name:    "forecast",
			setup:   func(f *fakeSource) { f.forecastErr = errors.New("timeout") },
			failed:  []Region{RegionHourly, RegionDaily},
			healthy: []Region{RegionCurrent, RegionLocation, RegionHighlights},
		},
		{
			name:    "no place",
			setup:   func(f *fakeSource) { f.noPlaces = true },
			failed:  []Region{RegionLocation},
			healthy: []Region{RegionCurrent, RegionHighlights, RegionHourly, RegionDaily},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			tt.setup(src)
			snap := NewSnapshot()
			p := New(src, snap)

			res, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 1}})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if res.State != Ready {
				t.Errorf("state = %v, want ready", res.State)
			}
			if len(res.SectionErrors) != len(tt.failed) {
				t.Errorf("section errors = %v, want %v", res.SectionErrors, tt.failed)
			}
			for _, r := range tt.failed {
				v, ok := snap.View(r).(*SectionError)
				if !ok {
					t.Errorf("region %s = %T, want *SectionError", r, snap.View(r))
					continue
				}
				if v.Message == "" {
					t.Errorf("region %s has no error message", r)
				}
			}
			for _, r := range tt.healthy {
				if _, isErr := snap.View(r).(*SectionError); isErr || snap.View(r) == nil {
					t.Errorf("region %s = %T, want a view", r, snap.View(r))
				}
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	snap := NewSnapshot()
	p := New(newFakeSource(), snap)

	res := p.NotFound()
	if res.State != Error || p.State() != Error {
		t.Errorf("state = %v / %v, want error", res.State, p.State())
	}
	if state, msg := snap.State(); state != Error || msg != NotFoundMessage {
		t.Errorf("snapshot = %v %q", state, msg)
	}
}

func TestNotFoundSupersedesRunningCycle(t *testing.T) {
	src := newFakeSource()
	src.started = make(chan string, 8)
	src.stall = func(endpoint string, c models.Coordinates) bool { return endpoint == "current" }
	snap := NewSnapshot()
	p := New(src, snap)

	done := make(chan error, 1)
	go func() {
		_, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 1}})
		done <- err
	}()
	<-src.started

	p.NotFound()
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("error = %v, want ErrSuperseded", err)
	}
	if state, _ := snap.State(); state != Error {
		t.Errorf("state = %v, want error", state)
	}
}

func TestUpdateCurrentLocationFlag(t *testing.T) {
	snap := NewSnapshot()
	p := New(newFakeSource(), snap)

	p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 1}, CurrentLocation: true})
	if !snap.CurrentLocation() {
		t.Error("current-location flag not set")
	}
	p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 1}})
	if snap.CurrentLocation() {
		t.Error("current-location flag not cleared")
	}
}

func TestUpdateCallerCancel(t *testing.T) {
	src := newFakeSource()
	src.stall = func(endpoint string, c models.Coordinates) bool { return endpoint == "current" }
	snap := NewSnapshot()
	p := New(src, snap)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Update(ctx, Request{Coordinates: models.Coordinates{Latitude: 1}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
	if state, _ := snap.State(); state == Error {
		t.Error("caller cancellation must not show the error state")
	}
}

func TestSupersededCycleWritesNothing(t *testing.T) {
	for _, stalled := range []string{"current", "reverse", "air", "forecast"} {
		t.Run(stalled, func(t *testing.T) {
			src := newFakeSource()
			src.started = make(chan string, 16)
			src.stall = func(endpoint string, c models.Coordinates) bool {
				return endpoint == stalled && c.Latitude == 10
			}
			snap := NewSnapshot()
			p := New(src, snap)

			first := make(chan error, 1)
			go func() {
				_, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 10}})
				first <- err
			}()
			for ep := range src.started {
				if ep == stalled {
					break
				}
			}

			if _, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 20}}); err != nil {
				t.Fatalf("second Update() error = %v", err)
			}
			if err := <-first; !errors.Is(err, ErrSuperseded) {
				t.Errorf("first Update() error = %v, want ErrSuperseded", err)
			}

			assertSingleCycle(t, snap, 20)
		})
	}
}

func TestRapidSuccessiveRequests(t *testing.T) {
	const n = 20

	src := newFakeSource()
	src.started = make(chan string, 8*n)
	src.gate = make(chan struct{})
	snap := NewSnapshot()
	p := New(src, snap)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []float64

	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(lat float64) {
			defer wg.Done()
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
			if _, err := p.Update(context.Background(), Request{Coordinates: models.Coordinates{Latitude: lat}}); err == nil {
				mu.Lock()
				winners = append(winners, lat)
				mu.Unlock()
			} else if !errors.Is(err, ErrSuperseded) {
				t.Errorf("Update(%v) error = %v", lat, err)
			}
		}(float64(i))
	}

	// hold every cycle until all of them have started
	for started := 0; started < n; {
		if <-src.started == "current" {
			started++
		}
	}
	close(src.gate)
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("completed cycles = %v, want exactly one", winners)
	}
	assertSingleCycle(t, snap, winners[0])
}

// assertSingleCycle checks that every region holds exactly one write and
// all of it comes from the cycle for latitude lat.
func assertSingleCycle(t *testing.T, snap *Snapshot, lat float64) {
	t.Helper()

	for _, r := range append(Regions, RegionLocation) {
		if got := snap.Writes(r); got != 1 {
			t.Errorf("region %s written %d times, want 1", r, got)
		}
	}

	want := int(lat)
	if v := snap.View(RegionCurrent).(*CurrentView); v.Temperature != want {
		t.Errorf("current temperature = %d, want %d", v.Temperature, want)
	}
	if v := snap.View(RegionLocation).(*LocationView); v.Name != fmt.Sprintf("City%v", lat) {
		t.Errorf("location = %s, want City%v", v.Name, lat)
	}
	for _, it := range snap.View(RegionHourly).(*HourlyView).Items {
		if it.Temperature != want {
			t.Errorf("hourly temperature = %d, want %d", it.Temperature, want)
		}
	}
	for _, it := range snap.View(RegionDaily).(*DailyView).Items {
		if it.TempMax != want {
			t.Errorf("daily max = %d, want %d", it.TempMax, want)
		}
	}
	if !snap.Revealed() {
		t.Error("container not revealed")
	}
}

func TestStartOrderDecidesWinner(t *testing.T) {
	src := newFakeSource()
	snap := NewSnapshot()
	p := New(src, snap)

	first := p.Start(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 10}})
	second := p.Start(context.Background(), Request{Coordinates: models.Coordinates{Latitude: 20}})
	if first.id == second.id {
		t.Fatal("cycles share an ID")
	}

	// the newer cycle runs first; the older one must not overwrite it
	if _, err := second.Run(); err != nil {
		t.Fatalf("second.Run() error = %v", err)
	}
	if _, err := first.Run(); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first.Run() error = %v, want ErrSuperseded", err)
	}

	if got := p.State(); got != Ready {
		t.Errorf("State() = %v, want %v", got, Ready)
	}
	assertSingleCycle(t, snap, 20)
}
