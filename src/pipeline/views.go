package pipeline

import (
	"github.com/apimgr/weatherio/src/format"
	"github.com/apimgr/weatherio/src/models"
)

const (
	hourlyCount = 8
	dailyFirst  = 7
	dailyStride = 8
)

// View is a render-ready view model bound to a region
type View interface {
	Region() Region
}

// CurrentView is the "Now" summary card
type CurrentView struct {
	Temperature int    `json:"temperature"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (*CurrentView) Region() Region { return RegionCurrent }

// LocationView is the place name inside the summary card
type LocationView struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

func (*LocationView) Region() Region { return RegionLocation }

// Label returns "name, country"
func (v *LocationView) Label() string {
	return v.Name + ", " + v.Country
}

// Pollutant is one air-quality reading
type Pollutant struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HighlightsView is the "Todays Highlights" card
type HighlightsView struct {
	Pollutants []Pollutant `json:"pollutants"`
	AQIIndex   int         `json:"aqiIndex"`
	AQILevel   string      `json:"aqiLevel"`
	AQIMessage string      `json:"aqiMessage"`
	Sunrise    string      `json:"sunrise"`
	Sunset     string      `json:"sunset"`
	Humidity   int         `json:"humidity"`
	Pressure   int         `json:"pressure"`
	Visibility string      `json:"visibility"`
	FeelsLike  int         `json:"feelsLike"`
}

func (*HighlightsView) Region() Region { return RegionHighlights }

// HourlyItem is one 3-hour slot of the "Today at" slider
type HourlyItem struct {
	Hour         string `json:"hour"`
	Icon         string `json:"icon"`
	Description  string `json:"description"`
	Temperature  int    `json:"temperature"`
	WindRotation int    `json:"windRotation"`
	WindSpeedKmh int    `json:"windSpeedKmh"`
}

// HourlyView is the temperature and wind slider
type HourlyView struct {
	Items []HourlyItem `json:"items"`
}

func (*HourlyView) Region() Region { return RegionHourly }

// DailyItem is one row of the 5 day list
type DailyItem struct {
	TempMax     int    `json:"tempMax"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Day         int    `json:"day"`
	Month       string `json:"month"`
	Weekday     string `json:"weekday"`
}

// DailyView is the 5 day forecast list
type DailyView struct {
	Items []DailyItem `json:"items"`
}

func (*DailyView) Region() Region { return RegionDaily }

// SectionError replaces a region whose data could not be fetched
type SectionError struct {
	Target  Region `json:"region"`
	Message string `json:"message"`
}

func (e *SectionError) Region() Region { return e.Target }

// HourlySlice returns the first min(8, len) samples
func HourlySlice(entries []models.ForecastEntry) []models.ForecastEntry {
	if len(entries) > hourlyCount {
		return entries[:hourlyCount]
	}
	return entries
}

// DailyIndices returns 7, 15, 23, ... for every index below n
func DailyIndices(n int) []int {
	var indices []int
	for i := dailyFirst; i < n; i += dailyStride {
		indices = append(indices, i)
	}
	return indices
}

// DailySlice picks the samples at DailyIndices
func DailySlice(entries []models.ForecastEntry) []models.ForecastEntry {
	var out []models.ForecastEntry
	for _, i := range DailyIndices(len(entries)) {
		out = append(out, entries[i])
	}
	return out
}

// NewCurrentView builds the summary card
func NewCurrentView(c *models.CurrentConditions) *CurrentView {
	return &CurrentView{
		Temperature: format.Truncate(c.Temperature),
		Icon:        c.Icon,
		Description: c.Description,
		Date:        format.LocalDate(c.ObservedAt, c.TimezoneOffset),
	}
}

// NewLocationView takes the first reverse-geocoding match
func NewLocationView(places []models.Place) (*LocationView, bool) {
	if len(places) == 0 {
		return nil, false
	}
	return &LocationView{Name: places[0].Name, Country: places[0].Country}, true
}

// NewHighlightsView combines air quality with the current conditions.
// An AQI outside 1..5 is an error.
func NewHighlightsView(air *models.AirQuality, c *models.CurrentConditions) (*HighlightsView, error) {
	level, err := format.AQIText(air.Index)
	if err != nil {
		return nil, err
	}

	return &HighlightsView{
		Pollutants: []Pollutant{
			{Name: "PM2.5", Value: format.Precision(air.PM2_5, 3)},
			{Name: "SO2", Value: format.Precision(air.SO2, 3)},
			{Name: "NO2", Value: format.Precision(air.NO2, 3)},
			{Name: "O3", Value: format.Precision(air.O3, 3)},
		},
		AQIIndex:   air.Index,
		AQILevel:   level.Level,
		AQIMessage: level.Message,
		Sunrise:    format.LocalTime(c.Sunrise, c.TimezoneOffset),
		Sunset:     format.LocalTime(c.Sunset, c.TimezoneOffset),
		Humidity:   c.Humidity,
		Pressure:   c.Pressure,
		Visibility: format.Kilometers(c.Visibility),
		FeelsLike:  format.Truncate(c.FeelsLike),
	}, nil
}

// NewHourlyView builds the slider from the first samples
func NewHourlyView(f *models.Forecast) *HourlyView {
	entries := HourlySlice(f.Entries)
	view := &HourlyView{Items: make([]HourlyItem, 0, len(entries))}
	for _, e := range entries {
		view.Items = append(view.Items, HourlyItem{
			Hour:         format.LocalHour(e.Time, f.TimezoneOffset),
			Icon:         e.Icon,
			Description:  e.Description,
			Temperature:  format.Truncate(e.Temperature),
			WindRotation: format.WindRotation(e.WindDirection),
			WindSpeedKmh: format.Truncate(format.MetersPerSecondToKmPerHour(e.WindSpeed)),
		})
	}
	return view
}

// NewDailyView builds the 5 day list
func NewDailyView(f *models.Forecast) *DailyView {
	entries := DailySlice(f.Entries)
	view := &DailyView{Items: make([]DailyItem, 0, len(entries))}
	for _, e := range entries {
		day, month, weekday := format.LocalDay(e.Time, f.TimezoneOffset)
		view.Items = append(view.Items, DailyItem{
			TempMax:     format.Truncate(e.TempMax),
			Icon:        e.Icon,
			Description: e.Description,
			Day:         day,
			Month:       month,
			Weekday:     weekday,
		})
	}
	return view
}
