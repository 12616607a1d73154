package models

import (
	"fmt"
	"strconv"
)

// Coordinates is the only request key of a render cycle
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Valid reports whether the coordinates are inside the WGS84 range
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// LatParam returns the latitude as a query parameter value
func (c Coordinates) LatParam() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}

// LonParam returns the longitude as a query parameter value
func (c Coordinates) LonParam() string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%s,%s", c.LatParam(), c.LonParam())
}

// CurrentConditions is the current-weather response of one location.
// Timestamps are Unix seconds; TimezoneOffset is seconds east of UTC.
type CurrentConditions struct {
	Description    string  `json:"description"`
	Icon           string  `json:"icon"`
	Temperature    float64 `json:"temperature"`
	FeelsLike      float64 `json:"feelsLike"`
	Pressure       int     `json:"pressure"`
	Humidity       int     `json:"humidity"`
	Visibility     int     `json:"visibility"` // meters
	Sunrise        int64   `json:"sunrise"`
	Sunset         int64   `json:"sunset"`
	TimezoneOffset int64   `json:"timezoneOffset"`
	ObservedAt     int64   `json:"observedAt"`
}

// AirQuality holds the AQI ordinal (1-5) and pollutant concentrations in μg/m3
type AirQuality struct {
	Index int     `json:"index"`
	PM2_5 float64 `json:"pm2_5"`
	SO2   float64 `json:"so2"`
	NO2   float64 `json:"no2"`
	O3    float64 `json:"o3"`
	CO    float64 `json:"co"`
}

// ForecastEntry is one 3-hour forecast sample
type ForecastEntry struct {
	Time          int64   `json:"time"`
	Temperature   float64 `json:"temperature"`
	TempMax       float64 `json:"tempMax"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
	WindDirection int     `json:"windDirection"` // degrees
	WindSpeed     float64 `json:"windSpeed"`     // m/s
}

// Forecast is the time-ordered sample sequence for a location
type Forecast struct {
	Entries        []ForecastEntry `json:"entries"`
	TimezoneOffset int64           `json:"timezoneOffset"`
}

// Place is a geocoding match
type Place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Coordinates returns the position of the place
func (p Place) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}
