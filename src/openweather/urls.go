package openweather

import (
	"net/url"
	"strings"

	"github.com/apimgr/weatherio/src/models"
)

const (
	// DefaultBaseURL is the OpenWeatherMap API host
	DefaultBaseURL = "https://api.openweathermap.org"

	// ResultLimit caps geocoding matches
	ResultLimit = "5"

	units = "metric"
)

// Endpoint names, used as metric labels
const (
	EndpointCurrent      = "current"
	EndpointForecast     = "forecast"
	EndpointAirPollution = "air_pollution"
	EndpointReverseGeo   = "reverse_geo"
	EndpointGeo          = "geo"
)

// URLBuilder produces the five endpoint shapes. Every URL carries the credential.
type URLBuilder struct {
	BaseURL string
	APIKey  string
}

// CurrentWeather returns the current-conditions URL
func (b URLBuilder) CurrentWeather(c models.Coordinates) string {
	return b.build("/data/2.5/weather", coordParams(c, true))
}

// Forecast returns the 5 day / 3 hour forecast URL
func (b URLBuilder) Forecast(c models.Coordinates) string {
	return b.build("/data/2.5/forecast", coordParams(c, true))
}

// AirPollution returns the air-pollution URL
func (b URLBuilder) AirPollution(c models.Coordinates) string {
	return b.build("/data/2.5/air_pollution", coordParams(c, false))
}

// ReverseGeo returns the reverse-geocoding URL
func (b URLBuilder) ReverseGeo(c models.Coordinates) string {
	params := coordParams(c, false)
	params.Set("limit", ResultLimit)
	return b.build("/geo/1.0/reverse", params)
}

// Geo returns the forward-geocoding URL for a free-text query such as "London"
func (b URLBuilder) Geo(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", ResultLimit)
	return b.build("/geo/1.0/direct", params)
}

func (b URLBuilder) build(path string, params url.Values) string {
	params.Set("appid", b.APIKey)
	base := strings.TrimRight(b.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + path + "?" + params.Encode()
}

func coordParams(c models.Coordinates, withUnits bool) url.Values {
	params := url.Values{}
	params.Set("lat", c.LatParam())
	params.Set("lon", c.LonParam())
	if withUnits {
		params.Set("units", units)
	}
	return params
}

// redact hides the credential so URLs can be logged
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
