// Package openweather fetches current conditions, forecasts, air quality and
// geocoding matches from the OpenWeatherMap API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/server/metrics"
)

var (
	// ErrStatus is returned when the API answers with a non-2xx status
	ErrStatus = errors.New("unexpected response status")

	// ErrDecode is returned when the body is not the expected JSON
	ErrDecode = errors.New("malformed response body")

	// ErrShape is returned when a decoded body lacks a required part
	ErrShape = errors.New("unexpected response shape")
)

// DefaultTimeout bounds every upstream request
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 4 << 20

// Logger is the subset of the application logger the client writes to
type Logger interface {
	Debug(format string, v ...interface{})
}

// Client talks to OpenWeatherMap
type Client struct {
	urls   URLBuilder
	http   *http.Client
	logger Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points the client at another host, used by tests
func WithBaseURL(base string) Option {
	return func(c *Client) { c.urls.BaseURL = base }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets a debug logger
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the given credential
func NewClient(apiKey string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		urls: URLBuilder{BaseURL: DefaultBaseURL, APIKey: apiKey},
		http: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchJSON issues a GET to url and decodes the JSON body into v.
// Network failures, non-2xx statuses and malformed bodies are distinct errors.
func (c *Client) FetchJSON(ctx context.Context, url string, v interface{}) error {
	return c.fetch(ctx, "raw", url, v)
}

func (c *Client) fetch(ctx context.Context, endpoint, url string, v interface{}) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordUpstream(endpoint, status, time.Since(start))
		if c.logger != nil {
			c.logger.Debug("openweather %s %s -> %s (%v)", endpoint, redact(url), status, time.Since(start).Round(time.Millisecond))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			status = "canceled"
			return fmt.Errorf("%s request canceled: %w", endpoint, ctx.Err())
		}
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%w: %s returned %d", ErrStatus, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		status = "decode_error"
		return fmt.Errorf("%w: %s: %v", ErrDecode, endpoint, err)
	}
	return nil
}

// CurrentWeather fetches current conditions at c
func (c *Client) CurrentWeather(ctx context.Context, coords models.Coordinates) (*models.CurrentConditions, error) {
	var data currentResponse
	if err := c.fetch(ctx, EndpointCurrent, c.urls.CurrentWeather(coords), &data); err != nil {
		return nil, err
	}
	if len(data.Weather) == 0 {
		return nil, fmt.Errorf("%w: current weather has no conditions", ErrShape)
	}

	return &models.CurrentConditions{
		Description:    data.Weather[0].Description,
		Icon:           data.Weather[0].Icon,
		Temperature:    data.Main.Temp,
		FeelsLike:      data.Main.FeelsLike,
		Pressure:       data.Main.Pressure,
		Humidity:       data.Main.Humidity,
		Visibility:     data.Visibility,
		Sunrise:        data.Sys.Sunrise,
		Sunset:         data.Sys.Sunset,
		TimezoneOffset: data.Timezone,
		ObservedAt:     data.Dt,
	}, nil
}

// AirPollution fetches the air quality at c
func (c *Client) AirPollution(ctx context.Context, coords models.Coordinates) (*models.AirQuality, error) {
	var data airPollutionResponse
	if err := c.fetch(ctx, EndpointAirPollution, c.urls.AirPollution(coords), &data); err != nil {
		return nil, err
	}
	if len(data.List) == 0 {
		return nil, fmt.Errorf("%w: air pollution list is empty", ErrShape)
	}

	item := data.List[0]
	return &models.AirQuality{
		Index: item.Main.AQI,
		PM2_5: item.Components.PM25,
		SO2:   item.Components.SO2,
		NO2:   item.Components.NO2,
		O3:    item.Components.O3,
		CO:    item.Components.CO,
	}, nil
}

// Forecast fetches the 3-hour forecast samples at c
func (c *Client) Forecast(ctx context.Context, coords models.Coordinates) (*models.Forecast, error) {
	var data forecastResponse
	if err := c.fetch(ctx, EndpointForecast, c.urls.Forecast(coords), &data); err != nil {
		return nil, err
	}

	forecast := &models.Forecast{
		Entries:        make([]models.ForecastEntry, 0, len(data.List)),
		TimezoneOffset: data.City.Timezone,
	}
	for i, item := range data.List {
		if len(item.Weather) == 0 {
			return nil, fmt.Errorf("%w: forecast entry %d has no conditions", ErrShape, i)
		}
		forecast.Entries = append(forecast.Entries, models.ForecastEntry{
			Time:          item.Dt,
			Temperature:   item.Main.Temp,
			TempMax:       item.Main.TempMax,
			Description:   item.Weather[0].Description,
			Icon:          item.Weather[0].Icon,
			WindDirection: item.Wind.Deg,
			WindSpeed:     item.Wind.Speed,
		})
	}
	return forecast, nil
}

// ReverseGeocode returns up to five named places near c
func (c *Client) ReverseGeocode(ctx context.Context, coords models.Coordinates) ([]models.Place, error) {
	return c.places(ctx, EndpointReverseGeo, c.urls.ReverseGeo(coords))
}

// Geocode returns up to five places matching a free-text query
func (c *Client) Geocode(ctx context.Context, query string) ([]models.Place, error) {
	return c.places(ctx, EndpointGeo, c.urls.Geo(query))
}

func (c *Client) places(ctx context.Context, endpoint, url string) ([]models.Place, error) {
	var data []placeResponse
	if err := c.fetch(ctx, endpoint, url, &data); err != nil {
		return nil, err
	}

	places := make([]models.Place, 0, len(data))
	for _, p := range data {
		places = append(places, models.Place{
			Name:      p.Name,
			Country:   p.Country,
			State:     p.State,
			Latitude:  p.Lat,
			Longitude: p.Lon,
		})
	}
	return places, nil
}
