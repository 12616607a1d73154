package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/openweather"
	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/render"
	"github.com/apimgr/weatherio/src/route"
	"github.com/apimgr/weatherio/src/search"
)

// Backend answers the CLI commands
type Backend interface {
	Weather(ctx context.Context, coords models.Coordinates, format string) (string, error)
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Direct runs render cycles in-process against OpenWeatherMap
type Direct struct {
	source   *openweather.Client
	terminal *render.Terminal
}

// NewDirect creates a backend using the configured api key
func NewDirect(config *CLIConfig, terminal *render.Terminal) *Direct {
	opts := []openweather.Option{openweather.WithTimeout(config.RequestTimeout())}
	if config.BaseURL != "" {
		opts = append(opts, openweather.WithBaseURL(config.BaseURL))
	}
	return &Direct{
		source:   openweather.NewClient(config.APIKey, opts...),
		terminal: terminal,
	}
}

// Weather runs one cycle and renders the display it produced
func (d *Direct) Weather(ctx context.Context, coords models.Coordinates, format string) (string, error) {
	snap := pipeline.NewSnapshot()
	p := pipeline.New(d.source, snap)
	defer p.Close()

	result, err := p.Update(ctx, pipeline.Request{Coordinates: coords})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", NewConnectionError(err.Error())
		}
		return "", NewUnavailableError(fmt.Sprintf("%s: %v", result.Message, err))
	}

	if format == FormatJSON {
		data, err := json.MarshalIndent(map[string]interface{}{
			"route":   route.WeatherHash(coords),
			"result":  result,
			"display": snap,
		}, "", "  ")
		if err != nil {
			return "", NewAPIError(fmt.Sprintf("failed to encode output: %v", err))
		}
		return string(data), nil
	}
	return d.terminal.Snapshot(snap), nil
}

// Search geocodes query
func (d *Direct) Search(ctx context.Context, query string) ([]search.Result, error) {
	results, err := search.Lookup(ctx, d.source, query)
	if err != nil {
		return nil, NewUnavailableError(fmt.Sprintf("location search failed: %v", err))
	}
	return results, nil
}
