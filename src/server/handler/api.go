package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/pipeline"
	"github.com/apimgr/weatherio/src/render"
	"github.com/apimgr/weatherio/src/route"
	"github.com/apimgr/weatherio/src/search"
	"github.com/apimgr/weatherio/src/server/metrics"
	"github.com/apimgr/weatherio/src/server/service"
)

// APIHandler serves the JSON API. Every weather request runs one render
// cycle into an in-memory snapshot.
type APIHandler struct {
	source   pipeline.Source
	geocoder search.Geocoder
	locator  service.Locator
	logger   pipeline.Logger
}

// NewAPIHandler creates the API handler. locator may be nil.
func NewAPIHandler(source pipeline.Source, geocoder search.Geocoder, locator service.Locator, logger pipeline.Logger) *APIHandler {
	return &APIHandler{
		source:   source,
		geocoder: geocoder,
		locator:  locator,
		logger:   logger,
	}
}

// WeatherResponse is the body of GET /api/v1/weather
type WeatherResponse struct {
	Route   string             `json:"route"`
	Result  *pipeline.Result   `json:"result"`
	Display *pipeline.Snapshot `json:"display"`
}

// GetWeather handles GET /api/v1/weather
//
// Accepts lat and lon, or a location hash in route. The .txt variant and
// Accept: text/plain return the terminal rendering.
func (h *APIHandler) GetWeather(c *gin.Context) {
	req, ok := h.weatherRequest(c)
	if !ok {
		return
	}

	snap := pipeline.NewSnapshot()
	var opts []pipeline.Option
	if h.logger != nil {
		opts = append(opts, pipeline.WithLogger(h.logger))
	}
	p := pipeline.New(h.source, snap, opts...)

	result, err := p.Update(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			RespondError(c, 499, ErrCanceled, "Request canceled")
			return
		}
		RespondError(c, http.StatusBadGateway, ErrExternalService, result.Message)
		return
	}

	if shouldRespondText(c) {
		c.String(http.StatusOK, "%s\n", render.NewTerminalFor(c.Writer).Snapshot(snap))
		return
	}

	RespondData(c, WeatherResponse{
		Route:   route.WeatherHash(req.Coordinates),
		Result:  result,
		Display: snap,
	})
}

// weatherRequest reads the coordinates of a weather request. It writes the
// error response itself and reports false on failure.
func (h *APIHandler) weatherRequest(c *gin.Context) (pipeline.Request, bool) {
	if hash, ok := c.GetQuery("route"); ok {
		r, err := route.Parse(hash)
		if err != nil {
			if errors.Is(err, route.ErrNotFound) {
				NotFound(c, pipeline.NotFoundMessage)
			} else {
				InvalidInput(c, err.Error())
			}
			return pipeline.Request{}, false
		}
		if r.Kind == route.CurrentLocation {
			coords, found := h.locate(c)
			if !found {
				NotFound(c, "Location could not be determined")
				return pipeline.Request{}, false
			}
			return pipeline.Request{Coordinates: coords, CurrentLocation: true}, true
		}
		return pipeline.Request{Coordinates: r.Coordinates}, true
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	coords := models.Coordinates{Latitude: lat, Longitude: lon}
	if latErr != nil || lonErr != nil || !coords.Valid() {
		InvalidInput(c, "Query parameters 'lat' and 'lon' must be valid coordinates", map[string]interface{}{
			"lat": c.Query("lat"),
			"lon": c.Query("lon"),
		})
		return pipeline.Request{}, false
	}
	return pipeline.Request{Coordinates: coords}, true
}

// SearchLocations handles GET /api/v1/search
// An empty query returns no results without calling the geocoder.
func (h *APIHandler) SearchLocations(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		RespondData(c, gin.H{"query": "", "results": []search.Result{}})
		return
	}

	results, err := search.Lookup(c.Request.Context(), h.geocoder, query)
	if err != nil {
		metrics.RecordSearch("error")
		RespondError(c, http.StatusBadGateway, ErrExternalService, "Location search is unavailable")
		return
	}
	metrics.RecordSearch("ok")

	RespondData(c, gin.H{"query": query, "results": results})
}

// GetLocation handles GET /api/v1/location, the IP-based position of the
// client
func (h *APIHandler) GetLocation(c *gin.Context) {
	coords, ok := h.locate(c)
	if !ok {
		NotFound(c, "Location could not be determined")
		return
	}

	RespondData(c, gin.H{
		"coordinates": coords,
		"route":       route.WeatherHash(coords),
	})
}

func (h *APIHandler) locate(c *gin.Context) (models.Coordinates, bool) {
	if h.locator == nil {
		return models.Coordinates{}, false
	}
	return h.locator.Locate(net.ParseIP(c.ClientIP()))
}
