// Package route parses the location-hash convention of the widget page:
//
//	#/weather?lat=<lat>&lon=<lon>   weather for the given coordinates
//	#/current-location              weather for the browser position
//
// An empty hash is treated as #/current-location.
package route

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/apimgr/weatherio/src/models"
)

// ErrNotFound is returned for a hash that matches no route
var ErrNotFound = errors.New("route not found")

// ErrInvalidCoordinates is returned for a weather route with unusable lat/lon
var ErrInvalidCoordinates = errors.New("invalid coordinates")

const (
	weatherPath         = "/weather"
	currentLocationPath = "/current-location"

	// CurrentLocationHash is the route followed when the hash is empty
	CurrentLocationHash = "#" + currentLocationPath

	// DefaultHash points at London and is used when geolocation fails
	DefaultHash = "#/weather?lat=51.5073219&lon=-0.1276474"
)

// Kind identifies a route
type Kind int

const (
	// Weather shows the weather at explicit coordinates
	Weather Kind = iota
	// CurrentLocation shows the weather at the user's position
	CurrentLocation
)

func (k Kind) String() string {
	switch k {
	case Weather:
		return "weather"
	case CurrentLocation:
		return "current-location"
	default:
		return "unknown"
	}
}

// Route is a parsed location hash
type Route struct {
	Kind        Kind
	Coordinates models.Coordinates
}

// Parse parses a location hash such as "#/weather?lat=1&lon=2".
// The leading "#" is optional.
func Parse(hash string) (Route, error) {
	hash = strings.TrimPrefix(strings.TrimSpace(hash), "#")
	if hash == "" {
		return Route{Kind: CurrentLocation}, nil
	}

	path, query, _ := strings.Cut(hash, "?")
	switch path {
	case currentLocationPath:
		return Route{Kind: CurrentLocation}, nil
	case weatherPath:
		coords, err := parseCoordinates(query)
		if err != nil {
			return Route{}, err
		}
		return Route{Kind: Weather, Coordinates: coords}, nil
	default:
		return Route{}, fmt.Errorf("%w: %q", ErrNotFound, "#"+hash)
	}
}

func parseCoordinates(query string) (models.Coordinates, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}

	lat, err := strconv.ParseFloat(values.Get("lat"), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: lat %q", ErrInvalidCoordinates, values.Get("lat"))
	}
	lon, err := strconv.ParseFloat(values.Get("lon"), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: lon %q", ErrInvalidCoordinates, values.Get("lon"))
	}

	coords := models.Coordinates{Latitude: lat, Longitude: lon}
	if !coords.Valid() {
		return models.Coordinates{}, fmt.Errorf("%w: %s out of range", ErrInvalidCoordinates, coords)
	}
	return coords, nil
}

// WeatherHash builds the weather route for c
func WeatherHash(c models.Coordinates) string {
	return "#" + weatherPath + "?lat=" + c.LatParam() + "&lon=" + c.LonParam()
}
