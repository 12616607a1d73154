package service

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"github.com/apimgr/weatherio/src/models"
)

// Locator resolves a client IP to approximate coordinates
type Locator interface {
	Locate(ip net.IP) (models.Coordinates, bool)
}

// GeoIP locates clients with a MaxMind City database. It stands in for the
// browser position when the visitor denies geolocation.
type GeoIP struct {
	path string

	mu     sync.RWMutex
	reader *geoip2.Reader
}

// OpenGeoIP opens the database at path. An empty path yields a disabled
// locator that never finds anything.
func OpenGeoIP(path string) (*GeoIP, error) {
	g := &GeoIP{path: path}
	if path == "" {
		return g, nil
	}
	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

// Enabled reports whether a database is loaded
func (g *GeoIP) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reader != nil
}

// Locate returns the city coordinates of ip. Private, loopback and unknown
// addresses are not found.
func (g *GeoIP) Locate(ip net.IP) (models.Coordinates, bool) {
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return models.Coordinates{}, false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.reader == nil {
		return models.Coordinates{}, false
	}

	record, err := g.reader.City(ip)
	if err != nil {
		return models.Coordinates{}, false
	}

	coords := models.Coordinates{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}
	// the database reports 0,0 for addresses it has no location for
	if coords.Latitude == 0 && coords.Longitude == 0 {
		return models.Coordinates{}, false
	}
	return coords, coords.Valid()
}

// Reload reopens the database file, e.g. after the weekly update
func (g *GeoIP) Reload() error {
	if g.path == "" {
		return nil
	}

	reader, err := geoip2.Open(g.path)
	if err != nil {
		return fmt.Errorf("failed to open GeoIP database %s: %w", g.path, err)
	}

	g.mu.Lock()
	old := g.reader
	g.reader = reader
	g.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Close releases the database
func (g *GeoIP) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reader == nil {
		return nil
	}
	err := g.reader.Close()
	g.reader = nil
	return err
}
