package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apimgr/weatherio/src/server/service"
)

// HealthHandler reports liveness and service state
type HealthHandler struct {
	version  string
	started  time.Time
	sessions *service.SessionManager
	geoip    *service.GeoIP
}

// NewHealthHandler creates the health handler. geoip may be nil.
func NewHealthHandler(version string, sessions *service.SessionManager, geoip *service.GeoIP) *HealthHandler {
	return &HealthHandler{
		version:  version,
		started:  time.Now(),
		sessions: sessions,
		geoip:    geoip,
	}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   "weatherio",
		"version":   h.version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"sessions":  h.sessions.Count(),
		"geoip":     h.geoip != nil && h.geoip.Enabled(),
	})
}

// LivenessCheck handles GET /livez
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alive":     true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// PrometheusMetrics serves the Prometheus registry
func PrometheusMetrics() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
