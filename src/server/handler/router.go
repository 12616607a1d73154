package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/apimgr/weatherio/src/server"
	"github.com/apimgr/weatherio/src/server/middleware"
	"github.com/apimgr/weatherio/src/utils"
)

// RouterConfig wires the HTTP routes
type RouterConfig struct {
	// Logger receives the access log; nil disables it
	Logger *utils.Logger

	Web    *WebHandler
	API    *APIHandler
	WS     *WSHandler
	Health *HealthHandler
	// Scheduler is optional
	Scheduler *SchedulerHandler

	CORSOrigins []string
	// SearchRateLimit is the number of search calls per minute per client
	SearchRateLimit int
}

// NewRouter builds the gin engine
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New()

	// Trust reverse proxy headers from local networks
	if err := r.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.AccessLogger(cfg.Logger))
	}
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))
	r.Use(middleware.Metrics())

	staticSubFS, err := server.GetStaticSubFS()
	if err != nil {
		return nil, fmt.Errorf("failed to get static subdirectory: %w", err)
	}
	r.StaticFS("/static", http.FS(staticSubFS))

	r.GET("/", middleware.SecurityHeaders(), cfg.Web.Index)
	r.GET("/ws", cfg.WS.Serve)

	r.GET("/healthz", cfg.Health.HealthCheck)
	r.GET("/livez", LivenessCheck)
	r.GET("/metrics", PrometheusMetrics())

	api := r.Group("/api/v1", middleware.SecurityHeadersAPI(), cors.New(corsConfig(cfg.CORSOrigins)))
	{
		api.GET("/weather", cfg.API.GetWeather)
		api.GET("/weather.txt", cfg.API.GetWeather)
		api.GET("/search", middleware.RateLimit(cfg.SearchRateLimit, time.Minute, RateLimited), cfg.API.SearchLocations)
		api.GET("/location", cfg.API.GetLocation)
	}

	if cfg.Scheduler != nil {
		tasks := r.Group("/api/v1/scheduler/tasks", middleware.SecurityHeadersAPI())
		tasks.GET("", cfg.Scheduler.GetAllTasks)
		tasks.GET("/:name", cfg.Scheduler.GetTask)
		tasks.PATCH("/:name", LocalOnly(), cfg.Scheduler.UpdateTask)
		tasks.POST("/:name/run", LocalOnly(), cfg.Scheduler.TriggerTask)
	}

	r.NoRoute(cfg.Web.NoRoute)
	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Accept", middleware.HeaderXRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderXRequestID},
		MaxAge:        24 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
