// Package metrics provides Prometheus metrics for the weather server,
// the upstream OpenWeatherMap client and the render pipeline.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)

	// Upstream OpenWeatherMap metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_upstream_requests_total",
			Help: "Total number of OpenWeatherMap requests",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_upstream_request_duration_seconds",
			Help:    "OpenWeatherMap request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Render pipeline metrics
	RenderCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_render_cycles_total",
			Help: "Total number of render cycles by outcome",
		},
		[]string{"outcome"},
	)

	RenderSectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_render_section_errors_total",
			Help: "Total number of dependent sections that failed to render",
		},
		[]string{"region"},
	)

	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_search_queries_total",
			Help: "Total number of location searches by outcome",
		},
		[]string{"outcome"},
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_ws_sessions_active",
			Help: "Number of open live display sessions",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_ws_sessions_evicted_total",
			Help: "Total number of idle sessions evicted from the registry",
		},
	)

	// Scheduler metrics
	SchedulerTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_scheduler_tasks_total",
			Help: "Total number of scheduled task executions",
		},
		[]string{"task", "status"},
	)

	SchedulerTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_scheduler_task_duration_seconds",
			Help:    "Scheduled task duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"task"},
	)

	SchedulerLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_scheduler_last_run_timestamp",
			Help: "Timestamp of the last task execution",
		},
		[]string{"task"},
	)

	// Application metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "build_date", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	SystemGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_system_goroutines",
			Help: "Number of goroutines",
		},
	)

	SystemMemoryUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weather_system_memory_used_bytes",
			Help: "Memory allocated and in use",
		},
	)
)

var (
	initOnce  sync.Once
	startTime time.Time
)

// Init initializes application info metrics
func Init(version, commit, buildDate string) {
	initOnce.Do(func() {
		startTime = time.Now()
		AppInfo.WithLabelValues(version, commit, buildDate, runtime.Version()).Set(1)

		go updateMetrics()
	})
}

// updateMetrics periodically updates uptime and system metrics
func updateMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		AppUptime.Set(time.Since(startTime).Seconds())

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		SystemMemoryUsed.Set(float64(m.Alloc))
		SystemGoroutines.Set(float64(runtime.NumGoroutine()))
	}
}

// RecordUpstream records one OpenWeatherMap call
func RecordUpstream(endpoint, status string, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRenderCycle records how a render cycle ended: ready, error or superseded
func RecordRenderCycle(outcome string) {
	RenderCyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordSectionError records a dependent region that rendered its error view
func RecordSectionError(region string) {
	RenderSectionErrors.WithLabelValues(region).Inc()
}

// RecordSearch records a location search
func RecordSearch(outcome string) {
	SearchQueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordSchedulerTask records scheduler task execution
func RecordSchedulerTask(task, status string, duration time.Duration) {
	SchedulerTasksTotal.WithLabelValues(task, status).Inc()
	SchedulerTaskDuration.WithLabelValues(task).Observe(duration.Seconds())
	SchedulerLastRun.WithLabelValues(task).SetToCurrentTime()
}
