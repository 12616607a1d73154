package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apimgr/weatherio/src/config"
	"github.com/apimgr/weatherio/src/mode"
	"github.com/apimgr/weatherio/src/openweather"
	"github.com/apimgr/weatherio/src/render"
	"github.com/apimgr/weatherio/src/scheduler"
	"github.com/apimgr/weatherio/src/server/handler"
	"github.com/apimgr/weatherio/src/server/metrics"
	"github.com/apimgr/weatherio/src/server/service"
	"github.com/apimgr/weatherio/src/utils"
)

const wsPath = "/ws"

// app holds the long-lived server components
type app struct {
	logger    *utils.Logger
	web       *handler.WebHandler
	sessions  *service.SessionManager
	geoip     *service.GeoIP
	srv       *http.Server
	scheduler *scheduler.Scheduler
	watcher   *service.ConfigWatcher

	mu  sync.Mutex
	cfg *config.Config
}

func main() {
	var (
		showVersion bool
		showHelp    bool
		configPath  string
		address     string
		port        int
		modeFlag    string
		debugFlag   bool
		pidPath     string
	)

	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help")
	flag.StringVar(&configPath, "config", "", "Path to server.yml")
	flag.StringVar(&address, "address", "", "Listen address (overrides config)")
	flag.IntVar(&port, "port", 0, "Listen port (overrides config)")
	flag.StringVar(&modeFlag, "mode", "", "Application mode: production, development")
	flag.BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	flag.StringVar(&pidPath, "pid", "", "Write the process ID to this file")
	flag.Parse()

	if showVersion {
		fmt.Println("weatherio", GetVersionString())
		return
	}
	if showHelp {
		printHelp()
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}
	if address != "" {
		cfg.Server.Address = address
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if modeFlag != "" {
		cfg.Mode = modeFlag
	}
	if debugFlag {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if pidPath != "" {
		pidFile := utils.NewPIDFile(pidPath)
		if err := pidFile.Create(); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		defer pidFile.Remove()
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	a.run()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadConfig()
}

// newApp wires the server from cfg
func newApp(cfg *config.Config) (*app, error) {
	mode.Set(cfg.Mode)
	mode.SetDebug(cfg.Debug)

	var logger *utils.Logger
	if cfg.Logging.Dir != "" {
		var err error
		logger, err = utils.NewLogger(cfg.Logging.Dir, cfg.Debug)
		if err != nil {
			return nil, err
		}
	} else {
		logger = utils.NewStdLogger(cfg.Debug)
	}

	gin.SetMode(mode.GinMode())

	metrics.Init(Version, CommitID, BuildDate)

	source := openweather.NewClient(cfg.Weather.APIKey,
		openweather.WithBaseURL(cfg.Weather.BaseURL),
		openweather.WithTimeout(cfg.Weather.Timeout),
		openweather.WithLogger(logger),
	)

	html, err := render.NewHTML(cfg.Weather.IconURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	geoip, err := service.OpenGeoIP(cfg.GeoIP.Database)
	if err != nil {
		logger.Warn("GeoIP disabled: %v", err)
		geoip, _ = service.OpenGeoIP("")
	}

	sessions := service.NewSessionManager(service.ManagerConfig{
		Source:      source,
		Geocoder:    source,
		HTML:        html,
		Locator:     geoip,
		Logger:      logger,
		IdleTimeout: cfg.Sessions.IdleTimeout,
		Settings:    sessionSettings(cfg),
	})

	tasks := scheduler.NewScheduler(logger)
	err = tasks.RegisterDefaults(scheduler.Config{
		Sessions:      sessions,
		GeoIP:         geoip,
		GeoIPSchedule: cfg.GeoIP.Reload,
		Logs:          logger,
		LogSchedule:   cfg.Logging.Rotate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register scheduled tasks: %w", err)
	}

	web := handler.NewWebHandler(html, pageData(cfg))
	router, err := handler.NewRouter(handler.RouterConfig{
		Logger:          logger,
		Web:             web,
		API:             handler.NewAPIHandler(source, source, geoip, logger),
		WS:              handler.NewWSHandler(sessions, cfg.Server.CORSOrigins),
		Health:          handler.NewHealthHandler(Version, sessions, geoip),
		Scheduler:       handler.NewSchedulerHandler(tasks),
		CORSOrigins:     cfg.Server.CORSOrigins,
		SearchRateLimit: cfg.Server.SearchRateLimit,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		logger:    logger,
		web:       web,
		sessions:  sessions,
		geoip:     geoip,
		scheduler: tasks,
		cfg:       cfg,
		srv: &http.Server{
			Addr:           cfg.Addr(),
			Handler:        router,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
	}

	if cfg.Path != "" {
		a.watcher, err = service.NewConfigWatcher(cfg.Path, a.reload, logger)
		if err != nil {
			logger.Warn("Config watcher disabled: %v", err)
		}
	}

	return a, nil
}

func pageData(cfg *config.Config) render.PageData {
	return render.PageData{
		Title:       cfg.Server.Branding.Title,
		AppName:     cfg.Server.Branding.AppName,
		Description: cfg.Server.Branding.Description,
		DefaultHash: cfg.Weather.DefaultLocation,
		WSPath:      wsPath,
	}
}

func sessionSettings(cfg *config.Config) service.Settings {
	return service.Settings{
		DefaultHash: cfg.Weather.DefaultLocation,
		Debounce:    cfg.Search.Debounce,
	}
}

// reload applies the settings that can change without a restart. Listen
// address, API key and schedules need one.
func (a *app) reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	old := a.cfg
	a.cfg = cfg
	a.mu.Unlock()

	if cfg.Addr() != old.Addr() || cfg.Weather.APIKey != old.Weather.APIKey {
		a.logger.Warn("Listen address and API key changes take effect after a restart")
	}

	mode.Set(cfg.Mode)
	a.setDebug(cfg.Debug)
	a.web.SetPage(pageData(cfg))
	a.sessions.Apply(sessionSettings(cfg))
	return nil
}

// reloadFromDisk re-reads the config file (SIGHUP)
func (a *app) reloadFromDisk() {
	a.mu.Lock()
	path := a.cfg.Path
	a.mu.Unlock()

	if path == "" {
		a.logger.Info("No config file to reload")
		return
	}
	cfg, err := config.Load(path)
	if err == nil {
		err = a.reload(cfg)
	}
	if err != nil {
		a.logger.Error("Failed to reload configuration: %v", err)
		return
	}
	a.logger.Info("Configuration reloaded")
}

func (a *app) setDebug(enabled bool) {
	mode.SetDebug(enabled)
	a.logger.SetDebug(enabled)
}

// toggleDebug flips debug logging (SIGUSR2)
func (a *app) toggleDebug() {
	enabled := !mode.IsDebug()
	a.setDebug(enabled)
	if enabled {
		a.logger.Info("Debug mode: ON")
	} else {
		a.logger.Info("Debug mode: OFF")
	}
}

// run serves until a shutdown signal arrives
func (a *app) run() {
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("Failed to start server: %v", err)
		}
	}()

	a.scheduler.Start()

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			a.logger.Warn("Failed to start config watcher: %v", err)
		}
	}

	utils.DisplayBanner(utils.BannerInfo{
		Name:    "weatherio",
		Version: Version,
		Built:   BuildDate,
		URL:     "http://" + a.srv.Addr,
		Mode:    mode.ModeString(),
	})
	a.logger.Info("Server started on %s", a.srv.Addr)

	baseSignals := []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}
	allSignals := make([]os.Signal, 0, len(baseSignals)+len(platformSignals))
	allSignals = append(allSignals, baseSignals...)
	for _, sig := range platformSignals {
		allSignals = append(allSignals, sig)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, allSignals...)

	for sig := range sigChan {
		switch sig {
		case syscall.SIGTERM, syscall.SIGINT:
			a.logger.Info("🛑 Received %v, shutting down gracefully...", sig)
			a.shutdown()
			return
		case syscall.SIGHUP:
			a.reloadFromDisk()
		default:
			handlePlatformSignal(sig, a)
		}
	}
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("Config watcher shutdown error: %v", err)
		}
	}

	if err := a.srv.Shutdown(ctx); err != nil {
		a.logger.Warn("Server forced to shutdown: %v", err)
	}

	a.scheduler.Stop()
	a.sessions.Stop()

	if err := a.geoip.Close(); err != nil {
		a.logger.Warn("GeoIP shutdown error: %v", err)
	}

	a.logger.Info("✅ Server exited gracefully")
	a.logger.Close()
}

func printHelp() {
	fmt.Printf(`weatherio %s - weather widget server

Usage:
  weatherio [flags]

Flags:
  --config <path>    Path to server.yml (default: WEATHER_CONFIG or ./server.yml)
  --address <addr>   Listen address
  --port <port>      Listen port
  --mode <mode>      production or development
  --debug            Enable debug logging
  --pid <path>       Write the process ID to this file
  --version          Show version information
  --help             Show this help message

Environment:
  OPENWEATHER_API_KEY  OpenWeatherMap API key (required)
  WEATHER_CONFIG       Config file path
  PORT, MODE, DEBUG, LOG_DIR

Signals:
  SIGTERM, SIGINT    Graceful shutdown
  SIGHUP             Reload server.yml
  SIGUSR1            Rotate log files
  SIGUSR2            Toggle debug logging
`, Version)
}
