// Package config loads server.yml on top of built-in defaults and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/apimgr/weatherio/src/route"
)

// ErrMissingAPIKey is returned when no OpenWeatherMap key is configured
var ErrMissingAPIKey = errors.New("openweather api key is not set (weather.api_key or OPENWEATHER_API_KEY)")

// Config represents the application configuration
type Config struct {
	Mode  string `yaml:"mode"` // development, production
	Debug bool   `yaml:"debug"`

	Server   ServerConfig  `yaml:"server"`
	Weather  WeatherConfig `yaml:"weather"`
	Search   SearchConfig  `yaml:"search"`
	Sessions SessionConfig `yaml:"sessions"`
	GeoIP    GeoIPConfig   `yaml:"geoip"`
	Logging  LoggingConfig `yaml:"logging"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-"`
}

// ServerConfig represents server-specific configuration
type ServerConfig struct {
	Address     string         `yaml:"address"`
	Port        int            `yaml:"port"`
	Branding    BrandingConfig `yaml:"branding"`
	CORSOrigins []string       `yaml:"cors_origins"`
	// SearchRateLimit is the number of search API calls per minute per client
	SearchRateLimit int `yaml:"search_rate_limit"`
}

// BrandingConfig represents branding configuration
type BrandingConfig struct {
	Title       string `yaml:"title"`
	AppName     string `yaml:"app_name"`
	Description string `yaml:"description"`
}

// WeatherConfig configures the OpenWeatherMap client
type WeatherConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// DefaultLocation is the route used when geolocation is unavailable
	DefaultLocation string `yaml:"default_location"`
	// IconURL is the weather icon URL; {icon} is replaced by the icon code
	IconURL string `yaml:"icon_url"`
}

// SearchConfig configures location search
type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// SessionConfig configures live display sessions
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// GeoIPConfig configures the IP location fallback
type GeoIPConfig struct {
	// Database is a MaxMind GeoLite2/GeoIP2 City database; empty disables the fallback
	Database string `yaml:"database"`
	Reload   string `yaml:"reload"` // cron spec
}

// LoggingConfig configures log files
type LoggingConfig struct {
	Dir    string `yaml:"dir"`
	Rotate string `yaml:"rotate"` // cron spec
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Mode: "production",
		Server: ServerConfig{
			Address:         "0.0.0.0",
			Port:            8080,
			SearchRateLimit: 60,
			Branding: BrandingConfig{
				Title:       "Weather",
				AppName:     "weatherio",
				Description: "Current conditions, air quality and 5 day forecast",
			},
		},
		Weather: WeatherConfig{
			BaseURL:         "https://api.openweathermap.org",
			Timeout:         10 * time.Second,
			DefaultLocation: "#/weather?lat=51.5073219&lon=-0.1276474",
			IconURL:         "https://openweathermap.org/img/wn/{icon}@2x.png",
		},
		Search: SearchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Sessions: SessionConfig{
			IdleTimeout: 30 * time.Minute,
		},
		GeoIP: GeoIPConfig{
			Reload: "0 0 4 * * 3",
		},
		Logging: LoggingConfig{
			Rotate: "0 0 0 * * *",
		},
	}
}

// LoadConfig loads .env, then server.yml from WEATHER_CONFIG or the
// usual locations, then environment overrides
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := os.Getenv("WEATHER_CONFIG")
	if path == "" {
		path = findConfigFile()
	}
	return Load(path)
}

// Load reads the config at path on top of the defaults. An empty path
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Path = path
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		c.Weather.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = IsTruthy(v)
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	return nil
}

// Validate checks the values the server cannot start without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Weather.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if r, err := route.Parse(c.Weather.DefaultLocation); err != nil || r.Kind != route.Weather {
		return fmt.Errorf("invalid default_location %q: must be a #/weather?lat=..&lon=.. route", c.Weather.DefaultLocation)
	}
	return nil
}

// Addr returns host:port to listen on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// IsTruthy reports whether s is a true-ish flag value (1, true, yes, on, enabled)
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on", "enable", "enabled":
		return true
	default:
		return false
	}
}

// findConfigFile searches for server.yml in common locations
func findConfigFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search paths (in order of priority)
	searchPaths := []string{
		filepath.Join(cwd, "server.yml"),
		filepath.Join(cwd, "../server.yml"),
		filepath.Join(cwd, "../../server.yml"),
		"/etc/weatherio/server.yml",
		"/opt/weatherio/server.yml",
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
