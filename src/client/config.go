package client

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/apimgr/weatherio/src/route"
)

const (
	projectOrg  = "apimgr"
	projectName = "weatherio"
)

// Output formats
const (
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// CLIConfig represents the CLI client configuration
type CLIConfig struct {
	// Server is a weatherio server URL; empty queries OpenWeatherMap directly
	Server string `yaml:"server,omitempty"`
	// APIKey is the OpenWeatherMap key used without a server
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Output  string `yaml:"output,omitempty"`
	NoColor bool   `yaml:"no_color,omitempty"`
	// Timeout in seconds
	Timeout int `yaml:"timeout,omitempty"`
	// Location is the route shown when no coordinates are given
	Location string `yaml:"location,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Output:   FormatPlain,
		Timeout:  10,
		Location: route.DefaultHash,
	}
}

// RequestTimeout returns the timeout as a duration
func (c *CLIConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.Timeout) * time.Second
}

// Validate checks the output format and that some backend is configured
func (c *CLIConfig) Validate() error {
	if err := c.validateOutput(); err != nil {
		return err
	}
	if c.Server == "" && strings.TrimSpace(c.APIKey) == "" {
		return NewConfigError("no server or api key configured (--server, WEATHER_SERVER or OPENWEATHER_API_KEY)")
	}
	return nil
}

// CLIConfigDir returns the CLI config directory
func CLIConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), projectOrg, projectName)
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, projectOrg, projectName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", projectOrg, projectName)
}

// CLIConfigFile returns the CLI config file path
func CLIConfigFile() string {
	return filepath.Join(CLIConfigDir(), "cli.yml")
}

// LoadConfig loads the default config file plus environment overrides
func LoadConfig() (*CLIConfig, error) {
	return LoadConfigFrom(CLIConfigFile())
}

// LoadConfigFrom loads the config at path on top of the defaults. A missing
// file is not an error.
func LoadConfigFrom(path string) (*CLIConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, NewConfigError(fmt.Sprintf("failed to parse config %s: %v", path, err))
		}
	case !os.IsNotExist(err):
		return nil, NewConfigError(fmt.Sprintf("failed to read config %s: %v", path, err))
	}

	if v := os.Getenv("WEATHER_SERVER"); v != "" {
		config.Server = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		config.APIKey = v
	}
	if v := os.Getenv("WEATHER_OUTPUT"); v != "" {
		config.Output = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		config.NoColor = true
	}

	return config, nil
}

// readConfigFile reads path on top of the defaults without environment
// overrides
func readConfigFile(path string) (*CLIConfig, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, NewConfigError(fmt.Sprintf("failed to read config %s: %v", path, err))
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, NewConfigError(fmt.Sprintf("failed to parse config %s: %v", path, err))
	}
	return config, nil
}

// SaveConfig writes the config file with user-only permissions
func SaveConfig(path string, config *CLIConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return NewConfigError(fmt.Sprintf("failed to create config directory: %v", err))
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return NewConfigError(fmt.Sprintf("failed to encode config: %v", err))
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return NewConfigError(fmt.Sprintf("failed to write config: %v", err))
	}
	return nil
}

// GetConfigValue returns one config value by key
func GetConfigValue(config *CLIConfig, key string) (string, error) {
	switch key {
	case "server":
		return config.Server, nil
	case "api_key":
		return config.APIKey, nil
	case "base_url":
		return config.BaseURL, nil
	case "output":
		return config.Output, nil
	case "no_color":
		return strconv.FormatBool(config.NoColor), nil
	case "timeout":
		return strconv.Itoa(config.Timeout), nil
	case "location":
		return config.Location, nil
	default:
		return "", NewUsageError(fmt.Sprintf("unknown config key: %s", key))
	}
}

// SetConfigValue sets one config value by key
func SetConfigValue(config *CLIConfig, key, value string) error {
	switch key {
	case "server":
		config.Server = strings.TrimRight(value, "/")
	case "api_key":
		config.APIKey = value
	case "base_url":
		config.BaseURL = value
	case "output":
		config.Output = value
	case "no_color":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return NewUsageError(fmt.Sprintf("invalid boolean %q", value))
		}
		config.NoColor = b
	case "timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return NewUsageError(fmt.Sprintf("invalid timeout %q", value))
		}
		config.Timeout = n
	case "location":
		if r, err := route.Parse(value); err != nil || r.Kind != route.Weather {
			return NewUsageError(fmt.Sprintf("invalid location %q: expected #/weather?lat=..&lon=..", value))
		}
		config.Location = value
	default:
		return NewUsageError(fmt.Sprintf("unknown config key: %s", key))
	}
	return config.validateOutput()
}

func (c *CLIConfig) validateOutput() error {
	if c.Output != FormatPlain && c.Output != FormatJSON {
		return NewUsageError(fmt.Sprintf("invalid output format %q (plain, json)", c.Output))
	}
	return nil
}
