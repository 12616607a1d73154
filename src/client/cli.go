package client

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/apimgr/weatherio/src/models"
	"github.com/apimgr/weatherio/src/render"
	"github.com/apimgr/weatherio/src/route"
)

// Execute is the main entry point for the CLI
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Run(ctx, os.Args[1:], os.Stdout)
}

// Run parses args and runs one command, writing to stdout
func Run(ctx context.Context, args []string, stdout io.Writer) error {
	flagSet := flag.NewFlagSet("weather-cli", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	serverFlag := flagSet.String("server", "", "Server URL (overrides config)")
	formatFlag := flagSet.String("format", "", "Output format: plain, json")
	configFlag := flagSet.String("config", "", "Config file path")
	noColorFlag := flagSet.Bool("no-color", false, "Disable colored output")
	timeoutFlag := flagSet.Int("timeout", 0, "Request timeout in seconds")
	versionFlag := flagSet.Bool("version", false, "Show version information")
	helpFlag := flagSet.Bool("help", false, "Show help")
	location := registerLocationFlags(flagSet)

	if err := flagSet.Parse(args); err != nil {
		return NewUsageError(err.Error())
	}
	location.visit(flagSet)

	if *versionFlag {
		printVersion(stdout)
		return nil
	}
	if *helpFlag {
		printUsage(stdout)
		return nil
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = CLIConfigFile()
	}
	config, err := LoadConfigFrom(configPath)
	if err != nil {
		return err
	}

	if *serverFlag != "" {
		config.Server = strings.TrimRight(*serverFlag, "/")
	}
	if *formatFlag != "" {
		config.Output = *formatFlag
	}
	if *noColorFlag {
		config.NoColor = true
	}
	if *timeoutFlag > 0 {
		config.Timeout = *timeoutFlag
	}

	command := "current"
	commandArgs := flagSet.Args()
	if len(commandArgs) > 0 {
		command, commandArgs = commandArgs[0], commandArgs[1:]
	}

	switch command {
	case "version":
		printVersion(stdout)
		return nil
	case "help":
		printUsage(stdout)
		return nil
	case "config":
		return handleConfigCommand(stdout, configPath, config, commandArgs)
	}

	if err := config.Validate(); err != nil {
		return err
	}
	backend := newBackend(config, stdout)

	switch command {
	case "current":
		return handleCurrentCommand(ctx, stdout, config, backend, location, commandArgs)
	case "search":
		return handleSearchCommand(ctx, stdout, config, backend, commandArgs)
	case "tui":
		if !isTerminal(stdout) || !term.IsTerminal(int(os.Stdin.Fd())) {
			return NewUsageError("tui requires an interactive terminal")
		}
		return runTUI(ctx, backend)
	default:
		return NewUsageError(fmt.Sprintf("unknown command: %s", command))
	}
}

// newBackend picks the server API when a server is configured, otherwise
// OpenWeatherMap directly
func newBackend(config *CLIConfig, stdout io.Writer) Backend {
	if config.Server != "" {
		return NewHTTPClient(config)
	}
	return NewDirect(config, terminalFor(config, stdout))
}

// terminalFor returns a renderer that colors only interactive output
func terminalFor(config *CLIConfig, stdout io.Writer) *render.Terminal {
	if config.NoColor || !isTerminal(stdout) {
		// the renderer takes its color profile from the writer
		return render.NewTerminalFor(io.Discard)
	}
	return render.NewTerminalFor(stdout)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// locationFlags select the place of the current command. They are
// accepted before and after the command name.
type locationFlags struct {
	lat, lon float64
	query    string
	set      map[string]bool
}

func registerLocationFlags(fs *flag.FlagSet) *locationFlags {
	l := &locationFlags{set: map[string]bool{}}
	fs.Float64Var(&l.lat, "lat", 0, "Latitude")
	fs.Float64Var(&l.lon, "lon", 0, "Longitude")
	fs.StringVar(&l.query, "search", "", "Place name")
	return l
}

// visit records which flags of fs were given
func (l *locationFlags) visit(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) { l.set[f.Name] = true })
}

// handleCurrentCommand prints the weather for --lat/--lon, the first match
// of --search, or the configured location
func handleCurrentCommand(ctx context.Context, stdout io.Writer, config *CLIConfig, backend Backend, location *locationFlags, args []string) error {
	flagSet := flag.NewFlagSet("current", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Float64Var(&location.lat, "lat", location.lat, "Latitude")
	flagSet.Float64Var(&location.lon, "lon", location.lon, "Longitude")
	flagSet.StringVar(&location.query, "search", location.query, "Place name")

	if err := flagSet.Parse(args); err != nil {
		return NewUsageError(err.Error())
	}
	if flagSet.NArg() > 0 {
		return NewUsageError(fmt.Sprintf("unexpected argument: %s", flagSet.Arg(0)))
	}
	location.visit(flagSet)

	coords, err := resolveLocation(ctx, config, backend, location)
	if err != nil {
		return err
	}

	out, err := backend.Weather(ctx, coords, config.Output)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func resolveLocation(ctx context.Context, config *CLIConfig, backend Backend, l *locationFlags) (models.Coordinates, error) {
	switch {
	case l.set["lat"] || l.set["lon"]:
		if !l.set["lat"] || !l.set["lon"] {
			return models.Coordinates{}, NewUsageError("--lat and --lon must be given together")
		}
		coords := models.Coordinates{Latitude: l.lat, Longitude: l.lon}
		if !coords.Valid() {
			return models.Coordinates{}, NewUsageError(fmt.Sprintf("coordinates out of range: %s", coords))
		}
		return coords, nil

	case strings.TrimSpace(l.query) != "":
		results, err := backend.Search(ctx, l.query)
		if err != nil {
			return models.Coordinates{}, err
		}
		if len(results) == 0 {
			return models.Coordinates{}, NewNotFoundError(fmt.Sprintf("no location matches %q", l.query))
		}
		return results[0].Coordinates, nil

	default:
		r, err := route.Parse(config.Location)
		if err != nil || r.Kind != route.Weather {
			return models.Coordinates{}, NewConfigError(fmt.Sprintf("invalid location %q", config.Location))
		}
		return r.Coordinates, nil
	}
}

// handleSearchCommand lists the places matching the arguments
func handleSearchCommand(ctx context.Context, stdout io.Writer, config *CLIConfig, backend Backend, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return NewUsageError("search requires a place name")
	}

	results, err := backend.Search(ctx, query)
	if err != nil {
		return err
	}

	if config.Output == FormatJSON {
		return writeJSON(stdout, map[string]interface{}{"query": query, "results": results})
	}
	if len(results) == 0 {
		return NewNotFoundError(fmt.Sprintf("no location matches %q", query))
	}
	fmt.Fprintln(stdout, terminalFor(config, stdout).SearchResults(results))
	return nil
}

// handleConfigCommand handles config subcommands
func handleConfigCommand(stdout io.Writer, path string, config *CLIConfig, args []string) error {
	if len(args) == 0 {
		return NewUsageError("config command requires a subcommand (show, get, set, path)")
	}

	switch args[0] {
	case "path":
		fmt.Fprintln(stdout, path)
		return nil

	case "show":
		shown := *config
		if shown.APIKey != "" {
			shown.APIKey = "********"
		}
		return writeYAML(stdout, &shown)

	case "get":
		if len(args) < 2 {
			return NewUsageError("config get requires a key")
		}
		value, err := GetConfigValue(config, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, value)
		return nil

	case "set":
		if len(args) < 3 {
			return NewUsageError("config set requires a key and value")
		}
		// env overrides must not be persisted
		stored, err := readConfigFile(path)
		if err != nil {
			return err
		}
		value := strings.Join(args[2:], " ")
		if err := SetConfigValue(stored, args[1], value); err != nil {
			return err
		}
		if err := SaveConfig(path, stored); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Configuration updated: %s = %s\n", args[1], value)
		return nil

	default:
		return NewUsageError(fmt.Sprintf("unknown config subcommand: %s", args[0]))
	}
}

// printUsage prints the usage information
func printUsage(w io.Writer) {
	fmt.Fprint(w, `weather-cli - current weather, air quality and forecast

Usage:
  weather-cli [flags] [command] [args]

Commands:
  current      Show the weather (default)
                 --lat <deg> --lon <deg>   coordinates
                 --search <name>           first match of a place name
  search       List places matching a name
  tui          Interactive search
  config       Manage configuration (show, get, set, path)
  version      Show version information

Flags:
  --server <url>       weatherio server URL (default: query OpenWeatherMap directly)
  --format <format>    Output format: plain, json (default: plain)
  --config <path>      Config file path
  --no-color           Disable colored output
  --timeout <seconds>  Request timeout (default: 10)
  --version            Show version information
  --help               Show this help message

Environment:
  OPENWEATHER_API_KEY  API key used without a server
  WEATHER_SERVER       Server URL
  WEATHER_OUTPUT       Output format
  NO_COLOR             Disable colored output

Examples:
  weather-cli --lat 40.7128 --lon -74.0060
  weather-cli current --search "New York"
  weather-cli --server http://localhost:8080 --format json search London
  weather-cli config set location "#/weather?lat=48.8566&lon=2.3522"
`)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "weather-cli version %s\n", Version)
	fmt.Fprintf(w, "Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "Build date: %s\n", BuildDate)
}
