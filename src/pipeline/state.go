package pipeline

// State is the lifecycle state of the widget
type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Region names a display slot
type Region string

const (
	RegionCurrent    Region = "current-weather"
	RegionHighlights Region = "highlights"
	RegionHourly     Region = "hourly-forecast"
	RegionDaily      Region = "5-day-forecast"

	// RegionLocation is the place-name slot inside the current-weather card
	RegionLocation Region = "location"
)

// Regions are the four sections cleared at the start of every cycle
var Regions = []Region{RegionCurrent, RegionHighlights, RegionHourly, RegionDaily}

// Display receives the output of a render cycle. The pipeline serializes
// all calls, so implementations need no locking of their own for writes.
type Display interface {
	// Clear empties the given regions
	Clear(regions ...Region)
	// SetState switches busy/error indicators; message is set for Error
	SetState(state State, message string)
	// SetCurrentLocation marks whether the current-location route is active
	SetCurrentLocation(active bool)
	// Render writes one view into its region
	Render(view View)
	// Reveal hides the busy indicator and shows the filled container
	Reveal()
}
