package pipeline

import (
	"encoding/json"
	"sync"
)

// Snapshot is a Display that keeps the latest output in memory. The JSON API
// and the terminal client render from it.
type Snapshot struct {
	mu              sync.RWMutex
	state           State
	message         string
	currentLocation bool
	revealed        bool
	views           map[Region]View
	writes          map[Region]int
}

// NewSnapshot returns an empty idle snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		views:  make(map[Region]View),
		writes: make(map[Region]int),
	}
}

func (s *Snapshot) Clear(regions ...Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range regions {
		delete(s.views, r)
		delete(s.writes, r)
		if r == RegionCurrent {
			// the location slot lives inside the current card
			delete(s.views, RegionLocation)
			delete(s.writes, RegionLocation)
		}
	}
	s.revealed = false
}

func (s *Snapshot) SetState(state State, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.message = message
}

func (s *Snapshot) SetCurrentLocation(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentLocation = active
}

func (s *Snapshot) Render(view View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view.Region()] = view
	s.writes[view.Region()]++
}

func (s *Snapshot) Reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revealed = true
}

// State returns the last state and its message
func (s *Snapshot) State() (State, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.message
}

// View returns the view rendered into region, or nil
func (s *Snapshot) View(region Region) View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views[region]
}

// Writes returns how often region was rendered since it was last cleared
func (s *Snapshot) Writes(region Region) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[region]
}

// Revealed reports whether the container is shown
func (s *Snapshot) Revealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revealed
}

// CurrentLocation reports whether the current-location route is active
func (s *Snapshot) CurrentLocation() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocation
}

// MarshalJSON encodes the snapshot keyed by region name
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return json.Marshal(struct {
		State           State           `json:"state"`
		Message         string          `json:"message,omitempty"`
		CurrentLocation bool            `json:"currentLocation"`
		Revealed        bool            `json:"revealed"`
		Regions         map[Region]View `json:"regions"`
	}{
		State:           s.state,
		Message:         s.message,
		CurrentLocation: s.currentLocation,
		Revealed:        s.revealed,
		Regions:         s.views,
	})
}

var _ Display = (*Snapshot)(nil)
