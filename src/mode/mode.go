// Package mode holds the process-wide run mode. Config reloads change it
// while requests read it, so the state is atomic.
package mode

import (
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Mode is production (default) or development
type Mode int32

const (
	Production Mode = iota
	Development
)

var (
	current atomic.Int32
	debug   atomic.Bool
)

func (m Mode) String() string {
	if m == Development {
		return "development"
	}
	return "production"
}

// Parse maps a config value to a mode; unknown values are production
func Parse(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return Development
	default:
		return Production
	}
}

// Set sets the mode from a config value
func Set(s string) {
	current.Store(int32(Parse(s)))
}

// SetDebug toggles debug mode. Debug also turns on block and mutex
// profiling.
func SetDebug(enabled bool) {
	debug.Store(enabled)
	if enabled {
		runtime.SetBlockProfileRate(1)
		runtime.SetMutexProfileFraction(1)
	} else {
		runtime.SetBlockProfileRate(0)
		runtime.SetMutexProfileFraction(0)
	}
}

// Current returns the current mode
func Current() Mode {
	return Mode(current.Load())
}

// IsDevelopment reports development mode
func IsDevelopment() bool {
	return Current() == Development
}

// IsDebug reports whether debug mode is on
func IsDebug() bool {
	return debug.Load()
}

// ModeString returns the mode with a debug suffix, for the banner
func ModeString() string {
	s := Current().String()
	if IsDebug() {
		s += " [debugging]"
	}
	return s
}

// GinMode is the gin mode matching the current mode
func GinMode() string {
	if IsDevelopment() || IsDebug() {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
