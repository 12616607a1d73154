package scheduler

import (
	"fmt"
	"time"
)

// Built-in task names
const (
	TaskSessionSweep = "session-sweep"
	TaskGeoIPReload  = "geoip-reload"
	TaskLogRotate    = "log-rotate"
)

// SessionSweepInterval is how often idle sessions are evicted
const SessionSweepInterval = time.Minute

// Sweeper evicts idle display sessions
type Sweeper interface {
	Sweep() int
}

// Reloader reopens a file-backed resource
type Reloader interface {
	Enabled() bool
	Reload() error
}

// Rotator rotates log files
type Rotator interface {
	RotateLogs() error
}

// Config selects the built-in tasks; a nil dependency or empty schedule
// skips its task
type Config struct {
	Sessions Sweeper

	GeoIP         Reloader
	GeoIPSchedule string

	Logs        Rotator
	LogSchedule string
}

// RegisterDefaults adds the built-in maintenance tasks
func (s *Scheduler) RegisterDefaults(cfg Config) error {
	if cfg.Sessions != nil {
		err := s.AddTaskInterval(TaskSessionSweep, SessionSweepInterval, func() error {
			if n := cfg.Sessions.Sweep(); n > 0 {
				s.logger.Debug("%d active sessions", n)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cfg.GeoIP != nil && cfg.GeoIP.Enabled() && cfg.GeoIPSchedule != "" {
		err := s.AddTask(TaskGeoIPReload, cfg.GeoIPSchedule, func() error {
			if err := cfg.GeoIP.Reload(); err != nil {
				return fmt.Errorf("geoip reload: %w", err)
			}
			s.logger.Info("GeoIP database reloaded")
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cfg.Logs != nil && cfg.LogSchedule != "" {
		if err := s.AddTask(TaskLogRotate, cfg.LogSchedule, cfg.Logs.RotateLogs); err != nil {
			return err
		}
	}

	return nil
}
