package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile guards against a second server instance
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PID file manager for path
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Check reports whether the process named in the file is still running.
// A stale or unreadable file is removed.
func (p *PIDFile) Check() (bool, int, error) {
	pid, err := p.GetPID()
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		os.Remove(p.Path)
		return false, 0, fmt.Errorf("%w (removed stale file)", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(p.Path)
		return false, 0, nil
	}
	// signal 0 probes for existence
	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(p.Path)
		return false, pid, nil
	}
	return true, pid, nil
}

// Create writes the current PID, failing if another instance is running
func (p *PIDFile) Create() error {
	running, existing, err := p.Check()
	if err != nil {
		return err
	}
	if running && existing != os.Getpid() {
		return fmt.Errorf("server already running with PID %d", existing)
	}

	if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	content := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(p.Path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", p.Path, err)
	}
	return nil
}

// Remove removes the PID file
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", p.Path, err)
	}
	return nil
}

// GetPID reads the PID from the file
func (p *PIDFile) GetPID() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file %s: %q", p.Path, pidStr)
	}
	return pid, nil
}
