package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const logTimeFormat = "2006-01-02 15:04:05"

// logFiles are the files kept in the log directory
var logFiles = []string{"access.log", "server.log", "error.log", "debug.log"}

// Logger handles application logging to stdout and, when a directory is
// configured, to access.log, server.log, error.log and debug.log
type Logger struct {
	accessLog *log.Logger
	serverLog *log.Logger
	errorLog  *log.Logger
	debugLog  *log.Logger
	logDir    string
	isDebug   bool

	mu    sync.Mutex
	files []*os.File
}

// NewLogger creates a logger writing to logDir and the console
func NewLogger(logDir string, debug bool) (*Logger, error) {
	dirPerm := os.FileMode(0700)
	if os.Geteuid() == 0 {
		dirPerm = 0755
	}
	if err := os.MkdirAll(logDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: logDir, isDebug: debug}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewStdLogger creates a console-only logger
func NewStdLogger(debug bool) *Logger {
	return newWriterLogger(os.Stdout, os.Stderr, debug)
}

func newWriterLogger(out, errOut io.Writer, debug bool) *Logger {
	return &Logger{
		accessLog: log.New(out, "", 0),
		serverLog: log.New(out, "", 0),
		errorLog:  log.New(errOut, "", 0),
		debugLog:  log.New(out, "", 0),
		isDebug:   debug,
	}
}

// open (re)opens the log files in append mode
func (l *Logger) open() error {
	opened := make(map[string]*os.File, len(logFiles))
	for _, name := range logFiles {
		f, err := os.OpenFile(filepath.Join(l.logDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, o := range opened {
				o.Close()
			}
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		opened[name] = f
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.files {
		f.Close()
	}
	l.files = l.files[:0]
	for _, f := range opened {
		l.files = append(l.files, f)
	}

	l.accessLog = log.New(io.MultiWriter(opened["access.log"], os.Stdout), "", 0)
	l.serverLog = log.New(io.MultiWriter(opened["server.log"], os.Stdout), "", 0)
	l.errorLog = log.New(io.MultiWriter(opened["error.log"], os.Stderr), "", 0)
	l.debugLog = log.New(io.MultiWriter(opened["debug.log"], os.Stdout), "", 0)
	return nil
}

func (l *Logger) loggers() (access, server, errs, debug *log.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accessLog, l.serverLog, l.errorLog, l.debugLog
}

// SetDebug toggles debug output, e.g. after a config reload
func (l *Logger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.isDebug = enabled
	l.mu.Unlock()
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	_, server, _, _ := l.loggers()
	server.Printf("[%s] [INFO] %s", time.Now().Format(logTimeFormat), fmt.Sprintf(format, v...))
}

// Server logs a server event
func (l *Logger) Server(format string, v ...interface{}) {
	_, server, _, _ := l.loggers()
	server.Printf("[%s] [SERVER] %s", time.Now().Format(logTimeFormat), fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	_, server, _, _ := l.loggers()
	server.Printf("[%s] [WARN] %s", time.Now().Format(logTimeFormat), fmt.Sprintf(format, v...))
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	_, _, errs, _ := l.loggers()
	errs.Printf("[%s] [ERROR] %s", time.Now().Format(logTimeFormat), fmt.Sprintf(format, v...))
}

// Fatal logs a fatal error and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	_, _, errs, _ := l.loggers()
	errs.Printf("[%s] [FATAL] %s", time.Now().Format(logTimeFormat), fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Debug logs a debug message (only when debug is enabled)
func (l *Logger) Debug(format string, v ...interface{}) {
	l.mu.Lock()
	enabled, debug := l.isDebug, l.debugLog
	l.mu.Unlock()
	if enabled && debug != nil {
		debug.Printf("[%s] [DEBUG] %s", time.Now().Format(logTimeFormat), fmt.Sprintf(format, v...))
	}
}

// Access logs an access entry (Apache Combined Log Format)
func (l *Logger) Access(ip, user, method, path, protocol string, status int, size int64, referer, userAgent string) {
	timestamp := time.Now().Format("02/Jan/2006:15:04:05 -0700")
	if user == "" {
		user = "-"
	}
	if referer == "" {
		referer = "-"
	}
	if userAgent == "" {
		userAgent = "-"
	}

	access, _, _, _ := l.loggers()
	access.Printf(`%s - %s [%s] "%s %s %s" %d %d "%s" "%s"`,
		ip, user, timestamp, method, path, protocol, status, size, referer, userAgent)
}

// RotateLogs archives the current log files as <name>.<date>, truncates
// them and removes archives older than 30 days (called by scheduler)
func (l *Logger) RotateLogs() error {
	if l.logDir == "" {
		return nil
	}
	timestamp := time.Now().Format("2006-01-02")

	for _, logFile := range logFiles {
		currentPath := filepath.Join(l.logDir, logFile)
		archivePath := filepath.Join(l.logDir, fmt.Sprintf("%s.%s", logFile, timestamp))

		info, err := os.Stat(currentPath)
		if err != nil || info.Size() == 0 {
			continue
		}

		if err := copyFile(currentPath, archivePath); err != nil {
			return fmt.Errorf("failed to archive %s: %w", logFile, err)
		}
		if err := os.Truncate(currentPath, 0); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", logFile, err)
		}
	}

	if err := l.cleanOldLogs(30 * 24 * time.Hour); err != nil {
		return fmt.Errorf("failed to clean old logs: %w", err)
	}
	return nil
}

// cleanOldLogs removes archived logs older than the retention period
func (l *Logger) cleanOldLogs(retention time.Duration) error {
	cutoff := time.Now().Add(-retention)

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return err
	}

	current := make(map[string]bool, len(logFiles))
	for _, name := range logFiles {
		current[name] = true
	}

	for _, entry := range entries {
		if entry.IsDir() || current[entry.Name()] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(l.logDir, entry.Name())); err != nil {
				l.Error("Failed to remove old log %s: %v", entry.Name(), err)
			}
		}
	}
	return nil
}

// Close closes the log files
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	return err
}
