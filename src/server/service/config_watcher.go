package service

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/apimgr/weatherio/src/config"
)

// WatcherLogger is the subset of the application logger the watcher uses
type WatcherLogger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// ConfigWatcher watches server.yml for changes and triggers reload
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	load       func(path string) (*config.Config, error)
	reloadFunc func(*config.Config) error
	logger     WatcherLogger
	debounce   time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewConfigWatcher creates a new config file watcher
func NewConfigWatcher(configPath string, reloadFunc func(*config.Config) error, logger WatcherLogger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ConfigWatcher{
		watcher:    watcher,
		configPath: configPath,
		load:       config.Load,
		reloadFunc: reloadFunc,
		logger:     logger,
		debounce:   500 * time.Millisecond,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start begins watching the config file for changes
func (cw *ConfigWatcher) Start() error {
	// Watch the directory; editors replace files rather than write them
	if err := cw.watcher.Add(filepath.Dir(cw.configPath)); err != nil {
		return err
	}

	cw.logger.Info("Watching for config file changes: %s", cw.configPath)

	go func() {
		var debounceTimer *time.Timer

		for {
			select {
			case event, ok := <-cw.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(cw.configPath) {
					continue
				}

				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if debounceTimer != nil {
						debounceTimer.Stop()
					}
					debounceTimer = time.AfterFunc(cw.debounce, cw.reload)
				}

			case err, ok := <-cw.watcher.Errors:
				if !ok {
					return
				}
				cw.logger.Warn("Config watcher error: %v", err)

			case <-cw.stopChan:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				cw.logger.Info("Stopping config file watcher")
				return
			}
		}
	}()

	return nil
}

func (cw *ConfigWatcher) reload() {
	cw.logger.Info("Config file changed, reloading...")

	newCfg, err := cw.load(cw.configPath)
	if err != nil {
		cw.logger.Error("Failed to load new config: %v", err)
		return
	}

	if err := cw.reloadFunc(newCfg); err != nil {
		cw.logger.Error("Failed to apply new config: %v", err)
		return
	}

	cw.logger.Info("Configuration reloaded")
}

// Stop stops the config file watcher
func (cw *ConfigWatcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.stopChan)
		err = cw.watcher.Close()
	})
	return err
}
