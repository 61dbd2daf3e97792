package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SettingsWatcher watches the visualization settings file for changes
// and notifies subscribers with the freshly parsed settings. A parse
// failure keeps the previous settings in effect.
type SettingsWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *VisualizationSettings
	mu       sync.RWMutex
	onChange []func(*VisualizationSettings)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewSettingsWatcher loads the initial settings and sets up the file
// watcher. The directory is watched too, so atomic saves (rename over
// the file) are picked up.
func NewSettingsWatcher(settingsPath string, logger *zap.Logger) (*SettingsWatcher, error) {
	settings, err := LoadSettingsFromFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial settings: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(settingsPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch settings file: %w", err)
	}

	if err := watcher.Add(filepath.Dir(settingsPath)); err != nil {
		logger.Warn("Failed to watch settings directory", zap.Error(err))
	}

	return &SettingsWatcher{
		path:    settingsPath,
		watcher: watcher,
		current: settings,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for settings changes
func (w *SettingsWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Settings watcher started", zap.String("path", w.path))
}

// Stop stops watching
func (w *SettingsWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Settings watcher stopped")
}

// Current returns the latest valid settings
func (w *SettingsWatcher) Current() *VisualizationSettings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload
func (w *SettingsWatcher) OnChange(fn func(*VisualizationSettings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

func (w *SettingsWatcher) watchLoop() {
	// Debounce so editors that write in several steps trigger one reload
	var debounce *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Settings watcher error", zap.Error(err))
		}
	}
}

func (w *SettingsWatcher) reload() {
	settings, err := LoadSettingsFromFile(w.path)
	if err != nil {
		w.logger.Warn("Keeping previous settings after failed reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = settings
	callbacks := append(([]func(*VisualizationSettings))(nil), w.onChange...)
	w.mu.Unlock()

	w.logger.Info("Settings reloaded",
		zap.String("deviceClass", settings.DeviceClass),
		zap.String("lodMode", settings.LODMode),
	)

	for _, fn := range callbacks {
		fn(settings)
	}
}
