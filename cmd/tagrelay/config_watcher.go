package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stlalpha/tagrelay/internal/broker"
	"github.com/stlalpha/tagrelay/internal/config"
	"github.com/stlalpha/tagrelay/internal/logging"
)

// relayControl is what a config reload may change on a running relay.
type relayControl interface {
	ApplyLimits(broker.Limits)
	RenameLocalUser(name string)
}

// ConfigWatcher watches the config directory and hot-reloads config.json.
type ConfigWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	watcherDone chan bool
	configDir   string
	relay       relayControl
	current     config.ServerConfig
	debounce    time.Duration
}

// NewConfigWatcher starts watching configDir. current is the configuration
// the relay is running with.
func NewConfigWatcher(configDir string, relay relayControl, current config.ServerConfig) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:     watcher,
		watcherDone: make(chan bool),
		configDir:   configDir,
		relay:       relay,
		current:     current,
		debounce:    500 * time.Millisecond,
	}

	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", configDir, err)
	}
	log.Printf("INFO: Watching %s for config changes (auto-reload enabled)", configDir)

	go cw.watchLoop(watcher)

	return cw, nil
}

// Stop stops the watcher. Safe to call more than once.
func (cw *ConfigWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.watcher == nil {
		return
	}

	select {
	case <-cw.watcherDone:
	default:
		close(cw.watcherDone)
	}

	cw.watcher.Close()
	cw.watcher = nil
	log.Printf("INFO: Configuration file watcher stopped")
}

// watchLoop handles file system events, debouncing bursts of writes.
func (cw *ConfigWatcher) watchLoop(w *fsnotify.Watcher) {
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Base(event.Name), "config.json") {
				logging.Debug("Ignoring change to %s", filepath.Base(event.Name))
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			cw.mu.RLock()
			delay := cw.debounce
			cw.mu.RUnlock()
			debounceTimer = time.AfterFunc(delay, cw.reloadServerConfig)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: Config file watcher error: %v", err)

		case <-cw.watcherDone:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

// reloadServerConfig re-reads config.json and applies what can change
// live. A file that fails to load leaves the running settings untouched.
func (cw *ConfigWatcher) reloadServerConfig() {
	log.Printf("INFO: Reloading config.json...")

	updated, err := config.LoadServerConfig(cw.configDir)
	if err != nil {
		log.Printf("ERROR: Failed to reload config.json: %v", err)
		return
	}
	applyFlags(&updated)

	cw.mu.Lock()
	old := cw.current
	cw.current = updated
	cw.mu.Unlock()

	cw.relay.ApplyLimits(limitsFrom(updated))
	if updated.ServerName != old.ServerName {
		cw.relay.RenameLocalUser(updated.ServerName)
	}

	log.Printf("INFO: config.json reloaded successfully")
	if changed := restartRequired(old, updated); len(changed) > 0 {
		log.Printf("WARN: config.json changes to %s require a restart", strings.Join(changed, ", "))
	}
}
