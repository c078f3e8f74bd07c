package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	appLog "quakemap/internal/log"
)

// Watcher reloads the config file when it changes on disk and notifies
// registered callbacks. Editors and the atomic Save path both replace
// the file, so Create is handled the same as Write.
type Watcher struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewWatcher creates a Watcher seeded with the already-loaded config.
func NewWatcher(path string, initial *Config) *Watcher {
	return &Watcher{path: path, current: initial}
}

// Config returns the current (latest) configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on
// file changes. Call the returned stop function to clean up.
func (w *Watcher) Watch() (stop func(), err error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", w.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer fsw.Close()
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cfg, err := Load(w.path)
					if err != nil {
						appLog.Error("config reload failed; keeping previous", err, "path", w.path)
						continue
					}
					w.mu.Lock()
					w.current = cfg
					callbacks := make([]func(*Config), len(w.onChange))
					copy(callbacks, w.onChange)
					w.mu.Unlock()
					appLog.Info("config reloaded", "path", w.path)
					for _, fn := range callbacks {
						fn(cfg)
					}
				}
			case <-fsw.Errors:
				// Ignore watcher errors; a broken watcher just means no
				// hot reload until restart.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}
