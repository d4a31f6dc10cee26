// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/valpere/scrapping/internal/obslog"
)

// ChangeEvent is delivered to a Watcher callback on every reload attempt,
// success or failure. It never replaces live descriptors silently: callers
// decide whether to hot-swap based on OK and Warnings.
type ChangeEvent struct {
	Descriptors []Descriptor
	Result      []Result
	Err         error
}

// Watcher watches one configuration file for changes and re-parses plus
// re-validates it on every write, emitting a ChangeEvent per reload.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	log        *obslog.Logger
	callbacks  []func(ChangeEvent)
	mu         sync.RWMutex
	stopped    bool
}

// NewWatcher creates a file watcher for configPath.
func NewWatcher(configPath string, logger *obslog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	cw := &Watcher{watcher: fw, configPath: configPath, log: logger}

	if err := fw.Add(configPath); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch config file: %w", err)
	}
	if err := fw.Add(filepath.Dir(configPath)); err != nil {
		logger.Warnf("config watcher: failed to watch directory %s: %v", filepath.Dir(configPath), err)
	}

	go cw.run()
	return cw, nil
}

// OnChange registers a callback invoked on every reload attempt.
func (cw *Watcher) OnChange(callback func(ChangeEvent)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

func (cw *Watcher) run() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Name == cw.configPath && (event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create) {
				cw.reload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Warnf("config watcher error: %v", err)
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.RLock()
	if cw.stopped {
		cw.mu.RUnlock()
		return
	}
	callbacks := make([]func(ChangeEvent), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	descs, err := Load(cw.configPath)
	evt := ChangeEvent{Descriptors: descs, Err: err}
	if err == nil {
		evt.Result = make([]Result, len(descs))
		for i := range descs {
			evt.Result[i] = Validate(&descs[i])
			for _, w := range evt.Result[i].Warnings {
				cw.log.Warnf("config reload: %s: %s", descs[i].SourceID, w)
			}
		}
	} else {
		cw.log.Errorf("config reload failed: %v", err)
	}

	for _, cb := range callbacks {
		cb(evt)
	}
}

// Close stops the watcher.
func (cw *Watcher) Close() error {
	cw.mu.Lock()
	cw.stopped = true
	cw.mu.Unlock()
	return cw.watcher.Close()
}
