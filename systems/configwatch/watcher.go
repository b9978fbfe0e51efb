// Package configwatch watches the engine's config file and reacts to edits,
// optionally by requesting an engine shutdown so a supervisor can restart
// it with the new settings.
package configwatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/gogine"
	"github.com/GoCodeAlone/gogine/shutdown"
)

// Name is the name the watcher registers under
const Name = "configwatch"

// Watcher errors
var (
	ErrAlreadyStarted = errors.New("config watcher already started")
	ErrEmptyPath      = errors.New("config watcher path is empty")
)

// Watcher is a subsystem that reports changes to one file
type Watcher struct {
	path   string
	logger gogine.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}

	cbMu      sync.RWMutex
	callbacks []func(string)

	changes atomic.Int64
}

// Option configures a Watcher
type Option func(*Watcher)

// WithShutdownOnChange triggers sig whenever the file changes
func WithShutdownOnChange(sig *shutdown.Signal) Option {
	return func(w *Watcher) {
		w.callbacks = append(w.callbacks, func(path string) {
			w.logger.Warn("Config file changed, requesting shutdown", "file", path)
			sig.Trigger()
		})
	}
}

// New creates a watcher for path
func New(path string, logger gogine.Logger, opts ...Option) *Watcher {
	w := &Watcher{path: path, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnChange registers a callback receiving the changed file's path. Callbacks
// run on the watcher goroutine.
func (w *Watcher) OnChange(callback func(string)) {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Changes returns how many change events were observed
func (w *Watcher) Changes() int64 {
	return w.changes.Load()
}

// Startup begins watching. The parent directory is watched so editors that
// replace the file by rename are still seen.
func (w *Watcher) Startup(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return ErrAlreadyStarted
	}
	if w.path == "" {
		return ErrEmptyPath
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.stopped = make(chan struct{})

	go w.loop(fw, w.done, w.stopped)
	w.logger.Info("Config watcher started", "file", w.path)
	return nil
}

// Shutdown stops watching and waits for the event loop to exit
func (w *Watcher) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return nil
	}

	close(w.done)
	err := w.watcher.Close()
	w.watcher = nil

	select {
	case <-w.stopped:
	case <-ctx.Done():
		return fmt.Errorf("config watcher did not stop: %w", ctx.Err())
	}

	if err != nil {
		return fmt.Errorf("close config watcher: %w", err)
	}
	w.logger.Info("Config watcher stopped")
	return nil
}

func (w *Watcher) loop(fw *fsnotify.Watcher, done, stopped chan struct{}) {
	defer close(stopped)

	target := filepath.Clean(w.path)
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.changes.Add(1)
				w.logger.Info("Config file changed", "file", event.Name, "op", event.Op.String())
				w.notify(event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)
		case <-done:
			return
		}
	}
}

func (w *Watcher) notify(path string) {
	w.cbMu.RLock()
	defer w.cbMu.RUnlock()
	for _, cb := range w.callbacks {
		cb(path)
	}
}
