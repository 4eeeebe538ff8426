package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

// ConfigCallback receives every successfully reloaded configuration.
type ConfigCallback func(*MonitorConfig)

// ErrorCallback receives load and validation failures during reload.
type ErrorCallback func(error)

// Watcher reloads the configuration file when it changes on disk. Kubernetes
// ConfigMap mounts replace the file through a symlink swap, so the parent
// directory is watched rather than the file itself.
type Watcher struct {
	path          string
	callback      ConfigCallback
	errorCallback ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	mu         sync.RWMutex
	lastConfig *MonitorConfig
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the delay between the last file event and reload.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback for the watcher.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.errorCallback = callback
	}
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, callback ConfigCallback, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		callback:      callback,
		debounceDelay: 100 * time.Millisecond,
		logger:        observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches the file until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsWatcher.Close() }()

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.logger.Info("watching configuration file", observability.String("path", w.path))

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file changed",
				observability.String("path", event.Name),
				observability.String("op", event.Op.String()),
			)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.debounceDelay)
			debounceCh = debounce.C

		case <-debounceCh:
			debounceCh = nil
			_ = w.Reload()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", observability.Error(err))
			w.reportError(err)
		}
	}
}

// relevant reports whether event may have changed the watched file. Writes
// to the file and creates anywhere in the directory count, the latter
// covering ConfigMap symlink swaps.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create != 0 {
		return true
	}
	return filepath.Clean(event.Name) == w.path && event.Op&fsnotify.Write != 0
}

// Reload loads and validates the file immediately and hands the result to
// the callback.
func (w *Watcher) Reload() error {
	cfg, err := LoadConfig(w.path)
	if err == nil {
		err = ValidateConfig(cfg)
	}
	if err != nil {
		w.logger.Error("configuration reload failed", observability.Error(err))
		w.reportError(err)
		return err
	}

	w.mu.Lock()
	w.lastConfig = cfg
	w.mu.Unlock()

	w.logger.Info("configuration reloaded", observability.String("path", w.path))
	if w.callback != nil {
		w.callback(cfg)
	}
	return nil
}

// LastConfig returns the last successfully reloaded configuration.
func (w *Watcher) LastConfig() *MonitorConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastConfig
}

func (w *Watcher) reportError(err error) {
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}
