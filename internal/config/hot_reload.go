package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher watches the configuration file for changes and atomically
// swaps in a revalidated Config. It watches the containing directory
// rather than the file itself, since editors often replace-and-rename
// rather than write in place.
type Watcher struct {
	watcher    *fsnotify.Watcher
	loader     *Loader
	configPath string
	logger     *logrus.Logger

	current  atomic.Pointer[Config]
	onChange func(*Config)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher creates a Watcher holding initial as the current config.
func NewWatcher(configPath string, loader *Loader, initial *Config, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:    fsw,
		loader:     loader,
		configPath: configPath,
		logger:     logrus.New(),
		onChange:   onChange,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	w.current.Store(initial)
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Start begins watching the configuration file's directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("config watcher already running")
	}

	dir := filepath.Dir(w.configPath)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("config directory does not exist: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	w.running = true
	go w.loop()
	return nil
}

// Stop halts watching; safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stop)
	<-w.done
	w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load(w.configPath)
	if err != nil {
		w.logger.WithError(err).Warn("config reload failed, keeping previous configuration")
		return
	}
	w.current.Store(cfg)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
