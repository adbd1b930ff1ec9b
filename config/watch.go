package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher holds the most recently loaded StreamConfig and refreshes it
// whenever the backing file changes on disk.
type Watcher struct {
	path   string
	logger *logrus.Entry

	mu  sync.RWMutex
	cfg *StreamConfig

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads path once and starts watching it for changes. Callers
// that only need a one-shot load should use Load instead.
func NewWatcher(path string, logger *logrus.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	if logger == nil {
		logger = logrus.New()
	}

	w := &Watcher{
		path:    path,
		logger:  logger.WithField("component", "config.Watcher"),
		cfg:     cfg,
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// NewStaticWatcher wraps cfg in a Watcher that never reloads, so a caller
// that only sometimes has a config file on disk can use the same Watcher
// interface either way.
func NewStaticWatcher(cfg *StreamConfig) *Watcher {
	return &Watcher{cfg: cfg, done: make(chan struct{})}
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.WithError(err).Warn("config reload failed, keeping previous config")
				continue
			}
			w.mu.Lock()
			w.cfg = cfg
			w.mu.Unlock()
			w.logger.Info("config reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("config watcher error")
		}
	}
}

// Current returns the most recently loaded config. The returned value is
// a private clone: mutating it never affects the watcher's own copy, and
// a generator that captured it at session start will not see a later
// hot-reload mid-session.
func (w *Watcher) Current() *StreamConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg.Clone()
}

// Close stops watching and releases the underlying inotify/kqueue handle.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
