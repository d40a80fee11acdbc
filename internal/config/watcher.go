package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the settings file when it changes on disk and hands
// the result to a callback. This is the live-settings path: moving the
// opacity slider takes effect without restarting the daemon.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(Config)
	log      *zap.Logger

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for the settings file at path. onChange
// receives each successfully loaded configuration.
func NewWatcher(path string, log *zap.Logger, onChange func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		watcher:  fsw,
		path:     path,
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Watching the parent directory rather than the
// file itself survives editors that replace the file on save.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				cfg, err := Load(w.path)
				if err != nil {
					w.log.Warn("settings reload failed, keeping previous settings",
						zap.String("file", w.path), zap.Error(err))
					continue
				}
				w.log.Info("settings reloaded", zap.String("file", w.path))
				w.onChange(cfg)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("settings watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)
	return w.watcher.Close()
}
