package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk. Invalid
// edits are logged and skipped; the last good config stays in effect.
type Watcher struct {
	path     string
	onChange func(*Config)
	logger   *log.Logger
	debounce time.Duration

	ready chan struct{} // closed once the directory watch is registered

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path. A nil logger uses log.Default().
func NewWatcher(path string, onChange func(*Config), logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
		debounce: DefaultDebounce,
		ready:    make(chan struct{}),
	}
}

// Watch runs a Watcher until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config), logger *log.Logger) error {
	return NewWatcher(path, onChange, logger).Run(ctx)
}

// Run blocks until ctx is done. The parent directory is watched rather than
// the file, so saves that replace the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Debug("watching config", "path", w.path)
	close(w.ready)

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "err", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous", "path", w.path, "err", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path, "scenes", len(cfg.Scenes))
	w.onChange(cfg)
}
