package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period after the last change before
// the file is reloaded. Editors often write a file in several steps.
const DefaultDebounceInterval = 250 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	onChange func(*Config)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher returns a watcher for path. onChange receives every config
// that loads and validates; invalid edits are logged and skipped so the
// last good settings stay in effect.
func NewWatcher(path string, logger *slog.Logger, onChange func(*Config)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		logger:   logger,
		debounce: DefaultDebounceInterval,
		onChange: onChange,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file itself so that atomic renames are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching config", "path", w.path)

	defer w.stopTimer()
	name := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
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

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "path", w.path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("config reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path, "preset", cfg.Graph.Preset)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
