package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader is implemented by Site.
type Reloader interface {
	Reload(ctx context.Context) (*Machine, error)
}

// Watcher reloads the site when the links document changes on disk. The
// containing directory is watched so editors that replace the file on save
// are picked up too.
type Watcher struct {
	path     string
	reloader Reloader
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

func NewWatcher(path string, reloader Reloader) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		reloader: reloader,
		debounce: 250 * time.Millisecond,
		watcher:  fw,
	}, nil
}

// Run blocks until ctx is done, reloading after each burst of changes.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)

		case <-fire:
			fire = nil
			m, err := w.reloader.Reload(ctx)
			if err != nil {
				slog.Warn("Failed to reload link tree configuration", "error", err)
				continue
			}
			slog.Info("Reloaded link tree configuration", slog.Uint64("generation", m.Generation()))
		}
	}
}
