package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay groups bursts of writes into one reload
const DefaultReloadDelay = 200 * time.Millisecond

// Reloader re-reads the config file whenever it changes on disk.
// The parent directory is watched so editors that replace the file by
// rename are seen too.
type Reloader struct {
	loader   *Loader
	path     string
	delay    time.Duration
	watcher  *fsnotify.Watcher
	onReload func(*Settings)
}

// NewReloader watches the config file at path
func NewReloader(loader *Loader, path string, onReload func(*Settings)) (*Reloader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	return &Reloader{
		loader:   loader,
		path:     absPath,
		delay:    DefaultReloadDelay,
		watcher:  watcher,
		onReload: onReload,
	}, nil
}

// SetDelay changes the debounce delay, for tests
func (r *Reloader) SetDelay(d time.Duration) {
	r.delay = d
}

// Run processes file events until ctx is done. A config that fails to load
// is logged and the previous settings stay in effect.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.delay)
			} else {
				timer.Reset(r.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			r.reload()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)
		}
	}
}

func (r *Reloader) reload() {
	settings, err := r.loader.Load(r.path)
	if err != nil {
		slog.Warn("Config reload failed, keeping previous settings", "path", r.path, "error", err)
		return
	}
	slog.Info("Config reloaded", "path", r.path, "profile", settings.ProfileName, "model", settings.Model.ModelName)
	if r.onReload != nil {
		r.onReload(settings)
	}
}
