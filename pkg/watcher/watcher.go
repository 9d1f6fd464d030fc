// Package watcher reports changed sample files in watched directories.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported
const DefaultDebounce = time.Second

// Config holds watcher configuration
type Config struct {
	DebounceDelay time.Duration                          // Delay before triggering OnChange (default: 1s)
	Match         func(path string) bool                 // Optional filter, all files when nil
	OnChange      func(ctx context.Context, path string) // Called once per burst of writes to path
}

// FileWatcher watches directories and reports debounced file changes.
// OnChange is never called concurrently for the same path.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	match    func(string) bool
	onChange func(context.Context, string)
	debounce time.Duration

	mu      sync.Mutex
	watched map[string]bool
	pending map[string]*time.Timer
	running map[string]bool // OnChange in progress
	dirty   map[string]bool // Changed again while running
	wg      sync.WaitGroup
}

// New creates a new file watcher
func New(cfg *Config) (*FileWatcher, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	debounce := cfg.DebounceDelay
	if debounce == 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		match:    cfg.Match,
		onChange: cfg.OnChange,
		debounce: debounce,
		watched:  make(map[string]bool),
		pending:  make(map[string]*time.Timer),
		running:  make(map[string]bool),
		dirty:    make(map[string]bool),
	}, nil
}

// Watch adds a directory to the watch list
func (w *FileWatcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if w.watched[abs] {
		return nil
	}
	if err := w.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	w.watched[abs] = true
	return nil
}

// Unwatch removes a directory from the watch list
func (w *FileWatcher) Unwatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !w.watched[abs] {
		return nil
	}
	if err := w.watcher.Remove(abs); err != nil {
		return fmt.Errorf("failed to unwatch %s: %w", abs, err)
	}
	delete(w.watched, abs)
	return nil
}

// Run dispatches changes until ctx is done, then waits for in-flight
// callbacks to return.
func (w *FileWatcher) Run(ctx context.Context) error {
	defer w.wg.Wait()
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.match != nil && !w.match(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

// schedule restarts the debounce timer for path. A change that arrives
// while OnChange runs for path is replayed once that call returns.
func (w *FileWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running[path] {
		w.dirty[path] = true
		return
	}

	if timer, ok := w.pending[path]; ok && timer.Stop() {
		// The stopped callback will not run; drop its wait slot
		w.wg.Done()
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.fire(ctx, path, &timer)
	})
	w.pending[path] = timer
}

// fire runs OnChange for path. timer is read under w.mu, after schedule
// has stored it.
func (w *FileWatcher) fire(ctx context.Context, path string, timer **time.Timer) {
	w.mu.Lock()
	if w.pending[path] == *timer {
		delete(w.pending, path)
	}
	if w.running[path] {
		// Timer raced with a call already in progress
		w.dirty[path] = true
		w.mu.Unlock()
		return
	}
	w.running[path] = true
	w.mu.Unlock()

	for {
		if ctx.Err() == nil && w.onChange != nil {
			slog.Debug("File changed", "path", path)
			w.onChange(ctx, path)
		}

		w.mu.Lock()
		again := w.dirty[path] && ctx.Err() == nil
		delete(w.dirty, path)
		if !again {
			delete(w.running, path)
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()
	}
}

func (w *FileWatcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

// Close releases the underlying fsnotify watcher
func (w *FileWatcher) Close() error {
	return w.watcher.Close()
}

// Watched returns the watched directories, sorted
func (w *FileWatcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.watched))
	for path := range w.watched {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
