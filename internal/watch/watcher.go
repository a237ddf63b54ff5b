// Package watch signals when any of a set of color files changes, using
// fsnotify with a stat-polling fallback. Doublestar patterns can be watched
// too, so files created later that match a pattern also trigger events.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors files for changes. Parent directories are watched rather
// than the files themselves so that editors which save by rename, and files
// created after the watcher starts, are still seen.
type Watcher struct {
	// files is the set of cleaned absolute paths being monitored.
	files map[string]bool
	// patterns are absolute slash-separated doublestar patterns. Any file
	// matching one counts as watched.
	patterns []string
	// dirs lists the distinct parent directories of files and the base
	// directories of patterns.
	dirs []string
	// events delivers a signal each time a watched file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// mu guards fsw, which the watch goroutine clears on fallback.
	mu sync.Mutex
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat sweeps in polling mode.
	pollInterval time.Duration
}

// Option configures a [Watcher].
type Option func(*options)

type options struct {
	patterns []string
}

// WithPatterns adds doublestar patterns to watch. Only the pattern's base
// directory is watched natively, so new subdirectories under a "**" pattern
// are seen in polling mode only.
func WithPatterns(patterns ...string) Option {
	return func(o *options) { o.patterns = append(o.patterns, patterns...) }
}

// New creates a Watcher for files. A non-positive pollInterval defaults to
// two seconds.
func New(files []string, pollInterval time.Duration, opts ...Option) (*Watcher, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(files) == 0 && len(o.patterns) == 0 {
		return nil, errors.New("watch: no files to watch")
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	w := &Watcher{
		files:        make(map[string]bool, len(files)),
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}
	seenDir := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", f, err)
		}
		abs = filepath.Clean(abs)
		w.files[abs] = true
		if dir := filepath.Dir(abs); !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	for _, p := range o.patterns {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", p, err)
		}
		pattern := filepath.ToSlash(abs)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("watch: invalid pattern %q", p)
		}
		w.patterns = append(w.patterns, pattern)
		base, _ := doublestar.SplitPattern(pattern)
		if dir := filepath.FromSlash(base); !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			slog.Info("cannot watch directory, falling back to polling", "path", dir, "error", err)
			fsw.Close()
			w.startPolling()
			return w, nil
		}
	}

	w.fsw = fsw
	go w.watch(fsw)
	return w, nil
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when a watched file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
			w.fsw = nil
		}
	})
	return err
}

// matches reports whether path is a watched file or matches a pattern.
func (w *Watcher) matches(path string) bool {
	path = filepath.Clean(path)
	if w.files[path] {
		return true
	}
	slashed := filepath.ToSlash(path)
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
	}
	return false
}

// relevant reports whether an fsnotify event concerns a watched file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !w.matches(event.Name) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// watch loops over fsnotify events and forwards changes to watched files.
// On an fsnotify error it closes the native watcher and switches to polling.
func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.mu.Lock()
			if w.fsw != nil {
				w.fsw.Close()
				w.fsw = nil
			}
			w.mu.Unlock()
			w.startPolling()
			return
		}
	}
}

// startPolling marks the watcher as polling and launches [Watcher.poll].
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// fileState is the part of a stat result that identifies a change.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// snapshot stats every watched file and every current pattern match.
func (w *Watcher) snapshot() map[string]fileState {
	states := make(map[string]fileState, len(w.files))
	paths := make([]string, 0, len(w.files))
	for path := range w.files {
		paths = append(paths, path)
	}
	for _, p := range w.patterns {
		matches, err := doublestar.FilepathGlob(filepath.FromSlash(p), doublestar.WithFilesOnly())
		if err != nil {
			slog.Debug("glob failed while polling", "pattern", p, "error", err)
			continue
		}
		paths = append(paths, matches...)
	}
	for _, path := range paths {
		path = filepath.Clean(path)
		info, err := os.Stat(path)
		if err != nil {
			states[path] = fileState{}
			continue
		}
		states[path] = fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
	}
	return states
}

// changed reports whether two snapshots differ.
func changed(last, cur map[string]fileState) bool {
	if len(last) != len(cur) {
		return true
	}
	for path, st := range cur {
		if st != last[path] {
			return true
		}
	}
	return false
}

// poll periodically stats the watched files and notifies when any file
// appears, disappears, or changes modification time or size.
func (w *Watcher) poll() {
	last := w.snapshot()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := w.snapshot()
			if changed(last, cur) {
				w.notify()
			}
			last = cur
		}
	}
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
		// Channel already has a pending event, skip
	}
}
