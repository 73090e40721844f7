// Package watcher watches project roots for source file changes and
// delivers debounced batches of events.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"routewatch/internal/slogutil"
)

// EventKind represents the type of file system event
type EventKind int

const (
	Created EventKind = iota
	Modified
	Deleted
	Renamed
)

// String returns a string representation of the event kind
func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one file change under a watched root. Paths are absolute. For
// Renamed, Path is the destination and From the source.
type Event struct {
	Kind      EventKind
	Path      string
	From      string
	Timestamp time.Time
}

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	QueueSize      int      `json:"queueSize" mapstructure:"queueSize"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 300,
		QueueSize:  100,
		IgnorePatterns: []string{
			"*.log",
			"*.tmp",
			"*.swp",
			"*~",
			".git/**",
			".routewatch/**",
			"node_modules/**",
			"vendor/**",
			"__pycache__/**",
		},
	}
}

// Watcher watches one root directory recursively.
type Watcher struct {
	root      string
	config    Config
	logger    *slog.Logger
	fsw       *fsnotify.Watcher
	debouncer *BatchDebouncer
	out       chan []Event

	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	stopOnce sync.Once
}

// New creates a watcher for root and registers every non-ignored directory
// beneath it. Call Start to begin delivering events.
func New(root string, config Config, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", abs)
	}

	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.DebounceMs < 0 {
		config.DebounceMs = 0
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:   abs,
		config: config,
		logger: slogutil.OrDiscard(logger),
		fsw:    fsw,
		out:    make(chan []Event, config.QueueSize),
		done:   make(chan struct{}),
	}
	w.debouncer = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.deliver)

	if err := w.addRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Events returns the channel batches are delivered on. It is closed by Stop.
func (w *Watcher) Events() <-chan []Event {
	return w.out
}

// Start begins watching
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()

	w.logger.Info("Watching root",
		"root", w.root,
		"debounceMs", w.config.DebounceMs,
		"queueSize", w.config.QueueSize,
	)
}

// Stop stops watching and closes the events channel. Pending events that
// have not been flushed are discarded.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
		w.debouncer.Cancel()

		w.mu.Lock()
		w.closed = true
		close(w.out)
		w.mu.Unlock()

		w.logger.Info("Stopped watching root", "root", w.root)
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "root", w.root, "error", err.Error())
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.IsIgnored(ev.Name) {
		return
	}
	now := time.Now()

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", ev.Name, "error", err.Error())
			}
			w.emitExisting(ev.Name, now)
			return
		}
		w.debouncer.Add(Event{Kind: Created, Path: ev.Name, Timestamp: now})
	case ev.Has(fsnotify.Write):
		w.debouncer.Add(Event{Kind: Modified, Path: ev.Name, Timestamp: now})
	case ev.Has(fsnotify.Remove):
		w.debouncer.Add(Event{Kind: Deleted, Path: ev.Name, Timestamp: now})
	case ev.Has(fsnotify.Rename):
		// The destination arrives as a separate Create; Coalesce pairs them.
		w.debouncer.Add(Event{Kind: Renamed, Path: ev.Name, Timestamp: now})
	}
}

// emitExisting reports files that already exist in a directory created
// while watching, since they may have been written before it was added.
func (w *Watcher) emitExisting(dir string, now time.Time) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && w.IsIgnored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.IsIgnored(path) {
			w.debouncer.Add(Event{Kind: Created, Path: path, Timestamp: now})
		}
		return nil
	})
}

// deliver hands a batch to the consumer without blocking. A full queue
// drops the batch.
func (w *Watcher) deliver(batch []Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	select {
	case w.out <- batch:
	default:
		w.logger.Warn("Watch queue full, dropping batch",
			"root", w.root,
			"events", len(batch),
		)
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.IsIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// IsIgnored checks if a path matches ignore patterns. Patterns are matched
// against the base name and against the path relative to the root; a
// "dir/**" pattern matches everything under dir.
func (w *Watcher) IsIgnored(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(w.root, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return true
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return false
	}
	base := filepath.Base(path)

	for _, pattern := range w.config.IgnorePatterns {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}
