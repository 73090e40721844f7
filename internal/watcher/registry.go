package watcher

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"routewatch/internal/slogutil"
)

// Handle identifies one active watch. It is returned by Registry.Start and
// consumed by Registry.Stop.
type Handle string

// WatchInfo describes a running watch.
type WatchInfo struct {
	Handle Handle `json:"handle"`
	Root   string `json:"root"`
}

// Registry owns the set of active watches.
type Registry struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	watchers map[Handle]*Watcher
}

// NewRegistry creates an empty registry whose watches share config.
func NewRegistry(config Config, logger *slog.Logger) *Registry {
	return &Registry{
		config:   config,
		logger:   slogutil.OrDiscard(logger),
		watchers: make(map[Handle]*Watcher),
	}
}

// Start begins watching root and returns its handle and event channel.
func (r *Registry) Start(root string) (Handle, <-chan []Event, error) {
	w, err := New(root, r.config, r.logger)
	if err != nil {
		return "", nil, err
	}
	h := Handle(uuid.New().String())

	r.mu.Lock()
	r.watchers[h] = w
	r.mu.Unlock()

	w.Start()
	return h, w.Events(), nil
}

// Stop stops the watch identified by h. Stopping an unknown handle is an
// error.
func (r *Registry) Stop(h Handle) error {
	r.mu.Lock()
	w, ok := r.watchers[h]
	delete(r.watchers, h)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown watch handle %q", h)
	}
	return w.Stop()
}

// StopAll stops every active watch.
func (r *Registry) StopAll() {
	r.mu.Lock()
	watchers := r.watchers
	r.watchers = make(map[Handle]*Watcher)
	r.mu.Unlock()

	for h, w := range watchers {
		if err := w.Stop(); err != nil {
			r.logger.Warn("Failed to stop watcher", "handle", string(h), "error", err.Error())
		}
	}
}

// Active lists running watches sorted by root.
func (r *Registry) Active() []WatchInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]WatchInfo, 0, len(r.watchers))
	for h, w := range r.watchers {
		active = append(active, WatchInfo{Handle: h, Root: w.Root()})
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Root != active[j].Root {
			return active[i].Root < active[j].Root
		}
		return active[i].Handle < active[j].Handle
	})
	return active
}
