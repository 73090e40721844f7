// Package daemon ties discovery, change processing, reconciliation and
// persistence together for one project root.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"routewatch/internal/backends/git"
	"routewatch/internal/breaking"
	"routewatch/internal/config"
	"routewatch/internal/diff"
	"routewatch/internal/endpoint"
	"routewatch/internal/errors"
	"routewatch/internal/extract"
	"routewatch/internal/incremental"
	"routewatch/internal/paths"
	"routewatch/internal/slogutil"
	"routewatch/internal/storage"
	"routewatch/internal/watcher"
)

const (
	BackendSQLite   = "sqlite"
	BackendSnapshot = "snapshot"
)

// Session tracks the endpoints of one project root
type Session struct {
	root   string
	config *config.Config
	logger *slog.Logger

	registry   *extract.Registry
	scanner    *extract.Scanner
	processor  *diff.Processor
	reconciler *incremental.Reconciler
	git        *git.GitAdapter

	store        *storage.DB // nil for the snapshot backend
	snapshotPath string

	mu sync.Mutex
}

// Result is the outcome of applying one change event
type Result struct {
	Source   string                      `json:"source"`
	Files    int                         `json:"files"`
	Changes  incremental.EndpointChanges `json:"changes"`
	Report   *breaking.Report            `json:"report"`
	Touched  []endpoint.Endpoint         `json:"touched,omitempty"` // endpoints inside changed regions
	Duration time.Duration               `json:"duration"`
}

// Open prepares a session for root and loads persisted state. A nil cfg
// uses defaults.
func Open(root string, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	logger = slogutil.OrDiscard(logger)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.NewRouteError(errors.FileUnreadable, "project root is not accessible", err)
	}
	if !info.IsDir() {
		return nil, errors.NewRouteError(errors.FileUnreadable, abs+" is not a directory", nil)
	}

	registry, err := extract.NewRegistry()
	if err != nil {
		return nil, err
	}

	s := &Session{
		root:       abs,
		config:     cfg,
		logger:     logger,
		registry:   registry,
		reconciler: incremental.New(registry, logger),
		scanner: extract.NewScanner(registry, extract.ScanOptions{
			Workers:     cfg.Extract.Workers,
			Excludes:    cfg.Extract.Excludes,
			MaxFileSize: cfg.Extract.MaxFileSizeBytes,
		}, logger),
	}

	var source diff.GitSource
	if cfg.Git.Enabled {
		timeout := time.Duration(cfg.Git.TimeoutMs) * time.Millisecond
		adapter, err := git.NewGitAdapter(abs, timeout, logger)
		if err != nil {
			logger.Debug("Git collaborator disabled", "root", abs, "error", err.Error())
		} else {
			s.git = adapter
			source = adapter
		}
	}

	s.processor = diff.NewProcessor(abs, source, diff.NewContentCache(), logger)
	s.processor.Filter = s.tracks
	s.processor.Tracked = s.trackedFiles
	s.processor.MaxFileSize = cfg.Extract.MaxFileSizeBytes

	if err := s.openStore(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) openStore() error {
	switch s.config.Storage.Backend {
	case BackendSnapshot:
		s.snapshotPath = s.config.Storage.Path
		if s.snapshotPath == "" {
			s.snapshotPath = paths.SnapshotPath(s.root)
		}
		state, err := storage.LoadSnapshot(s.snapshotPath)
		if err != nil {
			return err
		}
		if state != nil {
			s.reconciler.WithState(state)
		}
		return nil

	case BackendSQLite, "":
		dir := s.config.Storage.Path
		if dir == "" {
			dir = paths.DataDir(s.root)
		}
		db, err := storage.Open(dir, s.logger)
		if err != nil {
			return err
		}
		state, err := db.LoadState()
		if err != nil {
			_ = db.Close()
			return err
		}
		if state != nil {
			s.reconciler.WithState(state)
		}
		s.store = db
		return nil

	default:
		return fmt.Errorf("unknown storage backend %q", s.config.Storage.Backend)
	}
}

// tracks reports whether a relative path is a supported, non-excluded file
func (s *Session) tracks(rel string) bool {
	if _, ok := extract.LanguageFromPath(rel); !ok {
		return false
	}
	return !s.scanner.Excluded(rel)
}

func (s *Session) trackedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.TrackedFiles()
}

// Root returns the resolved project root
func (s *Session) Root() string {
	return s.root
}

// Git returns the git collaborator, or nil when git is unavailable
func (s *Session) Git() *git.GitAdapter {
	return s.git
}

// Reconciler exposes the session's reconciler for read access
func (s *Session) Reconciler() *incremental.Reconciler {
	return s.reconciler
}

// Snapshot returns a copy of the current endpoint state
func (s *Session) Snapshot() *incremental.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Snapshot()
}

// Bootstrap reads every supported file under the root, plus files known from
// persisted state, and reconciles them as one filesystem event. Files whose
// content hash matches the stored hash are reported as unchanged without
// re-extraction.
func (s *Session) Bootstrap(ctx context.Context) (*Result, error) {
	files, err := s.scanner.Files(ctx, s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	s.mu.Lock()
	tracked := s.reconciler.TrackedFiles()
	s.mu.Unlock()

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f] = true
	}
	for _, f := range tracked {
		if !seen[f] {
			files = append(files, f)
		}
	}

	diffs := make([]*diff.FileDiff, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.Extract.Workers))
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := s.processor.Process(gctx, diff.FileSystemSource{Path: rel})
			if err != nil {
				s.logger.Warn("Skipping file", "path", rel, "error", err.Error())
				return nil
			}
			if len(ev.Diffs) > 0 {
				diffs[i] = &ev.Diffs[0]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	event := diff.ChangeEvent{
		Source:    diff.ManualSource{Description: "bootstrap " + s.root},
		Timestamp: time.Now(),
	}
	for _, fd := range diffs {
		if fd != nil {
			event.Diffs = append(event.Diffs, *fd)
		}
	}
	return s.applyEvent(event), nil
}

// Apply resolves source and reconciles the resulting event
func (s *Session) Apply(ctx context.Context, source diff.ChangeSource) (*Result, error) {
	event, err := s.processor.Process(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.applyEvent(event), nil
}

// ApplyWatchEvents reconciles one watcher batch
func (s *Session) ApplyWatchEvents(ctx context.Context, events []watcher.Event) *Result {
	return s.applyEvent(s.processor.FromWatchEvents(ctx, events))
}

func (s *Session) applyEvent(event diff.ChangeEvent) *Result {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped incremental.EndpointChanges
	skippedFiles := 0
	var touched []endpoint.Endpoint
	kept := event.Diffs[:0:0]
	for _, fd := range event.Diffs {
		if !fd.Deleted && !fd.Partial && s.reconciler.Unchanged(fd.Path, fd.NewContent) {
			skipped.Unchanged = append(skipped.Unchanged, s.reconciler.EndpointsForFile(fd.Path)...)
			skippedFiles++
			continue
		}
		if !fd.Deleted && len(fd.Changes) > 0 {
			regions := diff.ExtractRegions(fd, s.config.Extract.ContextLines)
			touched = append(touched, s.reconciler.ExtractRegions(regions, fd.Path)...)
		}
		kept = append(kept, fd)
	}
	event.Diffs = kept

	changes := s.reconciler.ParseChanges(event)
	changes.Merge(skipped)
	endpoint.Sort(touched)

	result := &Result{
		Files:    len(kept) + skippedFiles,
		Changes:  changes,
		Report:   breaking.Analyze(changes),
		Touched:  touched,
		Duration: time.Since(start),
	}
	if event.Source != nil {
		result.Source = event.Source.String()
	}

	s.logger.Info("Applied change event",
		"source", result.Source,
		"files", result.Files,
		"added", len(changes.Added),
		"removed", len(changes.Removed),
		"modified", len(changes.Modified),
		"unchanged", len(changes.Unchanged),
		"breaking", result.Report.Summary.BreakingChanges,
	)

	if s.store != nil {
		rec := storage.RunRecord{
			Source:     result.Source,
			Files:      result.Files,
			Added:      len(changes.Added),
			Removed:    len(changes.Removed),
			Modified:   len(changes.Modified),
			Unchanged:  len(changes.Unchanged),
			Breaking:   result.Report.Summary.BreakingChanges,
			DurationMs: result.Duration.Milliseconds(),
		}
		if err := s.store.RecordRun(rec); err != nil {
			s.logger.Warn("Failed to record run", "error", err.Error())
		}
	}
	return result
}

// Persist writes the current state to the configured backend
func (s *Session) Persist() error {
	snap := s.Snapshot()
	if s.store != nil {
		return s.store.SaveState(snap)
	}
	return storage.SaveSnapshot(s.snapshotPath, snap)
}

// History returns the most recent applied runs, newest first
func (s *Session) History(limit int) ([]storage.RunRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("run history requires the %s backend", BackendSQLite)
	}
	return s.store.RecentRuns(limit)
}

// Run watches the root and applies every batch until ctx is done. onChange
// is called for batches that changed at least one endpoint; state is
// persisted after each of them and again on exit.
func (s *Session) Run(ctx context.Context, registry *watcher.Registry, onChange func(*Result)) error {
	handle, events, err := registry.Start(s.root)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Stop(handle); err != nil {
			s.logger.Debug("Watcher already stopped", "error", err.Error())
		}
	}()

	s.logger.Info("Watching for changes", "root", s.root)
	for {
		select {
		case <-ctx.Done():
			return s.Persist()
		case batch, ok := <-events:
			if !ok {
				return s.Persist()
			}
			result := s.ApplyWatchEvents(ctx, batch)
			if !result.Changes.HasChanges() {
				continue
			}
			if err := s.Persist(); err != nil {
				s.logger.Error("Failed to persist state", "error", err.Error())
			}
			if onChange != nil {
				onChange(result)
			}
		}
	}
}

// Close releases the session's store
func (s *Session) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
