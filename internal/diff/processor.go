package diff

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"routewatch/internal/errors"
	"routewatch/internal/paths"
	"routewatch/internal/slogutil"
	"routewatch/internal/watcher"
)

// EmptyTree is the hash of git's empty tree. Root commits diff against it.
const EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// GitSource resolves tree deltas and blob text for git change sources.
type GitSource interface {
	// ChangedFiles returns the files that differ between two refs.
	ChangedFiles(ctx context.Context, from, to string) ([]ChangedFile, error)
	// FileAt returns the text of path at ref.
	FileAt(ctx context.Context, ref, path string) (string, error)
	// ParentOf returns the first parent of commit, or EmptyTree for a root
	// commit.
	ParentOf(ctx context.Context, commit string) (string, error)
}

// ContentCache remembers the last text seen for each path so filesystem
// changes can be diffed against it.
type ContentCache struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewContentCache creates an empty cache
func NewContentCache() *ContentCache {
	return &ContentCache{entries: make(map[string]string)}
}

// Get returns the cached text for path.
func (c *ContentCache) Get(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[path]
	return s, ok
}

// Put stores text for path.
func (c *ContentCache) Put(path, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = content
}

// Delete forgets path.
func (c *ContentCache) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len returns the number of cached paths.
func (c *ContentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Processor turns change sources into ChangeEvents for one project root.
type Processor struct {
	root   string
	git    GitSource
	cache  *ContentCache
	logger *slog.Logger

	// Filter, when set, drops paths it returns false for.
	Filter func(path string) bool
	// Tracked, when set, lists the files with recorded state. Deleting a
	// directory retires every tracked file under it.
	Tracked func() []string
	// MaxFileSize skips larger files on disk. 0 disables the limit.
	MaxFileSize int64
}

// NewProcessor creates a processor for root. git and cache may be nil; git
// sources then fail with GIT_UNAVAILABLE and filesystem diffs carry no line
// changes.
func NewProcessor(root string, git GitSource, cache *ContentCache, logger *slog.Logger) *Processor {
	return &Processor{
		root:   root,
		git:    git,
		cache:  cache,
		logger: slogutil.OrDiscard(logger),
	}
}

// Root returns the project root.
func (p *Processor) Root() string {
	return p.root
}

// Process resolves source into a ChangeEvent.
func (p *Processor) Process(ctx context.Context, source ChangeSource) (ChangeEvent, error) {
	event := ChangeEvent{Source: source, Timestamp: time.Now()}

	switch s := source.(type) {
	case FileSystemSource:
		fd, ok, err := p.readFile(s.Path)
		if err != nil {
			return event, err
		}
		if ok {
			event.Diffs = []FileDiff{fd}
		}
		return event, nil

	case GitCommitSource:
		if p.git == nil {
			return event, gitUnavailable()
		}
		parent, err := p.git.ParentOf(ctx, s.Hash)
		if err != nil {
			return event, err
		}
		files, err := p.git.ChangedFiles(ctx, parent, s.Hash)
		if err != nil {
			return event, err
		}
		if len(s.Files) > 0 {
			files = restrict(files, s.Files)
		}
		event.Diffs = p.resolveGit(ctx, files, parent, s.Hash)
		return event, nil

	case GitDiffSource:
		if p.git == nil {
			return event, gitUnavailable()
		}
		files, err := p.git.ChangedFiles(ctx, s.From, s.To)
		if err != nil {
			return event, err
		}
		event.Diffs = p.resolveGit(ctx, files, s.From, s.To)
		return event, nil

	case ManualSource:
		p.logger.Info("Manual change marker", "description", s.Description)
		return event, nil

	default:
		return event, errors.NewRouteError(errors.InternalError, fmt.Sprintf("unsupported change source %T", source), nil)
	}
}

// FromWatchEvents maps a watcher batch into one filesystem ChangeEvent.
// Files that cannot be read are logged and skipped.
func (p *Processor) FromWatchEvents(ctx context.Context, events []watcher.Event) ChangeEvent {
	event := ChangeEvent{Timestamp: time.Now()}
	seen := make(map[string]int)

	add := func(fd FileDiff) {
		if !p.keep(fd.Path) {
			return
		}
		if i, ok := seen[fd.Path]; ok {
			event.Diffs[i] = fd
			return
		}
		seen[fd.Path] = len(event.Diffs)
		event.Diffs = append(event.Diffs, fd)
	}

	for _, ev := range events {
		if ctx.Err() != nil {
			p.logger.Warn("Watch batch cancelled", "remaining", len(events))
			break
		}
		switch ev.Kind {
		case watcher.Created, watcher.Modified:
			fd, ok, err := p.readFile(ev.Path)
			if err != nil {
				p.logger.Warn("Skipping unreadable file", "path", ev.Path, "error", err.Error())
				continue
			}
			if ok {
				add(fd)
			}
		case watcher.Deleted:
			p.deletedTree(ev.Path, add)
		case watcher.Renamed:
			p.deletedTree(ev.From, add)
			fd, ok, err := p.readFile(ev.Path)
			if err != nil {
				p.logger.Warn("Skipping unreadable file", "path", ev.Path, "error", err.Error())
				continue
			}
			if ok {
				add(fd)
			}
		}
	}

	path := p.root
	var modified time.Time
	if len(events) > 0 {
		last := events[len(events)-1]
		path, modified = last.Path, last.Timestamp
	}
	event.Source = FileSystemSource{Path: path, ModifiedTime: modified}
	return event
}

// deletedTree emits a deleted diff for path and, when path was a
// directory, for every tracked file that lived under it.
func (p *Processor) deletedTree(path string, emit func(FileDiff)) {
	rel, ok := p.relative(path)
	if !ok {
		return
	}
	emit(p.deleted(rel))
	if p.Tracked == nil {
		return
	}
	dir := rel + "/"
	for _, f := range p.Tracked() {
		if strings.HasPrefix(f, dir) {
			emit(p.deleted(f))
		}
	}
}

// readFile builds the diff for a file on disk. A missing file yields a
// deleted diff. ok is false, and nothing is read, for paths the filter
// rejects, for directories and for files over MaxFileSize.
func (p *Processor) readFile(path string) (fd FileDiff, ok bool, err error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(p.root, path)
	}
	rel, inside := p.relative(abs)
	if !inside {
		return FileDiff{}, false, errors.NewRouteError(errors.FileUnreadable, fmt.Sprintf("%s is outside %s", path, p.root), nil)
	}
	if !p.keep(rel) {
		return FileDiff{}, false, nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return p.deleted(rel), true, nil
		}
		return FileDiff{}, false, errors.NewRouteError(errors.FileUnreadable, fmt.Sprintf("failed to stat %s", rel), err)
	}
	if info.IsDir() {
		return FileDiff{}, false, nil
	}
	if p.MaxFileSize > 0 && info.Size() > p.MaxFileSize {
		p.logger.Debug("Skipping large file", "path", rel, "size", info.Size(), "limit", p.MaxFileSize)
		return FileDiff{}, false, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return p.deleted(rel), true, nil
		}
		return FileDiff{}, false, errors.NewRouteError(errors.FileUnreadable, fmt.Sprintf("failed to read %s", rel), err)
	}
	if !utf8.Valid(data) {
		return FileDiff{}, false, errors.NewRouteError(errors.InvalidEncoding, fmt.Sprintf("%s is not valid UTF-8", rel), nil)
	}

	content := string(data)
	fd = FileDiff{Path: rel, NewContent: content}
	if p.cache != nil {
		if old, ok := p.cache.Get(rel); ok {
			fd.OldContent = StringPtr(old)
			fd.Changes = DiffLines(old, content)
		}
		p.cache.Put(rel, content)
	}
	return fd, true, nil
}

func (p *Processor) deleted(rel string) FileDiff {
	fd := FileDiff{Path: rel, Deleted: true}
	if p.cache != nil {
		if old, ok := p.cache.Get(rel); ok {
			fd.OldContent = StringPtr(old)
			fd.Changes = DiffLines(old, "")
		}
		p.cache.Delete(rel)
	}
	return fd
}

func (p *Processor) relative(abs string) (string, bool) {
	rel, err := paths.CanonicalizePath(abs, p.root)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// resolveGit fetches blob text for each changed file and computes its line
// diff. Blobs that cannot be fetched degrade the diff to path-only.
func (p *Processor) resolveGit(ctx context.Context, files []ChangedFile, from, to string) []FileDiff {
	var diffs []FileDiff
	for _, cf := range files {
		if cf.Deleted {
			if !p.keep(cf.OldPath) {
				continue
			}
			fd := FileDiff{Path: cf.OldPath, Deleted: true}
			if old, err := p.git.FileAt(ctx, from, cf.OldPath); err == nil {
				fd.OldContent = StringPtr(old)
				fd.Changes = DiffLines(old, "")
			}
			diffs = append(diffs, fd)
			continue
		}

		if cf.Renamed && p.keep(cf.OldPath) {
			diffs = append(diffs, FileDiff{Path: cf.OldPath, Deleted: true})
		}
		if !p.keep(cf.NewPath) {
			continue
		}

		newText, err := p.git.FileAt(ctx, to, cf.NewPath)
		if err != nil {
			p.logger.Warn("Failed to resolve blob, diff is path-only",
				"path", cf.NewPath,
				"ref", to,
				"error", err.Error(),
			)
			diffs = append(diffs, FileDiff{Path: cf.NewPath, Partial: true})
			continue
		}

		fd := FileDiff{Path: cf.NewPath, NewContent: newText}
		switch {
		case cf.IsNew:
			fd.OldContent = StringPtr("")
			fd.Changes = DiffLines("", newText)
		case cf.Renamed:
			// The old path has its own deleted diff; the new path is fresh.
			fd.OldContent = StringPtr("")
			fd.Changes = DiffLines("", newText)
		default:
			oldText, err := p.git.FileAt(ctx, from, cf.NewPath)
			if err != nil {
				p.logger.Debug("Old blob unavailable", "path", cf.NewPath, "ref", from, "error", err.Error())
				break
			}
			fd.OldContent = StringPtr(oldText)
			fd.Changes = DiffLines(oldText, newText)
		}
		diffs = append(diffs, fd)
	}
	return diffs
}

func (p *Processor) keep(path string) bool {
	return p.Filter == nil || p.Filter(path)
}

func restrict(files []ChangedFile, only []string) []ChangedFile {
	want := make(map[string]bool, len(only))
	for _, f := range only {
		want[paths.NormalizePath(f)] = true
	}
	var out []ChangedFile
	for _, cf := range files {
		if want[cf.NewPath] || want[cf.OldPath] {
			out = append(out, cf)
		}
	}
	return out
}

func gitUnavailable() error {
	return errors.NewRouteError(errors.GitUnavailable, "git change sources need a git repository", nil)
}
