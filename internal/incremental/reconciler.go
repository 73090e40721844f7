package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"routewatch/internal/diff"
	"routewatch/internal/endpoint"
	"routewatch/internal/extract"
	"routewatch/internal/slogutil"
)

// Reconciler owns an endpoint State and updates it from change events.
type Reconciler struct {
	registry *extract.Registry
	state    *State
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a reconciler with empty state.
func New(registry *extract.Registry, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		registry: registry,
		state:    NewState(),
		logger:   slogutil.OrDiscard(logger),
		now:      time.Now,
	}
}

// WithState replaces the reconciler's state with a copy of s and returns r.
func (r *Reconciler) WithState(s *State) *Reconciler {
	if s == nil {
		r.state = NewState()
		return r
	}
	r.state = s.Clone()
	r.state.normalize()
	return r
}

// Snapshot returns a copy of the current state for persistence.
func (r *Reconciler) Snapshot() *State {
	return r.state.Clone()
}

// LastUpdated returns when state last changed.
func (r *Reconciler) LastUpdated() time.Time {
	return r.state.LastUpdated
}

// ParseChanges reconciles every diff of event and returns the merged
// result. A file that fails is logged and contributes nothing.
func (r *Reconciler) ParseChanges(event diff.ChangeEvent) EndpointChanges {
	var total EndpointChanges
	for _, fd := range event.Diffs {
		total.Merge(r.parseFileDiff(fd))
	}
	total.sort()
	r.state.LastUpdated = r.now()
	return total
}

func (r *Reconciler) parseFileDiff(fd diff.FileDiff) (changes EndpointChanges) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Reconciling file failed",
				"path", fd.Path,
				"panic", fmt.Sprint(p),
			)
			changes = EndpointChanges{}
		}
	}()

	if fd.Partial {
		r.logger.Debug("Skipping path-only diff", "path", fd.Path)
		return EndpointChanges{}
	}
	if _, _, ok := r.registry.ForPath(fd.Path); !ok {
		return EndpointChanges{}
	}

	old := r.EndpointsForFile(fd.Path)

	if fd.Deleted {
		r.forget(fd.Path)
		changes.Removed = old
		changes.sort()
		r.logger.Debug("File removed", "path", fd.Path, "endpoints", len(old))
		return changes
	}

	fresh := r.registry.ExtractFile(fd.Path, []byte(fd.NewContent))
	r.state.FileHashes[fd.Path] = hashContent(fd.NewContent)

	changes = compare(fd.Path, old, fresh)
	r.replace(fd.Path, changes)

	r.logger.Debug("Reconciled file",
		"path", fd.Path,
		"added", len(changes.Added),
		"removed", len(changes.Removed),
		"modified", len(changes.Modified),
		"unchanged", len(changes.Unchanged),
	)
	return changes
}

// compare classifies old and fresh endpoints of one file. Within each set
// the first endpoint with a given identity wins.
func compare(file string, old, fresh []endpoint.Endpoint) EndpointChanges {
	oldByID := indexByIdentity(old)
	newByID := indexByIdentity(fresh)

	var changes EndpointChanges
	var added, removed []endpoint.Endpoint

	for _, id := range identityOrder(fresh) {
		n := newByID[id]
		o, ok := oldByID[id]
		switch {
		case !ok:
			added = append(added, n)
		case same(o, n):
			changes.Unchanged = append(changes.Unchanged, n)
		default:
			changes.Modified = append(changes.Modified, EndpointChange{
				File: file, Old: o, New: n, ChangeType: classify(o, n),
			})
		}
	}
	for _, id := range identityOrder(old) {
		if _, ok := newByID[id]; !ok {
			removed = append(removed, oldByID[id])
		}
	}

	changes.Added, changes.Removed, changes.Modified = pairSameLine(file, routesOf(old), routesOf(fresh), added, removed, changes.Modified)
	changes.sort()
	return changes
}

// route is the method and path of an endpoint, ignoring where it lives.
type route struct {
	method endpoint.HTTPMethod
	path   string
}

func routesOf(eps []endpoint.Endpoint) map[route]bool {
	m := make(map[route]bool, len(eps))
	for _, e := range eps {
		m[route{e.Method, e.Path}] = true
	}
	return m
}

// pairSameLine treats a line that lost exactly one endpoint and gained
// exactly one as a modification of that endpoint, provided the edit was in
// place: the old route is gone from the file and the new route did not
// exist before. Otherwise the pair is a line shift and stays delete+add.
func pairSameLine(file string, oldRoutes, newRoutes map[route]bool, added, removed []endpoint.Endpoint, modified []EndpointChange) ([]endpoint.Endpoint, []endpoint.Endpoint, []EndpointChange) {
	addedOn := make(map[int][]int)
	for i, e := range added {
		addedOn[e.Line] = append(addedOn[e.Line], i)
	}
	removedOn := make(map[int][]int)
	for i, e := range removed {
		removedOn[e.Line] = append(removedOn[e.Line], i)
	}

	pairedAdd := make(map[int]bool)
	pairedRemove := make(map[int]bool)
	for line, ri := range removedOn {
		ai := addedOn[line]
		if len(ri) != 1 || len(ai) != 1 {
			continue
		}
		o, n := removed[ri[0]], added[ai[0]]
		if newRoutes[route{o.Method, o.Path}] || oldRoutes[route{n.Method, n.Path}] {
			continue
		}
		modified = append(modified, EndpointChange{
			File: file, Old: o, New: n, ChangeType: classify(o, n),
		})
		pairedAdd[ai[0]] = true
		pairedRemove[ri[0]] = true
	}

	var keptAdded, keptRemoved []endpoint.Endpoint
	for i, e := range added {
		if !pairedAdd[i] {
			keptAdded = append(keptAdded, e)
		}
	}
	for i, e := range removed {
		if !pairedRemove[i] {
			keptRemoved = append(keptRemoved, e)
		}
	}
	return keptAdded, keptRemoved, modified
}

func indexByIdentity(eps []endpoint.Endpoint) map[endpoint.Identity]endpoint.Endpoint {
	m := make(map[endpoint.Identity]endpoint.Endpoint, len(eps))
	for _, e := range eps {
		id := e.Identity()
		if _, dup := m[id]; !dup {
			m[id] = e
		}
	}
	return m
}

// identityOrder lists distinct identities in first-seen order.
func identityOrder(eps []endpoint.Endpoint) []endpoint.Identity {
	seen := make(map[endpoint.Identity]bool, len(eps))
	order := make([]endpoint.Identity, 0, len(eps))
	for _, e := range eps {
		id := e.Identity()
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	return order
}

// replace swaps file's recorded endpoints for the post-change set.
func (r *Reconciler) replace(file string, changes EndpointChanges) {
	for _, k := range r.state.Files[file] {
		delete(r.state.Endpoints, k)
	}

	current := make([]endpoint.Endpoint, 0, len(changes.Added)+len(changes.Modified)+len(changes.Unchanged))
	current = append(current, changes.Added...)
	for _, m := range changes.Modified {
		current = append(current, m.New)
	}
	current = append(current, changes.Unchanged...)
	endpoint.Sort(current)

	keys := make([]string, 0, len(current))
	for _, e := range current {
		k := StateKey(file, e.Identity())
		if _, dup := r.state.Endpoints[k]; dup {
			continue
		}
		r.state.Endpoints[k] = e
		keys = append(keys, k)
	}
	r.state.Files[file] = keys
}

func (r *Reconciler) forget(file string) {
	for _, k := range r.state.Files[file] {
		delete(r.state.Endpoints, k)
	}
	delete(r.state.Files, file)
	delete(r.state.FileHashes, file)
}

// ExtractRegions extracts endpoints from the changed regions of path and
// rebases them onto file line numbers. Regions without changes are skipped.
func (r *Reconciler) ExtractRegions(regions []diff.CodeRegion, path string) []endpoint.Endpoint {
	_, lang, ok := r.registry.ForPath(path)
	if !ok {
		return nil
	}

	var all []endpoint.Endpoint
	for _, region := range regions {
		if !region.HasChanges {
			continue
		}
		offset := region.StartLine - 1
		if offset < 0 {
			offset = 0
		}
		for _, e := range r.registry.ExtractFile(path, []byte(region.Content)) {
			e.Line += offset
			if lang != extract.LangPython && lang != extract.LangPHP {
				e.Handler = rebaseMarker(e.Handler, offset)
			}
			all = append(all, e)
		}
	}
	return all
}

// rebaseMarker shifts a "line:col" handler marker by offset lines. Other
// handler text is returned unchanged.
func rebaseMarker(handler string, offset int) string {
	line, col, ok := strings.Cut(handler, ":")
	if !ok {
		return handler
	}
	l, err := strconv.Atoi(line)
	if err != nil {
		return handler
	}
	if _, err := strconv.Atoi(col); err != nil {
		return handler
	}
	return strconv.Itoa(l+offset) + ":" + col
}

// AllEndpoints returns every known endpoint, sorted.
func (r *Reconciler) AllEndpoints() []endpoint.Endpoint {
	eps := make([]endpoint.Endpoint, 0, len(r.state.Endpoints))
	for _, e := range r.state.Endpoints {
		eps = append(eps, e)
	}
	endpoint.Sort(eps)
	return eps
}

// EndpointsForFile returns the endpoints recorded for path, sorted.
func (r *Reconciler) EndpointsForFile(path string) []endpoint.Endpoint {
	keys := r.state.Files[path]
	eps := make([]endpoint.Endpoint, 0, len(keys))
	for _, k := range keys {
		if e, ok := r.state.Endpoints[k]; ok {
			eps = append(eps, e)
		}
	}
	endpoint.Sort(eps)
	return eps
}

// FileHash returns the content hash recorded for path.
func (r *Reconciler) FileHash(path string) (string, bool) {
	h, ok := r.state.FileHashes[path]
	return h, ok
}

// Unchanged reports whether content hashes to the value recorded for path.
func (r *Reconciler) Unchanged(path, content string) bool {
	h, ok := r.state.FileHashes[path]
	return ok && h == hashContent(content)
}

// TrackedFiles lists the files with recorded state.
func (r *Reconciler) TrackedFiles() []string {
	return r.state.TrackedFiles()
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
