// Package incremental keeps the set of discovered endpoints current as files
// change, and reports what each change added, removed or modified.
//
// A Reconciler is not safe for concurrent use. Callers serialize access per
// project root.
package incremental

import (
	"sort"

	"routewatch/internal/endpoint"
)

// ChangeType says how a matched endpoint differs between two passes.
type ChangeType string

const (
	PathChanged       ChangeType = "path_changed"
	MethodChanged     ChangeType = "method_changed"
	ParametersChanged ChangeType = "parameters_changed"
	HandlerChanged    ChangeType = "handler_changed"
	MiddlewareChanged ChangeType = "middleware_changed"
	LineChanged       ChangeType = "line_changed"
)

// String returns the change type name
func (c ChangeType) String() string {
	return string(c)
}

// EndpointChange is one modified endpoint.
type EndpointChange struct {
	File       string            `json:"file"`
	Old        endpoint.Endpoint `json:"old"`
	New        endpoint.Endpoint `json:"new"`
	ChangeType ChangeType        `json:"change_type"`
}

// EndpointChanges is the outcome of reconciling one or more files.
type EndpointChanges struct {
	Added     []endpoint.Endpoint `json:"added"`
	Modified  []EndpointChange    `json:"modified"`
	Removed   []endpoint.Endpoint `json:"removed"`
	Unchanged []endpoint.Endpoint `json:"unchanged"`
}

// Merge appends other's lists to c and restores the deterministic order.
func (c *EndpointChanges) Merge(other EndpointChanges) {
	c.Added = append(c.Added, other.Added...)
	c.Modified = append(c.Modified, other.Modified...)
	c.Removed = append(c.Removed, other.Removed...)
	c.Unchanged = append(c.Unchanged, other.Unchanged...)
	c.sort()
}

// HasChanges reports whether anything was added, removed or modified.
func (c EndpointChanges) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Modified) > 0 || len(c.Removed) > 0
}

// TotalCount counts entries across all four lists.
func (c EndpointChanges) TotalCount() int {
	return len(c.Added) + len(c.Modified) + len(c.Removed) + len(c.Unchanged)
}

func (c *EndpointChanges) sort() {
	endpoint.Sort(c.Added)
	endpoint.Sort(c.Removed)
	endpoint.Sort(c.Unchanged)
	sort.SliceStable(c.Modified, func(i, j int) bool {
		a, b := c.Modified[i].New, c.Modified[j].New
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Path < b.Path
	})
}

// classify decides the change type for two endpoints known to differ.
// The first matching rule wins.
func classify(old, new endpoint.Endpoint) ChangeType {
	switch {
	case old.Path != new.Path:
		return PathChanged
	case old.Method != new.Method:
		return MethodChanged
	case old.Handler != new.Handler:
		return HandlerChanged
	case old.Line != new.Line || old.Column != new.Column:
		return LineChanged
	default:
		return ParametersChanged
	}
}

// same reports whether two endpoints match on every compared field.
// Documentation is not compared.
func same(a, b endpoint.Endpoint) bool {
	return a.Method == b.Method &&
		a.Path == b.Path &&
		a.Handler == b.Handler &&
		a.Line == b.Line &&
		a.Column == b.Column
}
