package breaking

import "routewatch/internal/endpoint"

// ChangeKind represents the type of route change
type ChangeKind string

const (
	ChangeRemoved           ChangeKind = "removed"            // Route was deleted
	ChangePathChanged       ChangeKind = "path_changed"       // URL changed in place
	ChangeMethodChanged     ChangeKind = "method_changed"     // HTTP verb changed in place
	ChangeHandlerChanged    ChangeKind = "handler_changed"    // Same route, different handler
	ChangeParametersChanged ChangeKind = "parameters_changed" // Same route, other details differ
	ChangeMiddlewareChanged ChangeKind = "middleware_changed" // Same route, middleware differs
	ChangeMoved             ChangeKind = "moved"              // Same route at a new position
	ChangeAdded             ChangeKind = "added"              // New route (non-breaking)
)

// Severity indicates how breaking a change is
type Severity string

const (
	SeverityBreaking    Severity = "breaking"     // Existing clients will fail
	SeverityWarning     Severity = "warning"      // Behavior may differ for clients
	SeverityNonBreaking Severity = "non_breaking" // Safe change
)

// RouteChange is one classified change
type RouteChange struct {
	Kind        ChangeKind          `json:"kind"`
	Severity    Severity            `json:"severity"`
	Method      endpoint.HTTPMethod `json:"method"`
	Path        string              `json:"path"`
	File        string              `json:"file,omitempty"`
	Line        int                 `json:"line"`
	Description string              `json:"description"`
	OldValue    string              `json:"oldValue,omitempty"`
	NewValue    string              `json:"newValue,omitempty"`
	Suggestion  string              `json:"suggestion,omitempty"`
}

// Report is the outcome of analyzing one reconciliation result
type Report struct {
	Changes      []RouteChange `json:"changes"`
	Summary      *Summary      `json:"summary"`
	SemverAdvice string        `json:"semverAdvice,omitempty"` // "major", "minor", "patch"
}

// Summary provides an overview of the changes
type Summary struct {
	TotalChanges    int            `json:"totalChanges"`
	BreakingChanges int            `json:"breakingChanges"`
	Warnings        int            `json:"warnings"`
	NonBreaking     int            `json:"nonBreaking"`
	Additions       int            `json:"additions"`
	ByKind          map[string]int `json:"byKind"`
}

// HasBreakingChanges returns true if there are any breaking changes
func (r *Report) HasBreakingChanges() bool {
	return r != nil && r.Summary != nil && r.Summary.BreakingChanges > 0
}
