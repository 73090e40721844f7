// Package breaking grades endpoint changes by their impact on API clients.
package breaking

import (
	"fmt"
	"sort"

	"routewatch/internal/endpoint"
	"routewatch/internal/incremental"
)

// Analyze classifies every added, removed and modified endpoint in changes.
// Unchanged endpoints are ignored.
func Analyze(changes incremental.EndpointChanges) *Report {
	var out []RouteChange

	for _, e := range changes.Removed {
		out = append(out, RouteChange{
			Kind:        ChangeRemoved,
			Severity:    SeverityBreaking,
			Method:      e.Method,
			Path:        e.Path,
			Line:        e.Line,
			Description: fmt.Sprintf("%s %s was removed", e.Method, e.Path),
			OldValue:    routeString(e),
			Suggestion:  "Keep the old route as a deprecated alias until clients migrate",
		})
	}

	for _, m := range changes.Modified {
		out = append(out, modifiedChange(m))
	}

	for _, e := range changes.Added {
		out = append(out, RouteChange{
			Kind:        ChangeAdded,
			Severity:    SeverityNonBreaking,
			Method:      e.Method,
			Path:        e.Path,
			Line:        e.Line,
			Description: fmt.Sprintf("%s %s was added", e.Method, e.Path),
			NewValue:    routeString(e),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return severityOrder(out[i].Severity) < severityOrder(out[j].Severity)
		}
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})

	report := &Report{Changes: out, Summary: computeSummary(out)}
	report.SemverAdvice = computeSemverAdvice(report.Summary)
	return report
}

func modifiedChange(m incremental.EndpointChange) RouteChange {
	rc := RouteChange{
		Method:   m.New.Method,
		Path:     m.New.Path,
		File:     m.File,
		Line:     m.New.Line,
		OldValue: routeString(m.Old),
		NewValue: routeString(m.New),
	}

	switch m.ChangeType {
	case incremental.PathChanged:
		rc.Kind, rc.Severity = ChangePathChanged, SeverityBreaking
		rc.Description = fmt.Sprintf("%s %s now serves %s", m.Old.Method, m.Old.Path, m.New.Path)
		rc.Suggestion = "Redirect the old path or keep both during a deprecation window"
	case incremental.MethodChanged:
		rc.Kind, rc.Severity = ChangeMethodChanged, SeverityBreaking
		rc.Description = fmt.Sprintf("%s changed method from %s to %s", m.New.Path, m.Old.Method, m.New.Method)
		rc.Suggestion = "Accept both methods until clients migrate"
	case incremental.HandlerChanged:
		rc.Kind, rc.Severity = ChangeHandlerChanged, SeverityWarning
		rc.Description = fmt.Sprintf("%s %s is handled by %s instead of %s", m.New.Method, m.New.Path, m.New.Handler, m.Old.Handler)
		rc.OldValue, rc.NewValue = m.Old.Handler, m.New.Handler
	case incremental.MiddlewareChanged:
		rc.Kind, rc.Severity = ChangeMiddlewareChanged, SeverityWarning
		rc.Description = fmt.Sprintf("%s %s changed middleware", m.New.Method, m.New.Path)
	case incremental.LineChanged:
		rc.Kind, rc.Severity = ChangeMoved, SeverityNonBreaking
		rc.Description = fmt.Sprintf("%s %s moved to %d:%d", m.New.Method, m.New.Path, m.New.Line, m.New.Column)
	default:
		rc.Kind, rc.Severity = ChangeParametersChanged, SeverityWarning
		rc.Description = fmt.Sprintf("%s %s changed", m.New.Method, m.New.Path)
	}
	return rc
}

func routeString(e endpoint.Endpoint) string {
	return fmt.Sprintf("%s %s", e.Method, e.Path)
}

func severityOrder(s Severity) int {
	switch s {
	case SeverityBreaking:
		return 0
	case SeverityWarning:
		return 1
	case SeverityNonBreaking:
		return 2
	default:
		return 3
	}
}

// computeSummary calculates summary statistics
func computeSummary(changes []RouteChange) *Summary {
	summary := &Summary{
		TotalChanges: len(changes),
		ByKind:       make(map[string]int),
	}

	for _, change := range changes {
		summary.ByKind[string(change.Kind)]++
		if change.Kind == ChangeAdded {
			summary.Additions++
		}

		switch change.Severity {
		case SeverityBreaking:
			summary.BreakingChanges++
		case SeverityWarning:
			summary.Warnings++
		case SeverityNonBreaking:
			summary.NonBreaking++
		}
	}
	return summary
}

// computeSemverAdvice suggests the appropriate version bump
func computeSemverAdvice(summary *Summary) string {
	if summary.BreakingChanges > 0 {
		return "major"
	}
	if summary.Additions > 0 {
		return "minor"
	}
	return "patch"
}
