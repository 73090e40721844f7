package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"routewatch/internal/endpoint"
	"routewatch/internal/extract"
	"routewatch/internal/incremental"
	"routewatch/internal/version"
)

// FromState builds a manifest from a reconciler snapshot. Entries are
// ordered by file, then line, then column.
func FromState(s *incremental.State) *Manifest {
	m := &Manifest{
		Version:    version.Version,
		Endpoints:  make([]EndpointEntry, 0),
		Statistics: Statistics{ByMethod: make(map[string]int)},
	}
	if s == nil {
		return m
	}
	if !s.LastUpdated.IsZero() {
		m.LastUpdated = s.LastUpdated.UTC().Format(time.RFC3339)
	}

	var eps []endpoint.Endpoint
	for file, keys := range s.Files {
		for _, key := range keys {
			ep, ok := s.Endpoints[key]
			if !ok {
				continue
			}
			m.Endpoints = append(m.Endpoints, entry(key, file, ep))
			eps = append(eps, ep)
		}
	}

	sort.Slice(m.Endpoints, func(i, j int) bool {
		a, b := m.Endpoints[i], m.Endpoints[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.ID < b.ID
	})

	m.Statistics.Total = len(m.Endpoints)
	for method, n := range endpoint.CountByMethod(eps) {
		m.Statistics.ByMethod[string(method)] = n
	}
	return m
}

// FromScan builds a manifest from a stateless directory scan.
func FromScan(files []extract.FileEndpoints, at time.Time) *Manifest {
	s := incremental.NewState()
	s.LastUpdated = at
	for _, f := range files {
		for _, ep := range f.Endpoints {
			key := incremental.StateKey(f.Path, ep.Identity())
			if _, dup := s.Endpoints[key]; dup {
				continue
			}
			s.Endpoints[key] = ep
			s.Files[f.Path] = append(s.Files[f.Path], key)
		}
	}
	return FromState(s)
}

// FromReconciler exports the reconciler's current state.
func FromReconciler(r *incremental.Reconciler) *Manifest {
	return FromState(r.Snapshot())
}

func entry(key, file string, ep endpoint.Endpoint) EndpointEntry {
	return EndpointEntry{
		ID:      key,
		Method:  string(ep.Method),
		Path:    ep.Path,
		File:    file,
		Line:    ep.Line,
		Column:  ep.Column,
		Handler: ep.Handler,
	}
}

// ParseFormat accepts "yaml", "yml" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (use yaml or json)", s)
	}
}

// Write renders m to w in the given format.
func (m *Manifest) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Render returns m in the given format.
func (m *Manifest) Render(format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Write(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
