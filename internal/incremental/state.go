package incremental

import (
	"encoding/json"
	"sort"
	"time"

	"routewatch/internal/endpoint"
	"routewatch/internal/errors"
)

// State is the persisted set of known endpoints. Keys of Endpoints are
// "<file>#<identity>"; Files lists each tracked file's keys.
type State struct {
	Endpoints   map[string]endpoint.Endpoint `json:"endpoints"`
	FileHashes  map[string]string            `json:"file_hashes"`
	Files       map[string][]string          `json:"files"`
	LastUpdated time.Time                    `json:"last_updated"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Endpoints:   make(map[string]endpoint.Endpoint),
		FileHashes:  make(map[string]string),
		Files:       make(map[string][]string),
		LastUpdated: time.Now(),
	}
}

// StateKey builds the state key of an endpoint identity within file.
func StateKey(file string, id endpoint.Identity) string {
	return file + "#" + id.String()
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		Endpoints:   make(map[string]endpoint.Endpoint, len(s.Endpoints)),
		FileHashes:  make(map[string]string, len(s.FileHashes)),
		Files:       make(map[string][]string, len(s.Files)),
		LastUpdated: s.LastUpdated,
	}
	for k, v := range s.Endpoints {
		c.Endpoints[k] = v
	}
	for k, v := range s.FileHashes {
		c.FileHashes[k] = v
	}
	for k, v := range s.Files {
		c.Files[k] = append([]string(nil), v...)
	}
	return c
}

// TrackedFiles lists files that have been reconciled, sorted.
func (s *State) TrackedFiles() []string {
	files := make([]string, 0, len(s.FileHashes))
	for f := range s.FileHashes {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// normalize fills nil maps and drops file entries whose keys are missing.
func (s *State) normalize() {
	if s.Endpoints == nil {
		s.Endpoints = make(map[string]endpoint.Endpoint)
	}
	if s.FileHashes == nil {
		s.FileHashes = make(map[string]string)
	}
	if s.Files == nil {
		s.Files = make(map[string][]string)
	}
	for f, keys := range s.Files {
		kept := keys[:0]
		for _, k := range keys {
			if _, ok := s.Endpoints[k]; ok {
				kept = append(kept, k)
			}
		}
		s.Files[f] = kept
	}
}

// MarshalState encodes s as the JSON snapshot format.
func MarshalState(s *State) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState decodes a JSON snapshot. Malformed input fails with
// STATE_CORRUPT.
func UnmarshalState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewRouteError(errors.StateCorrupt, "Endpoint snapshot is not valid JSON", err)
	}
	s.normalize()
	return &s, nil
}
