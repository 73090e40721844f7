// Package export renders the known endpoints as a manifest document.
package export

// Manifest is the exported endpoint inventory
type Manifest struct {
	Version     string          `json:"version" yaml:"version"`
	LastUpdated string          `json:"lastUpdated" yaml:"lastUpdated"` // RFC 3339
	Endpoints   []EndpointEntry `json:"endpoints" yaml:"endpoints"`
	Statistics  Statistics      `json:"statistics" yaml:"statistics"`
}

// EndpointEntry is one endpoint in the manifest
type EndpointEntry struct {
	ID      string `json:"id" yaml:"id"`
	Method  string `json:"method" yaml:"method"`
	Path    string `json:"path" yaml:"path"`
	File    string `json:"file" yaml:"file"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`
}

// Statistics summarizes the manifest
type Statistics struct {
	Total    int            `json:"total" yaml:"total"`
	ByMethod map[string]int `json:"byMethod" yaml:"byMethod"`
}

// Format is a manifest output format
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)
