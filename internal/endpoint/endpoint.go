// Package endpoint defines the discovered-route value type shared by the
// extractors, the reconciler and the persistence layers.
package endpoint

import (
	"fmt"
	"sort"
	"strings"
)

// HTTPMethod is one of the seven HTTP verbs routewatch recognizes.
type HTTPMethod string

const (
	GET     HTTPMethod = "GET"
	POST    HTTPMethod = "POST"
	PUT     HTTPMethod = "PUT"
	DELETE  HTTPMethod = "DELETE"
	PATCH   HTTPMethod = "PATCH"
	OPTIONS HTTPMethod = "OPTIONS"
	HEAD    HTTPMethod = "HEAD"
)

// AllMethods lists the recognized methods in display order.
var AllMethods = []HTTPMethod{GET, POST, PUT, DELETE, PATCH, OPTIONS, HEAD}

// ParseHTTPMethod maps a token to a method, case-insensitively.
// Anything else reports ok=false and must be dropped by the caller.
func ParseHTTPMethod(token string) (HTTPMethod, bool) {
	switch strings.ToUpper(token) {
	case "GET":
		return GET, true
	case "POST":
		return POST, true
	case "PUT":
		return PUT, true
	case "DELETE":
		return DELETE, true
	case "PATCH":
		return PATCH, true
	case "OPTIONS":
		return OPTIONS, true
	case "HEAD":
		return HEAD, true
	default:
		return "", false
	}
}

// String returns the upper-case token.
func (m HTTPMethod) String() string {
	return string(m)
}

// Endpoint is one route definition found in source. Path keeps the
// framework's own parameter syntax (":id", "{id}", "<int:id>").
type Endpoint struct {
	Method        HTTPMethod `json:"method"`
	Path          string     `json:"path"`
	Handler       string     `json:"handler"`
	Line          int        `json:"line"`
	Column        int        `json:"column"`
	Documentation string     `json:"documentation,omitempty"`
}

// Identity is the key used to match endpoints across reconciliation passes.
// It includes the line, so a moved route gets a new identity.
type Identity struct {
	Method HTTPMethod
	Path   string
	Line   int
}

// Identity returns the endpoint's identity key.
func (e Endpoint) Identity() Identity {
	return Identity{Method: e.Method, Path: e.Path, Line: e.Line}
}

// String renders the identity as "<lower method>:<path>:<line>".
func (id Identity) String() string {
	return fmt.Sprintf("%s:%s:%d", strings.ToLower(string(id.Method)), id.Path, id.Line)
}

// ParseIdentity reverses Identity.String. Paths may contain colons,
// so the method is split from the front and the line from the back.
func ParseIdentity(s string) (Identity, error) {
	first := strings.IndexByte(s, ':')
	last := strings.LastIndexByte(s, ':')
	if first < 0 || last <= first {
		return Identity{}, fmt.Errorf("malformed endpoint identity %q", s)
	}
	method, ok := ParseHTTPMethod(s[:first])
	if !ok {
		return Identity{}, fmt.Errorf("unknown method in identity %q", s)
	}
	var line int
	if _, err := fmt.Sscanf(s[last+1:], "%d", &line); err != nil {
		return Identity{}, fmt.Errorf("bad line in identity %q: %w", s, err)
	}
	return Identity{Method: method, Path: s[first+1 : last], Line: line}, nil
}

// Sort orders endpoints by line, column, method and path.
func Sort(eps []Endpoint) {
	sort.SliceStable(eps, func(i, j int) bool {
		a, b := eps[i], eps[j]
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

// CountByMethod tallies endpoints per method.
func CountByMethod(eps []Endpoint) map[HTTPMethod]int {
	counts := make(map[HTTPMethod]int)
	for _, e := range eps {
		counts[e.Method]++
	}
	return counts
}
