//go:build !cgo

package extract

import (
	"routewatch/internal/endpoint"
)

// Available reports whether the tree-sitter extractors are compiled in.
// Returns false when CGO is disabled.
func Available() bool {
	return false
}

// JavaScriptExtractor is a stub for non-CGO builds and finds nothing.
type JavaScriptExtractor struct {
	lang Language
}

// NewJavaScriptExtractor returns the stub extractor.
func NewJavaScriptExtractor(lang Language) *JavaScriptExtractor {
	return &JavaScriptExtractor{lang: lang}
}

// Extract always returns nil without tree-sitter.
func (x *JavaScriptExtractor) Extract(source []byte) []endpoint.Endpoint {
	return nil
}

// PythonExtractor is a stub for non-CGO builds and finds nothing.
type PythonExtractor struct{}

// NewPythonExtractor returns the stub extractor.
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{}
}

// Extract always returns nil without tree-sitter.
func (x *PythonExtractor) Extract(source []byte) []endpoint.Endpoint {
	return nil
}
