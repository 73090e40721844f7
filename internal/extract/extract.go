// Package extract finds HTTP route definitions in JavaScript/TypeScript,
// Python and PHP source files.
//
// Extraction is total: an extractor never returns an error for malformed
// input, it returns whatever endpoints it can identify with confidence.
package extract

import (
	"path/filepath"
	"strings"

	"routewatch/internal/endpoint"
	"routewatch/internal/errors"
)

// Language is the closed set of languages routewatch extracts from.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangPHP        Language = "php"
)

// AllLanguages lists every supported language.
var AllLanguages = []Language{LangJavaScript, LangTypeScript, LangTSX, LangPython, LangPHP}

var extensions = map[string]Language{
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangJavaScript,
	".ts":  LangTypeScript,
	".tsx": LangTSX,
	".py":  LangPython,
	".php": LangPHP,
}

// LanguageFromPath resolves a language from the file extension.
func LanguageFromPath(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Extractor turns source text into endpoints.
type Extractor interface {
	Extract(source []byte) []endpoint.Endpoint
}

// Registry holds one extractor per language. Build it once and share it;
// every extractor is safe for concurrent use.
type Registry struct {
	extractors map[Language]Extractor
}

// NewRegistry constructs every extractor. Only the PHP pattern can fail.
func NewRegistry() (*Registry, error) {
	php, err := NewPHPExtractor()
	if err != nil {
		return nil, errors.NewRouteError(errors.ExtractorSetup, "PHP route pattern failed to compile", err)
	}
	return &Registry{
		extractors: map[Language]Extractor{
			LangJavaScript: NewJavaScriptExtractor(LangJavaScript),
			LangTypeScript: NewJavaScriptExtractor(LangTypeScript),
			LangTSX:        NewJavaScriptExtractor(LangTSX),
			LangPython:     NewPythonExtractor(),
			LangPHP:        php,
		},
	}, nil
}

// For returns the extractor for lang, or nil when none is registered.
func (r *Registry) For(lang Language) Extractor {
	return r.extractors[lang]
}

// ForPath resolves the language of path and returns its extractor.
func (r *Registry) ForPath(path string) (Extractor, Language, bool) {
	lang, ok := LanguageFromPath(path)
	if !ok {
		return nil, "", false
	}
	ex := r.extractors[lang]
	return ex, lang, ex != nil
}

// ExtractFile runs the right extractor for path over source. Unsupported
// paths yield nil. A panic inside an extractor yields nil as well.
func (r *Registry) ExtractFile(path string, source []byte) (eps []endpoint.Endpoint) {
	ex, _, ok := r.ForPath(path)
	if !ok {
		return nil
	}
	return safeExtract(ex, source)
}

func safeExtract(ex Extractor, source []byte) (eps []endpoint.Endpoint) {
	defer func() {
		if recover() != nil {
			eps = nil
		}
	}()
	return ex.Extract(source)
}
