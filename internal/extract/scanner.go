package extract

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"routewatch/internal/endpoint"
	"routewatch/internal/slogutil"
)

// defaultSkipDirs are never descended into.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".routewatch":  true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// ScanOptions tunes a directory scan.
type ScanOptions struct {
	Workers     int
	Excludes    []string // directory names or glob patterns matched against relative paths
	MaxFileSize int64    // 0 disables the limit
}

// FileEndpoints are the endpoints found in one file.
type FileEndpoints struct {
	Path      string              `json:"path"` // relative, forward slashes
	Language  Language            `json:"language"`
	Endpoints []endpoint.Endpoint `json:"endpoints"`
}

// Scanner discovers supported files under a root and extracts them concurrently.
type Scanner struct {
	registry *Registry
	opts     ScanOptions
	logger   *slog.Logger
}

// NewScanner creates a scanner.
func NewScanner(registry *Registry, opts ScanOptions, logger *slog.Logger) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Scanner{registry: registry, opts: opts, logger: slogutil.OrDiscard(logger)}
}

// Excluded reports whether a relative slash path falls under an exclude rule.
func (s *Scanner) Excluded(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if defaultSkipDirs[part] {
			return true
		}
	}
	for _, pattern := range s.opts.Excludes {
		if pattern == "" {
			continue
		}
		if !strings.ContainsAny(pattern, "*?[") {
			for _, part := range strings.Split(rel, "/") {
				if part == pattern {
					return true
				}
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// Files lists the supported source files under root as sorted relative
// slash paths.
func (s *Scanner) Files(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("Skipping unreadable path", "path", path, "error", err.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || s.Excluded(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || s.Excluded(rel) {
			return nil
		}
		if _, ok := LanguageFromPath(rel); !ok {
			return nil
		}
		if s.opts.MaxFileSize > 0 {
			if info, infoErr := d.Info(); infoErr == nil && info.Size() > s.opts.MaxFileSize {
				s.logger.Debug("Skipping large file", "path", rel, "size", info.Size())
				return nil
			}
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Scan extracts endpoints from every supported file under root. Files that
// cannot be read or are not UTF-8 are logged and skipped. Files without
// endpoints are omitted from the result.
func (s *Scanner) Scan(ctx context.Context, root string) ([]FileEndpoints, error) {
	files, err := s.Files(ctx, root)
	if err != nil {
		return nil, err
	}

	results := make([]FileEndpoints, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				s.logger.Warn("Failed to read file", "path", rel, "error", err.Error())
				return nil
			}
			if !utf8.Valid(data) {
				s.logger.Warn("Skipping file with invalid UTF-8", "path", rel)
				return nil
			}
			lang, _ := LanguageFromPath(rel)
			eps := s.registry.ExtractFile(rel, data)
			endpoint.Sort(eps)
			results[i] = FileEndpoints{Path: rel, Language: lang, Endpoints: eps}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]FileEndpoints, 0, len(results))
	for _, r := range results {
		if len(r.Endpoints) > 0 {
			out = append(out, r)
		}
	}
	s.logger.Info("Scan complete", "root", root, "files", len(files), "withEndpoints", len(out))
	return out, nil
}
