// Package workspace manages routewatch.toml, the list of project roots
// watched together.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"routewatch/internal/paths"
)

// Workspace represents a routewatch.toml file
type Workspace struct {
	// Name identifies the workspace
	Name string `toml:"name"`

	// UpdatedAt is when the workspace was last modified
	UpdatedAt time.Time `toml:"updated_at"`

	// Roots is the list of project roots in this workspace
	Roots []Root `toml:"roots"`

	path string
}

// Root is one project root in the workspace
type Root struct {
	// UID is an immutable UUID for this root
	UID string `toml:"uid"`

	// Name is the mutable human-friendly alias
	Name string `toml:"name"`

	// Path is the absolute filesystem path to the project
	Path string `toml:"path"`

	Tags []string `toml:"tags,omitempty"`
}

// New creates an empty workspace stored at dir/routewatch.toml
func New(dir, name string) *Workspace {
	return &Workspace{
		Name:      name,
		UpdatedAt: time.Now().UTC(),
		Roots:     []Root{},
		path:      paths.WorkspacePath(dir),
	}
}

// Load reads dir/routewatch.toml. A missing file yields an empty workspace
// named after dir.
func Load(dir string) (*Workspace, error) {
	file := paths.WorkspacePath(dir)

	if _, err := os.Stat(file); os.IsNotExist(err) {
		return New(dir, filepath.Base(dir)), nil
	}

	ws := &Workspace{path: file}
	if _, err := toml.DecodeFile(file, ws); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}
	if ws.Roots == nil {
		ws.Roots = []Root{}
	}
	return ws, nil
}

// Path returns the workspace file location
func (w *Workspace) Path() string {
	return w.path
}

// Save writes the workspace to disk
func (w *Workspace) Save() error {
	if w.path == "" {
		return fmt.Errorf("workspace has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create workspace file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(w); err != nil {
		return fmt.Errorf("failed to encode workspace: %w", err)
	}
	return nil
}

// AddRoot adds a project root. The path is made absolute; names and paths
// must be unique.
func (w *Workspace) AddRoot(name, path string, tags []string) (*Root, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if name == "" {
		name = filepath.Base(abs)
	}

	for _, r := range w.Roots {
		if r.Name == name {
			return nil, fmt.Errorf("root with name %q already exists", name)
		}
		if r.Path == abs {
			return nil, fmt.Errorf("root at path %q already exists (as %q)", abs, r.Name)
		}
	}

	root := Root{
		UID:  uuid.New().String(),
		Name: name,
		Path: abs,
		Tags: tags,
	}
	w.Roots = append(w.Roots, root)
	w.UpdatedAt = time.Now().UTC()

	return &root, nil
}

// RemoveRoot removes a root by name or UID
func (w *Workspace) RemoveRoot(nameOrUID string) error {
	for i, r := range w.Roots {
		if r.Name == nameOrUID || r.UID == nameOrUID {
			w.Roots = append(w.Roots[:i], w.Roots[i+1:]...)
			w.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("root %q not found", nameOrUID)
}

// GetRoot returns a root by name, or nil
func (w *Workspace) GetRoot(name string) *Root {
	for i := range w.Roots {
		if w.Roots[i].Name == name {
			return &w.Roots[i]
		}
	}
	return nil
}

// RootPaths lists the path of every root in insertion order
func (w *Workspace) RootPaths() []string {
	out := make([]string, 0, len(w.Roots))
	for _, r := range w.Roots {
		out = append(out, r.Path)
	}
	return out
}
