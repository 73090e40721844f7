package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()

	ws, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ws.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want %q", ws.Name, filepath.Base(dir))
	}
	if len(ws.Roots) != 0 {
		t.Errorf("expected no roots, got %d", len(ws.Roots))
	}
}

func TestWorkspace_AddSaveLoad(t *testing.T) {
	dir := t.TempDir()
	api := filepath.Join(dir, "api")
	web := filepath.Join(dir, "web")

	ws := New(dir, "platform")
	root, err := ws.AddRoot("api", api, []string{"backend"})
	if err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}
	if _, err := uuid.Parse(root.UID); err != nil {
		t.Errorf("UID %q is not a UUID: %v", root.UID, err)
	}
	if _, err := ws.AddRoot("", web, nil); err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}
	if err := ws.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "routewatch.toml")); err != nil {
		t.Fatalf("workspace file not written: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "platform" || len(loaded.Roots) != 2 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if got := loaded.GetRoot("web"); got == nil || got.Path != web {
		t.Errorf("GetRoot(web) = %+v", got)
	}
	if loaded.Roots[0].UID != root.UID || loaded.Roots[0].Tags[0] != "backend" {
		t.Errorf("first root = %+v", loaded.Roots[0])
	}
	paths := loaded.RootPaths()
	if len(paths) != 2 || paths[0] != api {
		t.Errorf("RootPaths = %v", paths)
	}
}

func TestWorkspace_AddRootDuplicates(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir, "w")
	if _, err := ws.AddRoot("api", filepath.Join(dir, "api"), nil); err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}

	if _, err := ws.AddRoot("other", filepath.Join(dir, "api"), nil); err == nil {
		t.Error("expected duplicate path to be rejected")
	}
	if _, err := ws.AddRoot("api", filepath.Join(dir, "elsewhere"), nil); err == nil {
		t.Error("expected duplicate name to be rejected")
	}
}

func TestWorkspace_RemoveRoot(t *testing.T) {
	dir := t.TempDir()
	ws := New(dir, "w")
	a, _ := ws.AddRoot("a", filepath.Join(dir, "a"), nil)
	if _, err := ws.AddRoot("b", filepath.Join(dir, "b"), nil); err != nil {
		t.Fatalf("AddRoot failed: %v", err)
	}

	if err := ws.RemoveRoot(a.UID); err != nil {
		t.Fatalf("RemoveRoot by UID failed: %v", err)
	}
	if err := ws.RemoveRoot("b"); err != nil {
		t.Fatalf("RemoveRoot by name failed: %v", err)
	}
	if len(ws.Roots) != 0 {
		t.Errorf("expected empty workspace, got %+v", ws.Roots)
	}
	if err := ws.RemoveRoot("missing"); err == nil {
		t.Error("expected error removing unknown root")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "routewatch.toml"), []byte("name = [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}
