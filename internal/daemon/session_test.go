package daemon

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"routewatch/internal/config"
	"routewatch/internal/diff"
	"routewatch/internal/watcher"
)

const webRoutes = `<?php
Route::get('/users', 'UserController@index');
Route::post('/users', 'UserController@store');
`

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Git.Enabled = false
	cfg.Extract.Workers = 2
	return cfg
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openSession(t *testing.T, root string, cfg *config.Config) *Session {
	t.Helper()
	s, err := Open(root, cfg, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_NotADirectory(t *testing.T) {
	file := writeFile(t, t.TempDir(), "x.php", "<?php")
	if _, err := Open(file, testConfig(), nil); err == nil {
		t.Fatal("expected error for file root")
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Backend = "redis"
	if _, err := Open(t.TempDir(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestSession_Bootstrap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/web.php", webRoutes)
	writeFile(t, root, "README.md", "Route::get('/ignored', 'X@y');")

	s := openSession(t, root, testConfig())
	ctx := context.Background()

	first, err := s.Bootstrap(ctx)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if len(first.Changes.Added) != 2 {
		t.Fatalf("first bootstrap added %d, want 2", len(first.Changes.Added))
	}
	if first.Report.SemverAdvice != "minor" {
		t.Errorf("SemverAdvice = %q, want minor", first.Report.SemverAdvice)
	}

	second, err := s.Bootstrap(ctx)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if second.Changes.HasChanges() {
		t.Errorf("second bootstrap reported changes: %+v", second.Changes)
	}
	if len(second.Changes.Unchanged) != 2 {
		t.Errorf("unchanged = %d, want 2", len(second.Changes.Unchanged))
	}
}

func TestSession_ApplyFileEdit(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "routes/web.php", webRoutes)

	s := openSession(t, root, testConfig())
	ctx := context.Background()
	if _, err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	writeFile(t, root, "routes/web.php", `<?php
Route::get('/users', 'UserController@index');
`)
	result, err := s.Apply(ctx, diff.FileSystemSource{Path: path})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(result.Changes.Removed) != 1 || result.Changes.Removed[0].Path != "/users" {
		t.Fatalf("removed = %+v", result.Changes.Removed)
	}
	if !result.Report.HasBreakingChanges() {
		t.Error("removing a route should be breaking")
	}
	if len(result.Touched) != 1 {
		t.Errorf("touched = %+v, want the remaining GET route", result.Touched)
	}
}

func TestSession_ApplyWithoutGit(t *testing.T) {
	s := openSession(t, t.TempDir(), testConfig())
	if s.Git() != nil {
		t.Fatal("git should be disabled")
	}
	if _, err := s.Apply(context.Background(), diff.GitCommitSource{Hash: "HEAD"}); err == nil {
		t.Fatal("expected GIT_UNAVAILABLE")
	}
}

func TestSession_WatchEventsDeleted(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "routes/web.php", webRoutes)

	s := openSession(t, root, testConfig())
	ctx := context.Background()
	if _, err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	result := s.ApplyWatchEvents(ctx, []watcher.Event{{Kind: watcher.Deleted, Path: path, Timestamp: time.Now()}})
	if len(result.Changes.Removed) != 2 {
		t.Fatalf("removed = %d, want 2", len(result.Changes.Removed))
	}
	if n := len(s.Snapshot().Endpoints); n != 0 {
		t.Errorf("state still holds %d endpoints", n)
	}
}

func TestSession_WatchEventsDirectoryRenamed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/web.php", webRoutes)

	s := openSession(t, root, testConfig())
	ctx := context.Background()
	if _, err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := os.Rename(filepath.Join(root, "routes"), filepath.Join(root, "old")); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	result := s.ApplyWatchEvents(ctx, []watcher.Event{
		{Kind: watcher.Deleted, Path: filepath.Join(root, "routes"), Timestamp: now},
		{Kind: watcher.Created, Path: filepath.Join(root, "old", "web.php"), Timestamp: now},
	})
	if len(result.Changes.Removed) != 2 || len(result.Changes.Added) != 2 {
		t.Fatalf("changes = %+v, want two removed and two added", result.Changes)
	}
	tracked := s.Reconciler().TrackedFiles()
	if len(tracked) != 1 || tracked[0] != "old/web.php" {
		t.Errorf("tracked = %v, want [old/web.php]", tracked)
	}
	if n := len(s.Snapshot().Endpoints); n != 2 {
		t.Errorf("state holds %d endpoints, want 2", n)
	}
}

func TestSession_GitCommitInSubdirectory(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = repo
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
			"GIT_CONFIG_NOSYSTEM=1", "HOME="+repo,
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}

	git("init", "-q")
	writeFile(t, repo, ".gitignore", ".routewatch/\n")
	writeFile(t, repo, "api/routes/web.php", webRoutes)
	writeFile(t, repo, "web/routes.php", "<?php\nRoute::get('/elsewhere', 'X@y');\n")
	git("add", ".")
	git("commit", "-q", "-m", "first")

	cfg := testConfig()
	cfg.Git.Enabled = true
	s := openSession(t, filepath.Join(repo, "api"), cfg)
	if s.Git() == nil {
		t.Fatal("git should be available")
	}
	ctx := context.Background()
	if _, err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	writeFile(t, repo, "api/routes/web.php", webRoutes+"Route::delete('/users/{id}', 'UserController@destroy');\n")
	writeFile(t, repo, "web/routes.php", "<?php\nRoute::get('/moved', 'X@y');\n")
	git("add", ".")
	git("commit", "-q", "-m", "second")

	result, err := s.Apply(ctx, diff.GitCommitSource{Hash: "HEAD"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(result.Changes.Added) != 1 || result.Changes.Added[0].Path != "/users/{id}" {
		t.Fatalf("added = %+v, want the DELETE route only", result.Changes.Added)
	}
	if len(result.Changes.Unchanged) != 2 || len(result.Changes.Removed) != 0 {
		t.Errorf("changes = %+v", result.Changes)
	}
	tracked := s.Reconciler().TrackedFiles()
	if len(tracked) != 1 || tracked[0] != "routes/web.php" {
		t.Errorf("tracked = %v, want [routes/web.php]", tracked)
	}
	if n := len(s.Snapshot().Endpoints); n != 3 {
		t.Errorf("state holds %d endpoints, want 3", n)
	}
}

func TestSession_PersistAndReopen(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendSnapshot} {
		t.Run(backend, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "routes/web.php", webRoutes)
			cfg := testConfig()
			cfg.Storage.Backend = backend

			s, err := Open(root, cfg, nil)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if _, err := s.Bootstrap(context.Background()); err != nil {
				t.Fatalf("Bootstrap failed: %v", err)
			}
			if err := s.Persist(); err != nil {
				t.Fatalf("Persist failed: %v", err)
			}
			_ = s.Close()

			reopened := openSession(t, root, cfg)
			if n := len(reopened.Snapshot().Endpoints); n != 2 {
				t.Fatalf("reopened state has %d endpoints, want 2", n)
			}
			result, err := reopened.Bootstrap(context.Background())
			if err != nil {
				t.Fatalf("Bootstrap failed: %v", err)
			}
			if result.Changes.HasChanges() {
				t.Errorf("restart reported changes: %+v", result.Changes)
			}
		})
	}
}

func TestSession_History(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes/web.php", webRoutes)

	s := openSession(t, root, testConfig())
	if _, err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	runs, err := s.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Added != 2 {
		t.Fatalf("runs = %+v", runs)
	}

	cfg := testConfig()
	cfg.Storage.Backend = BackendSnapshot
	snap := openSession(t, t.TempDir(), cfg)
	if _, err := snap.History(10); err == nil {
		t.Error("expected history error for snapshot backend")
	}
}

func TestSession_Run(t *testing.T) {
	root := t.TempDir()
	s := openSession(t, root, testConfig())

	wcfg := watcher.DefaultConfig()
	wcfg.DebounceMs = 50
	registry := watcher.NewRegistry(wcfg, nil)
	defer registry.StopAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Result, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, registry, func(r *Result) { changed <- r })
	}()

	// Give the watcher time to register the root
	deadline := time.Now().Add(5 * time.Second)
	for len(registry.Active()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	writeFile(t, root, "web.php", webRoutes)

	select {
	case r := <-changed:
		if len(r.Changes.Added) != 2 {
			t.Errorf("added = %d, want 2", len(r.Changes.Added))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".routewatch", "routewatch.db")); err != nil {
		t.Errorf("state not persisted: %v", err)
	}
}
