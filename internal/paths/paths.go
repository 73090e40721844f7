package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DataDirName is the per-project directory holding config, state and logs
	DataDirName = ".routewatch"
	// DatabaseFileName is the SQLite endpoint state store
	DatabaseFileName = "routewatch.db"
	// SnapshotFileName is the compressed JSON snapshot of endpoint state
	SnapshotFileName = "state.json.zst"
	// WorkspaceFileName is the multi-root workspace file
	WorkspaceFileName = "routewatch.toml"
)

// DataDir returns <repoRoot>/.routewatch
func DataDir(repoRoot string) string {
	return filepath.Join(repoRoot, DataDirName)
}

// EnsureDataDir creates the data directory if needed and returns it
func EnsureDataDir(repoRoot string) (string, error) {
	dir := DataDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DatabasePath returns the location of the SQLite state store
func DatabasePath(repoRoot string) string {
	return filepath.Join(DataDir(repoRoot), DatabaseFileName)
}

// SnapshotPath returns the location of the compressed state snapshot
func SnapshotPath(repoRoot string) string {
	return filepath.Join(DataDir(repoRoot), SnapshotFileName)
}

// WatchLogPath returns the log file written by the watch command
func WatchLogPath(repoRoot string) string {
	return filepath.Join(DataDir(repoRoot), "logs", "watch.log")
}

// WatchPIDPath returns the PID file held by a running watch command
func WatchPIDPath(repoRoot string) string {
	return filepath.Join(DataDir(repoRoot), "watch.pid")
}

// WorkspacePath returns the workspace file inside dir
func WorkspacePath(dir string) string {
	return filepath.Join(dir, WorkspaceFileName)
}

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// A deleted file still needs a canonical name
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	repoRootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			repoRootResolved = repoRoot
		} else {
			return "", err
		}
	}

	// A deleted file under a symlinked root cannot be resolved, so fall back
	// to the unresolved root when the resolved one does not contain it.
	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil || strings.HasPrefix(relativePath, "..") {
		if alt, altErr := filepath.Rel(repoRoot, absolutePath); altErr == nil && !strings.HasPrefix(alt, "..") {
			return filepath.ToSlash(alt), nil
		}
		if err != nil {
			return "", err
		}
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(canonical, "..")
}

// NormalizePath converts backslashes to forward slashes
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
