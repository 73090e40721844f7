package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// WatchLock is a PID file that keeps two watchers off one project root
type WatchLock struct {
	path string
}

// NewWatchLock creates a lock backed by the PID file at path
func NewWatchLock(path string) *WatchLock {
	return &WatchLock{path: path}
}

// Acquire writes the current process ID. It fails when another live
// process holds the lock; a stale file is replaced.
func (l *WatchLock) Acquire() error {
	held, pid, err := l.Holder()
	if err != nil {
		return err
	}
	if held {
		return fmt.Errorf("another watcher is already running (PID: %d)", pid)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	content := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(l.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release removes the PID file
func (l *WatchLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Holder reports whether a live process holds the lock.
// Returns (held, pid, error)
func (l *WatchLock) Holder() (bool, int, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// Garbage in the file means nobody holds it
		return false, 0, nil //nolint:nilerr // unparseable PID is a stale lock
	}
	return processExists(pid), pid, nil
}

// processExists checks if a process with the given PID exists
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks for existence without delivering anything
	return process.Signal(syscall.Signal(0)) == nil
}
