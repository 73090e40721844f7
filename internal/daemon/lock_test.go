package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestWatchLock_NoFile(t *testing.T) {
	lock := NewWatchLock(filepath.Join(t.TempDir(), "watch.pid"))

	held, pid, err := lock.Holder()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if held || pid != 0 {
		t.Errorf("Holder() = (%v, %d), want (false, 0)", held, pid)
	}
}

func TestWatchLock_InvalidPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.pid")
	if err := os.WriteFile(path, []byte("not-a-number"), 0644); err != nil {
		t.Fatal(err)
	}

	held, _, err := NewWatchLock(path).Holder()
	if err != nil || held {
		t.Errorf("Holder() = %v, %v; want not held", held, err)
	}
}

func TestWatchLock_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "watch.pid")
	lock := NewWatchLock(path)

	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("PID file not written: %v", err)
	}
	if string(data) != strconv.Itoa(os.Getpid())+"\n" {
		t.Errorf("PID file = %q", data)
	}

	// The current process is alive, so a second acquire must fail
	if err := NewWatchLock(path).Acquire(); err == nil {
		t.Error("expected second Acquire to fail")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Release of missing file should succeed: %v", err)
	}
}

func TestWatchLock_StalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.pid")
	if err := os.WriteFile(path, []byte("999999999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	lock := NewWatchLock(path)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire over stale PID failed: %v", err)
	}
	_ = lock.Release()
}

func TestProcessExists(t *testing.T) {
	if !processExists(os.Getpid()) {
		t.Error("current process should exist")
	}
	if processExists(-1) {
		t.Error("negative PID should not exist")
	}
}
