package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if !cfg.Watcher.Enabled {
		t.Error("watcher should be enabled by default")
	}
	if cfg.Watcher.QueueSize != 100 {
		t.Errorf("Watcher.QueueSize = %d, want 100", cfg.Watcher.QueueSize)
	}
	if cfg.Extract.ContextLines != 3 {
		t.Errorf("Extract.ContextLines = %d, want 3", cfg.Extract.ContextLines)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"bad version", func(c *Config) { c.Version = 99 }, "version"},
		{"negative debounce", func(c *Config) { c.Watcher.DebounceMs = -1 }, "watcher.debounceMs"},
		{"zero queue", func(c *Config) { c.Watcher.QueueSize = 0 }, "watcher.queueSize"},
		{"negative context", func(c *Config) { c.Extract.ContextLines = -2 }, "extract.contextLines"},
		{"zero workers", func(c *Config) { c.Extract.Workers = 0 }, "extract.workers"},
		{"zero git timeout", func(c *Config) { c.Git.TimeoutMs = 0 }, "git.timeoutMs"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Watcher.DebounceMs != DefaultConfig().Watcher.DebounceMs {
		t.Errorf("expected default debounce, got %d", cfg.Watcher.DebounceMs)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".routewatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"version": 1, "extract": {"contextLines": 7}, "storage": {"backend": "snapshot"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Extract.ContextLines != 7 {
		t.Errorf("ContextLines = %d, want 7", cfg.Extract.ContextLines)
	}
	if cfg.Storage.Backend != "snapshot" {
		t.Errorf("Backend = %q, want snapshot", cfg.Storage.Backend)
	}
	if cfg.Watcher.QueueSize != 100 {
		t.Errorf("QueueSize = %d, want default 100", cfg.Watcher.QueueSize)
	}
	if cfg.Extract.Workers != 8 {
		t.Errorf("Workers = %d, want default 8", cfg.Extract.Workers)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ROUTEWATCH_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".routewatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(root); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSaveAndReload(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Git.TimeoutMs = 2500
	cfg.Watcher.IgnorePatterns = []string{"*.bak"}

	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Git.TimeoutMs != 2500 {
		t.Errorf("TimeoutMs = %d, want 2500", loaded.Git.TimeoutMs)
	}
	if len(loaded.Watcher.IgnorePatterns) != 1 || loaded.Watcher.IgnorePatterns[0] != "*.bak" {
		t.Errorf("IgnorePatterns = %v", loaded.Watcher.IgnorePatterns)
	}

	fromFile, err := LoadFile(filepath.Join(root, ".routewatch", "config.json"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if fromFile.Git.TimeoutMs != 2500 {
		t.Errorf("LoadFile TimeoutMs = %d, want 2500", fromFile.Git.TimeoutMs)
	}
}
