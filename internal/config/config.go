package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version this build understands
const CurrentVersion = 1

// Config represents the complete routewatch configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Watcher WatcherConfig `json:"watcher" mapstructure:"watcher"`
	Extract ExtractConfig `json:"extract" mapstructure:"extract"`
	Git     GitConfig     `json:"git" mapstructure:"git"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	// File additionally tees watch logs into .routewatch/logs/watch.log
	File bool `json:"file" mapstructure:"file"`
}

// WatcherConfig contains filesystem watcher configuration
type WatcherConfig struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	QueueSize      int      `json:"queueSize" mapstructure:"queueSize"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// ExtractConfig controls discovery and region extraction
type ExtractConfig struct {
	ContextLines     int      `json:"contextLines" mapstructure:"contextLines"`
	Workers          int      `json:"workers" mapstructure:"workers"`
	Excludes         []string `json:"excludes" mapstructure:"excludes"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// GitConfig contains git collaborator configuration
type GitConfig struct {
	Enabled   bool `json:"enabled" mapstructure:"enabled"`
	TimeoutMs int  `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// StorageConfig selects where endpoint state is persisted
type StorageConfig struct {
	// Backend is "sqlite" or "snapshot"
	Backend string `json:"backend" mapstructure:"backend"`
	// Path overrides the default location under .routewatch
	Path string `json:"path" mapstructure:"path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Watcher: WatcherConfig{
			Enabled:        true,
			DebounceMs:     300,
			QueueSize:      100,
			IgnorePatterns: []string{"*.swp", "*.tmp", "*~", ".#*"},
		},
		Extract: ExtractConfig{
			ContextLines:     3,
			Workers:          8,
			Excludes:         []string{"node_modules", "vendor", "dist", "build", "__pycache__"},
			MaxFileSizeBytes: 2 * 1024 * 1024,
		},
		Git: GitConfig{
			Enabled:   true,
			TimeoutMs: 10000,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
		},
	}
}

// setDefaults registers every default so partial config files keep the rest
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("watcher.enabled", d.Watcher.Enabled)
	v.SetDefault("watcher.debounceMs", d.Watcher.DebounceMs)
	v.SetDefault("watcher.queueSize", d.Watcher.QueueSize)
	v.SetDefault("watcher.ignorePatterns", d.Watcher.IgnorePatterns)
	v.SetDefault("extract.contextLines", d.Extract.ContextLines)
	v.SetDefault("extract.workers", d.Extract.Workers)
	v.SetDefault("extract.excludes", d.Extract.Excludes)
	v.SetDefault("extract.maxFileSizeBytes", d.Extract.MaxFileSizeBytes)
	v.SetDefault("git.enabled", d.Git.Enabled)
	v.SetDefault("git.timeoutMs", d.Git.TimeoutMs)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
}

// LoadConfig loads configuration from .routewatch/config.json.
// Environment variables prefixed ROUTEWATCH_ override file values,
// e.g. ROUTEWATCH_LOGGING_LEVEL=debug.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".routewatch"))

	v.SetEnvPrefix("ROUTEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .routewatch/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".routewatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Watcher.DebounceMs < 0 {
		return &ConfigError{Field: "watcher.debounceMs", Message: "must not be negative"}
	}
	if c.Watcher.QueueSize <= 0 {
		return &ConfigError{Field: "watcher.queueSize", Message: "must be positive"}
	}
	if c.Extract.ContextLines < 0 {
		return &ConfigError{Field: "extract.contextLines", Message: "must not be negative"}
	}
	if c.Extract.Workers <= 0 {
		return &ConfigError{Field: "extract.workers", Message: "must be positive"}
	}
	if c.Git.TimeoutMs <= 0 {
		return &ConfigError{Field: "git.timeoutMs", Message: "must be positive"}
	}
	switch c.Storage.Backend {
	case "sqlite", "snapshot":
	default:
		return &ConfigError{Field: "storage.backend", Message: "must be sqlite or snapshot"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
