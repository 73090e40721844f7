package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"routewatch/internal/config"
	"routewatch/internal/daemon"
	"routewatch/internal/slogutil"
	"routewatch/internal/version"
)

var (
	// verbosity counts -v flags
	verbosity  int
	quiet      bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "routewatch",
	Short: "routewatch - incremental HTTP endpoint discovery",
	Long: `routewatch finds HTTP endpoint definitions in JavaScript/TypeScript,
Python and PHP sources and keeps that inventory current across file edits,
git commits and git diff ranges without rescanning the whole project.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("routewatch version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/.routewatch/config.json)")
}

// resolveRoot returns the absolute project root from args, or the working
// directory when no argument is given.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 && args[0] != "" {
		root = args[0]
	}
	return filepath.Abs(root)
}

// loadConfig loads and validates configuration.
// Precedence: --config file > <root>/.routewatch/config.json > defaults
func loadConfig(root string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadConfig(root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logLevel picks the level from -v/-q when given, otherwise from config.
func logLevel(cfg *config.Config) slog.Level {
	if verbosity > 0 || quiet {
		return slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	if cfg == nil {
		return slog.LevelWarn
	}
	return slogutil.LevelFromString(cfg.Logging.Level)
}

// newLogger creates the stderr logger for a command.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := logLevel(cfg)
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slogutil.NewLogger(w, level)
}

// openSession loads config for root and opens a session on it.
func openSession(root string) (*daemon.Session, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	session, err := daemon.Open(root, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open %s: %w", root, err)
	}
	return session, cfg, logger, nil
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
