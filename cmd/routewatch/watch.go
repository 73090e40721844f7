package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"routewatch/internal/config"
	"routewatch/internal/daemon"
	"routewatch/internal/paths"
	"routewatch/internal/slogutil"
	"routewatch/internal/watcher"
	"routewatch/internal/workspace"
)

var (
	watchWorkspace string
	watchFormat    string
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Watch project roots and report endpoint changes as files change",
	Long: `Bootstrap each root, then follow filesystem events and print every
batch that adds, modifies or removes an endpoint. State is persisted after
each such batch and on exit.

Without arguments the roots of routewatch.toml in --workspace are watched,
falling back to the current directory.

Examples:
  routewatch watch
  routewatch watch ./api ./admin
  routewatch watch --workspace=~/src/platform`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchWorkspace, "workspace", ".", "Directory containing routewatch.toml")
	watchCmd.Flags().StringVar(&watchFormat, "format", "table", "Output format (table, json)")
	rootCmd.AddCommand(watchCmd)
}

// watchRoots resolves the roots to watch from args or the workspace file
func watchRoots(args []string) ([]string, error) {
	if len(args) > 0 {
		roots := make([]string, 0, len(args))
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return nil, err
			}
			roots = append(roots, abs)
		}
		return roots, nil
	}

	ws, err := workspace.Load(watchWorkspace)
	if err != nil {
		return nil, err
	}
	if roots := ws.RootPaths(); len(roots) > 0 {
		return roots, nil
	}
	abs, err := filepath.Abs(watchWorkspace)
	if err != nil {
		return nil, err
	}
	return []string{abs}, nil
}

// watcherConfig merges config ignore patterns into the watcher defaults
func watcherConfig(cfg *config.Config) watcher.Config {
	wc := watcher.DefaultConfig()
	wc.DebounceMs = cfg.Watcher.DebounceMs
	wc.QueueSize = cfg.Watcher.QueueSize
	wc.IgnorePatterns = append(wc.IgnorePatterns, cfg.Watcher.IgnorePatterns...)
	return wc
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(watchFormat)
	if err != nil {
		return err
	}
	if format == FormatYAML {
		return fmt.Errorf("watch streams results; use table or json")
	}
	roots, err := watchRoots(args)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	printer := &resultPrinter{out: cmd.OutOrStdout(), format: format}

	g, gctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		g.Go(func() error {
			return watchRoot(gctx, root, printer)
		})
	}
	return g.Wait()
}

// resultPrinter serializes output from concurrently watched roots
type resultPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	format OutputFormat
}

func (p *resultPrinter) emit(r *daemon.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.format == FormatJSON {
		data, err := json.Marshal(r)
		if err != nil {
			return
		}
		fmt.Fprintln(p.out, string(data))
		return
	}
	renderResult(p.out, r)
	fmt.Fprintln(p.out)
}

func watchRoot(ctx context.Context, root string, printer *resultPrinter) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("%s: %w", root, err)
	}
	if !cfg.Watcher.Enabled {
		return fmt.Errorf("%s: watching is disabled in config", root)
	}

	logger := newLogger(cfg, os.Stderr)
	if cfg.Logging.File {
		fileLogger, f, err := slogutil.NewFileLogger(paths.WatchLogPath(root), slogutil.LevelFromString(cfg.Logging.Level))
		if err != nil {
			return fmt.Errorf("failed to open watch log: %w", err)
		}
		defer f.Close()
		logger = slog.New(slogutil.NewTeeHandler(logger.Handler(), fileLogger.Handler()))
	}

	lock := daemon.NewWatchLock(paths.WatchPIDPath(root))
	if err := lock.Acquire(); err != nil {
		return fmt.Errorf("%s: %w", root, err)
	}
	defer func() { _ = lock.Release() }()

	session, err := daemon.Open(root, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	initial, err := session.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if err := session.Persist(); err != nil {
		return err
	}
	printer.emit(initial)

	registry := watcher.NewRegistry(watcherConfig(cfg), logger)
	defer registry.StopAll()

	return session.Run(ctx, registry, func(r *daemon.Result) {
		printer.emit(r)
	})
}
