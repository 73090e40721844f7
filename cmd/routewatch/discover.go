package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"routewatch/internal/export"
	"routewatch/internal/extract"
)

var discoverFormat string

var discoverCmd = &cobra.Command{
	Use:   "discover [path]",
	Short: "List every HTTP endpoint under a directory",
	Long: `Scan a directory for route definitions and print them. The scan is
stateless: nothing is read from or written to .routewatch.

Recognized frameworks:
- Express-style routers (JavaScript/TypeScript)
- Flask and FastAPI decorators (Python)
- Laravel Route facade (PHP)

Examples:
  routewatch discover
  routewatch discover ./services/api --format=json
  routewatch discover --format=yaml > endpoints.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverFormat, "format", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(discoverFormat)
	if err != nil {
		return err
	}
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	registry, err := extract.NewRegistry()
	if err != nil {
		return err
	}
	if !extract.Available() {
		logger.Warn("Built without tree-sitter; only PHP routes will be found")
	}
	scanner := extract.NewScanner(registry, extract.ScanOptions{
		Workers:     cfg.Extract.Workers,
		Excludes:    cfg.Extract.Excludes,
		MaxFileSize: cfg.Extract.MaxFileSizeBytes,
	}, logger)

	ctx, cancel := newContext()
	defer cancel()

	files, err := scanner.Scan(ctx, root)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	manifest := export.FromScan(files, time.Now())

	out := cmd.OutOrStdout()
	if format == FormatTable {
		renderManifest(out, manifest)
		return nil
	}
	return writeStructured(out, manifest, format)
}
