package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"routewatch/internal/export"
)

var (
	stateShowFormat    string
	stateExportFormat  string
	stateHistoryFormat string
	stateOutput        string
	stateHistoryLimit  int
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the stored endpoint state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show the endpoints stored for a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStateShow,
}

var stateExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the stored endpoints as a manifest",
	Long: `Write the stored endpoints as a YAML or JSON manifest with per-method
statistics.

Examples:
  routewatch state export > endpoints.yaml
  routewatch state export --format=json --output=endpoints.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStateExport,
}

var stateHistoryCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "List recently applied change events",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStateHistory,
}

func init() {
	stateShowCmd.Flags().StringVar(&stateShowFormat, "format", "table", "Output format (table, json, yaml)")
	stateExportCmd.Flags().StringVar(&stateExportFormat, "format", "yaml", "Manifest format (yaml, json)")
	stateExportCmd.Flags().StringVarP(&stateOutput, "output", "o", "", "Write to file instead of stdout")
	stateHistoryCmd.Flags().StringVar(&stateHistoryFormat, "format", "table", "Output format (table, json, yaml)")
	stateHistoryCmd.Flags().IntVar(&stateHistoryLimit, "limit", 20, "Number of runs to show")

	stateCmd.AddCommand(stateShowCmd, stateExportCmd, stateHistoryCmd)
	rootCmd.AddCommand(stateCmd)
}

func loadManifest(args []string) (*export.Manifest, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}
	session, _, _, err := openSession(root)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return export.FromState(session.Snapshot()), nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(stateShowFormat)
	if err != nil {
		return err
	}
	manifest, err := loadManifest(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != FormatTable {
		return writeStructured(out, manifest, format)
	}
	if manifest.Statistics.Total == 0 {
		fmt.Fprintln(out, "No stored endpoints. Run \"routewatch sync\" first.")
		return nil
	}
	renderManifest(out, manifest)
	if manifest.LastUpdated != "" {
		fmt.Fprintf(out, "\nLast updated: %s\n", manifest.LastUpdated)
	}
	return nil
}

func runStateExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(stateExportFormat)
	if err != nil {
		return err
	}
	manifest, err := loadManifest(args)
	if err != nil {
		return err
	}

	if stateOutput == "" {
		return manifest.Write(cmd.OutOrStdout(), format)
	}
	data, err := manifest.Render(format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(stateOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", stateOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d endpoints to %s\n", manifest.Statistics.Total, stateOutput)
	return nil
}

func runStateHistory(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(stateHistoryFormat)
	if err != nil {
		return err
	}
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	session, _, _, err := openSession(root)
	if err != nil {
		return err
	}
	defer session.Close()

	runs, err := session.History(stateHistoryLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if format == FormatTable {
		renderRuns(out, runs)
		return nil
	}
	return writeStructured(out, runs, format)
}
