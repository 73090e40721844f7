package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"routewatch/internal/daemon"
	"routewatch/internal/export"
	"routewatch/internal/storage"
	"routewatch/internal/workspace"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// parseFormat validates a --format value
func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatTable, "human", "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use table, json or yaml)", s)
	}
}

// writeStructured writes v as indented JSON or YAML
func writeStructured(w io.Writer, v interface{}, format OutputFormat) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// renderManifest prints the endpoints of m as a table
func renderManifest(w io.Writer, m *export.Manifest) {
	if len(m.Endpoints) == 0 {
		fmt.Fprintln(w, "No endpoints found.")
		return
	}
	table := newTable(w, []string{"Method", "Path", "File", "Line", "Handler"})
	for _, e := range m.Endpoints {
		table.Append([]string{e.Method, e.Path, e.File, strconv.Itoa(e.Line), e.Handler})
	}
	table.SetFooter([]string{"", "", "", "Total", strconv.Itoa(m.Statistics.Total)})
	table.Render()
}

// renderResult prints a change summary followed by the graded changes
func renderResult(w io.Writer, r *daemon.Result) {
	c := r.Changes
	fmt.Fprintf(w, "%s: %d added, %d modified, %d removed, %d unchanged (%d files, %s)\n",
		r.Source, len(c.Added), len(c.Modified), len(c.Removed), len(c.Unchanged),
		r.Files, r.Duration.Round(time.Millisecond))

	if r.Report == nil || len(r.Report.Changes) == 0 {
		return
	}
	fmt.Fprintln(w)
	table := newTable(w, []string{"Severity", "Kind", "Method", "Path", "Line", "Description"})
	for _, ch := range r.Report.Changes {
		table.Append([]string{
			string(ch.Severity),
			string(ch.Kind),
			string(ch.Method),
			ch.Path,
			strconv.Itoa(ch.Line),
			ch.Description,
		})
	}
	table.Render()

	s := r.Report.Summary
	fmt.Fprintf(w, "\n%d breaking, %d warnings, %d non-breaking. Suggested version bump: %s\n",
		s.BreakingChanges, s.Warnings, s.NonBreaking, r.Report.SemverAdvice)
}

// renderRuns prints run history
func renderRuns(w io.Writer, runs []storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	table := newTable(w, []string{"Recorded", "Source", "Files", "Added", "Modified", "Removed", "Breaking", "Duration"})
	for _, run := range runs {
		table.Append([]string{
			run.RecordedAt.Local().Format("2006-01-02 15:04:05"),
			run.Source,
			strconv.Itoa(run.Files),
			strconv.Itoa(run.Added),
			strconv.Itoa(run.Modified),
			strconv.Itoa(run.Removed),
			strconv.Itoa(run.Breaking),
			(time.Duration(run.DurationMs) * time.Millisecond).String(),
		})
	}
	table.Render()
}

// renderRoots prints workspace roots
func renderRoots(w io.Writer, ws *workspace.Workspace) {
	if len(ws.Roots) == 0 {
		fmt.Fprintf(w, "Workspace %q has no roots.\n", ws.Name)
		return
	}
	table := newTable(w, []string{"Name", "Path", "Tags", "UID"})
	for _, r := range ws.Roots {
		table.Append([]string{r.Name, r.Path, strings.Join(r.Tags, ","), r.UID})
	}
	table.Render()
}
