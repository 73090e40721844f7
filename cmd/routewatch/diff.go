package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"routewatch/internal/daemon"
	"routewatch/internal/diff"
)

var (
	diffFrom   string
	diffTo     string
	diffRepo   string
	diffFormat string
	diffSave   bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show endpoint changes between two git refs",
	Long: `Resolve the files changed between two refs, re-extract them at the
target ref and report added, modified and removed endpoints with their
breaking-change grade.

The stored state must describe the --from ref for the delta to be exact;
run "routewatch sync" on a checkout of --from first, or use --save=false to
leave the stored state untouched.

Examples:
  routewatch diff --from=v1.0.0 --to=HEAD
  routewatch diff --from=main --to=feature/api --format=json
  routewatch diff --repo=../api --from=HEAD~5`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffFrom, "from", "HEAD~1", "Base git ref")
	diffCmd.Flags().StringVar(&diffTo, "to", "HEAD", "Target git ref")
	diffCmd.Flags().StringVar(&diffRepo, "repo", ".", "Project root inside a git work tree")
	diffCmd.Flags().StringVar(&diffFormat, "format", "table", "Output format (table, json, yaml)")
	diffCmd.Flags().BoolVar(&diffSave, "save", false, "Persist the reconciled state")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(diffFormat)
	if err != nil {
		return err
	}
	root, err := resolveRoot([]string{diffRepo})
	if err != nil {
		return err
	}
	session, _, _, err := openSession(root)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := requireGit(session); err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	result, err := session.Apply(ctx, diff.GitDiffSource{From: diffFrom, To: diffTo})
	if err != nil {
		return err
	}
	if diffSave {
		if err := session.Persist(); err != nil {
			return err
		}
	}
	return emitResult(cmd, result, format)
}

// errBreakingChanges makes the process exit 1 without printing an error
var errBreakingChanges = errors.New("breaking changes found")

func requireGit(session *daemon.Session) error {
	if session.Git() == nil {
		return fmt.Errorf("%s is not a git repository or git is disabled in config", session.Root())
	}
	return nil
}

// emitResult prints result and turns breaking changes into a non-zero exit
func emitResult(cmd *cobra.Command, result *daemon.Result, format OutputFormat) error {
	out := cmd.OutOrStdout()
	if format == FormatTable {
		renderResult(out, result)
	} else if err := writeStructured(out, result, format); err != nil {
		return err
	}

	// Exit with code 1 if breaking changes found (for CI)
	if result.Report.HasBreakingChanges() {
		return errBreakingChanges
	}
	return nil
}
