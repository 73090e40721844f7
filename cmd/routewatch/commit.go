package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"routewatch/internal/daemon"
	"routewatch/internal/diff"
)

var (
	commitSince  string
	commitFiles  []string
	commitRepo   string
	commitFormat string
	commitLimit  int
)

var commitCmd = &cobra.Command{
	Use:   "commit <hash>",
	Short: "Apply the endpoint changes introduced by a commit",
	Long: `Reconcile the files a commit changed against its first parent and
persist the result.

With --since, every first-parent commit after the given ref up to <hash> is
applied in order, oldest first.

Examples:
  routewatch commit HEAD
  routewatch commit abc123 --files=routes/web.php
  routewatch commit HEAD --since=v1.2.0`,
	Args: cobra.ExactArgs(1),
	RunE: runCommit,
}

func init() {
	commitCmd.Flags().StringVar(&commitSince, "since", "", "Replay every commit after this ref")
	commitCmd.Flags().StringSliceVar(&commitFiles, "files", nil, "Limit to these paths, relative to the project root")
	commitCmd.Flags().StringVar(&commitRepo, "repo", ".", "Project root inside a git work tree")
	commitCmd.Flags().StringVar(&commitFormat, "format", "table", "Output format (table, json, yaml)")
	commitCmd.Flags().IntVar(&commitLimit, "limit", 0, "Replay at most this many commits (0 = all)")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(commitFormat)
	if err != nil {
		return err
	}
	root, err := resolveRoot([]string{commitRepo})
	if err != nil {
		return err
	}
	session, _, logger, err := openSession(root)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := requireGit(session); err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	hashes := []string{args[0]}
	if commitSince != "" {
		commits, err := session.Git().CommitsBetween(ctx, commitSince, args[0], commitLimit)
		if err != nil {
			return err
		}
		if len(commits) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No commits between %s and %s.\n", commitSince, args[0])
			return nil
		}
		hashes = hashes[:0]
		for _, c := range commits {
			hashes = append(hashes, c.Hash)
		}
		logger.Info("Replaying commits", "count", len(hashes), "since", commitSince)
	}

	var results []*daemon.Result
	breaking := false
	for _, hash := range hashes {
		result, err := session.Apply(ctx, diff.GitCommitSource{Hash: hash, Files: commitFiles})
		if err != nil {
			return fmt.Errorf("commit %s: %w", hash, err)
		}
		results = append(results, result)
		breaking = breaking || result.Report.HasBreakingChanges()
	}
	if err := session.Persist(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == FormatTable {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(out)
			}
			renderResult(out, r)
		}
	} else {
		var v interface{} = results
		if len(results) == 1 {
			v = results[0]
		}
		if err := writeStructured(out, v, format); err != nil {
			return err
		}
	}
	if breaking {
		return errBreakingChanges
	}
	return nil
}
