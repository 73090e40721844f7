package main

import (
	"github.com/spf13/cobra"
)

var syncFormat string

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Reconcile the stored endpoint state with the working tree",
	Long: `Read every supported file, compare against the endpoints stored in
.routewatch and persist the result. Files whose content hash is unchanged are
not re-parsed.

Exits with code 1 when breaking changes are found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncFormat, "format", "table", "Output format (table, json, yaml)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(syncFormat)
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

	ctx, cancel := newContext()
	defer cancel()

	result, err := session.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if err := session.Persist(); err != nil {
		return err
	}
	return emitResult(cmd, result, format)
}
