package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"routewatch/internal/workspace"
)

var (
	workspaceDir  string
	workspaceName string
	workspaceTags []string
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage the project roots watched together",
	Long: `A workspace is a routewatch.toml file listing project roots. "routewatch
watch" without arguments watches every root of the workspace in --dir.`,
}

var workspaceAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a project root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.Load(workspaceDir)
		if err != nil {
			return err
		}
		root, err := ws.AddRoot(workspaceName, args[0], workspaceTags)
		if err != nil {
			return err
		}
		if err := ws.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) to %s\n", root.Name, root.Path, ws.Path())
		return nil
	},
}

var workspaceRemoveCmd = &cobra.Command{
	Use:   "remove <name|uid>",
	Short: "Remove a project root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.Load(workspaceDir)
		if err != nil {
			return err
		}
		if err := ws.RemoveRoot(args[0]); err != nil {
			return err
		}
		if err := ws.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List project roots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.Load(workspaceDir)
		if err != nil {
			return err
		}
		renderRoots(cmd.OutOrStdout(), ws)
		return nil
	},
}

func init() {
	workspaceCmd.PersistentFlags().StringVar(&workspaceDir, "dir", ".", "Directory containing routewatch.toml")
	workspaceAddCmd.Flags().StringVar(&workspaceName, "name", "", "Root name (default: directory name)")
	workspaceAddCmd.Flags().StringSliceVar(&workspaceTags, "tag", nil, "Tags for the root")

	workspaceCmd.AddCommand(workspaceAddCmd, workspaceRemoveCmd, workspaceListCmd)
	rootCmd.AddCommand(workspaceCmd)
}
