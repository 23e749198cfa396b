package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for nbcheck
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nbcheck",
		Short: "Execute Jupyter notebooks as a test suite",
		Long: `nbcheck runs every code cell of each notebook in a fresh kernel and
reports the notebook as passed, skipped or failed.

A cell error whose traceback contains the skip marker (default "SKIP")
counts as an intentional skip. Any other error fails the notebook.

Configuration is loaded from .nbcheck/config.yaml in the project root.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .nbcheck/config.yaml)")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
