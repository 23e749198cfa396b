package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harrison/nbcheck/internal/notebook"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the notebooks a run would execute",
		Long: `List the notebooks discovered from the configuration, in execution
order, with the first heading of each notebook as its title.`,
		Args: cobra.NoArgs,
		RunE: listCommand,
	}
}

func listCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	found, err := p.notebooks(nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(found.Notebooks) == 0 {
		fmt.Fprintln(out, "No notebooks found.")
		return nil
	}

	missing := make(map[string]bool, len(found.Missing))
	for _, m := range found.Missing {
		missing[m] = true
	}

	for i, path := range found.Notebooks {
		switch {
		case missing[path]:
			fmt.Fprintf(out, "%3d. %s  %s\n", i+1, path, color.RedString("(missing)"))
		default:
			doc, err := notebook.Load(path)
			if err != nil {
				fmt.Fprintf(out, "%3d. %s  %s\n", i+1, path, color.RedString("(unreadable)"))
				continue
			}
			if title := doc.Title(); title != "" {
				fmt.Fprintf(out, "%3d. %s  %s\n", i+1, path, title)
			} else {
				fmt.Fprintf(out, "%3d. %s\n", i+1, path)
			}
		}
	}

	fmt.Fprintf(out, "\n%d notebook(s)\n", len(found.Notebooks))
	return nil
}
