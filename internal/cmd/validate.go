package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harrison/nbcheck/internal/notebook"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [notebook...]",
		Short: "Check notebooks against the nbformat v4 schema without executing them",
		Long: `Load each notebook and validate it against the nbformat v4 schema.
Without arguments the configured notebooks are validated.

Exit code: 0 if valid, 1 if errors found`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			found, err := p.notebooks(args)
			if err != nil {
				return err
			}
			return validateNotebooks(found.Notebooks, cmd.OutOrStdout())
		},
	}
}

// validateNotebooks reports every notebook and returns an error if any is
// unreadable or violates the schema.
func validateNotebooks(paths []string, out io.Writer) error {
	if len(paths) == 0 {
		return fmt.Errorf("no notebooks found")
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	invalid := 0
	for _, path := range paths {
		doc, err := notebook.Load(path)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s %s: %v\n", red("✗"), path, err)
			continue
		}
		if len(doc.SchemaErrors) > 0 {
			invalid++
			fmt.Fprintf(out, "%s %s: %d schema error(s)\n", red("✗"), path, len(doc.SchemaErrors))
			for _, msg := range doc.SchemaErrors {
				fmt.Fprintf(out, "    - %s\n", msg)
			}
			continue
		}
		fmt.Fprintf(out, "%s %s (%d code cell(s))\n", green("✓"), path, doc.CodeCells())
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d notebook(s) invalid", invalid, len(paths))
	}
	fmt.Fprintf(out, "\nAll %d notebook(s) valid\n", len(paths))
	return nil
}
