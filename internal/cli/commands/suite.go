package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/veriq-labs/veriq/pkg/suite"
)

// NewSuiteCommand creates the suite command group.
func NewSuiteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suite",
		Short: "Inspect and lint expectation suites",
	}
	cmd.AddCommand(newSuiteLintCommand())
	return cmd
}

func newSuiteLintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <suite-file>",
		Short: "Check a suite file for definition errors",
		Long: `Parse and validate an expectation suite without running it.

Reports unknown expectation kinds, missing required parameters,
invalid regular expressions and malformed custom SQL definitions.`,
		Example: `  veriq suite lint orders_suite.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			su, err := suite.Load(args[0])
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Expectation", "Column", "Description"})
			for i, spec := range su.Specs {
				t.AppendRow(table.Row{i, spec.TypeString(), spec.Column, spec.Description})
			}
			t.Render()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Suite %s: %d expectation(s), no errors\n", su.Name, len(su.Specs))
			return nil
		},
	}
	return cmd
}
