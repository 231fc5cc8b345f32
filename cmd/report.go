package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfgate/pagecheck/internal/report"
)

var flagReportOutput string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <input>",
		Short: "Render an HTML dashboard from a stored CSV/JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := report.Load(args[0])
			if err != nil {
				return err
			}

			if flagReportOutput == "" || flagReportOutput == "-" {
				return report.WriteHTML(rows, os.Stdout)
			}
			f, err := os.Create(flagReportOutput)
			if err != nil {
				return fmt.Errorf("creating %s: %w", flagReportOutput, err)
			}
			defer f.Close()
			if err := report.WriteHTML(rows, f); err != nil {
				return fmt.Errorf("writing HTML report: %w", err)
			}
			fmt.Fprintf(os.Stderr, "  + HTML report: %s\n", flagReportOutput)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagReportOutput, "output", "o", "", "HTML output path (default: stdout)")
	return cmd
}
