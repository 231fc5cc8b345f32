package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/perfgate/pagecheck/internal/report"
)

var flagThreshold float64

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <before> <after>",
		Short: "Diff two reports and flag regressions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := report.Load(args[0])
			if err != nil {
				return err
			}
			after, err := report.Load(args[1])
			if err != nil {
				return err
			}
			report.Compare(before, after, flagThreshold).WriteText(os.Stdout)
			return nil
		},
	}
	cmd.Flags().Float64Var(&flagThreshold, "threshold", 5, "score delta that counts as a regression or improvement")
	return cmd
}
