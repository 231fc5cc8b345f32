package cmd

import (
	"github.com/spf13/cobra"

	"github.com/perfgate/pagecheck/internal/report"
)

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget <input>",
		Short: "Evaluate a stored report against a budget, no API calls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd.Flags())
			if err != nil {
				return err
			}
			applyAuditFlags(cmd.Flags(), &s)
			if s.Budget == "" {
				s.Budget = "cwv"
			}

			rows, err := report.Load(args[0])
			if err != nil {
				return err
			}
			return applyBudget(cmd.Context(), s, rows)
		},
	}
	addBudgetFlags(cmd)
	return cmd
}
