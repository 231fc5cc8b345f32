package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfgate/pagecheck/internal/psi"
	"github.com/perfgate/pagecheck/internal/report"
	"github.com/perfgate/pagecheck/internal/result"
	"github.com/perfgate/pagecheck/internal/urls"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Quick single-URL spot check, results to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd.Flags())
			if err != nil {
				return err
			}
			applyAuditFlags(cmd.Flags(), &s)
			if err := s.Validate(); err != nil {
				return err
			}

			target := urls.Validate(args[0])
			if target == "" {
				return fmt.Errorf("invalid URL: %s", args[0])
			}

			client := psi.NewClient(s.APIKey, s.Categories, nil)
			var rows []result.Representative
			for _, strategy := range s.Strategies() {
				fmt.Fprintf(os.Stderr, "Fetching %s (%s)...\n", target, strategy)
				r := client.Fetch(cmd.Context(), target, strategy)
				rows = append(rows, result.Representative{Result: r, SamplesCompleted: completed(r)})
			}
			report.PrintDetail(rows, os.Stdout)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagStrategy, "strategy", "s", "mobile", "analysis strategy: mobile, desktop, or both")
	cmd.Flags().StringSliceVar(&flagCategories, "categories", []string{"performance"}, "Lighthouse categories to request")
	return cmd
}

func completed(r result.Result) int {
	if r.Failed() {
		return 0
	}
	return 1
}
