// Package cmd wires the pagecheck subcommands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/perfgate/pagecheck/internal/config"
	"github.com/perfgate/pagecheck/internal/report"
)

var (
	cfgFile     string
	profileName string
	flagAPIKey  string
	flagVerbose bool
)

// errBudgetFailed signals the dedicated budget-failure exit code.
// Budget output has already been printed when it is returned.
var errBudgetFailed = errors.New("budget not met")

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pagecheck",
		Short:         "Batch PageSpeed Insights analysis with budgets",
		Version:       report.ToolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: pagecheck.{yaml,toml} in . or ~/.config/pagecheck)")
	root.PersistentFlags().StringVar(&profileName, "profile", "", "named profile from the config file")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "PageSpeed API key (or "+config.EnvAPIKey+")")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose progress output")
	root.AddCommand(newCheckCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newPipelineCmd())
	root.AddCommand(newCompareCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newBudgetCmd())
	return root
}

// Execute runs the CLI and maps its outcome to a process exit code:
// 0 ok, 1 operational error, 2 budget failure.
func Execute() int {
	err := NewRootCmd().Execute()
	if err == nil {
		return 0
	}
	if errors.Is(err, errBudgetFailed) {
		return 2
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// resolveSettings loads the config file and profile, then lets any
// flag the user actually set on this invocation win.
func resolveSettings(flags *pflag.FlagSet) (config.Settings, error) {
	s, err := config.Load(cfgFile, profileName)
	if err != nil {
		return s, err
	}
	if flags.Changed("api-key") {
		s.APIKey = flagAPIKey
	}
	if flags.Changed("verbose") {
		s.Verbose = flagVerbose
	}
	return s, nil
}
