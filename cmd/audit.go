package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/perfgate/pagecheck/internal/aggregate"
	"github.com/perfgate/pagecheck/internal/batch"
	"github.com/perfgate/pagecheck/internal/budget"
	"github.com/perfgate/pagecheck/internal/config"
	"github.com/perfgate/pagecheck/internal/psi"
	"github.com/perfgate/pagecheck/internal/ratelimit"
	"github.com/perfgate/pagecheck/internal/report"
	"github.com/perfgate/pagecheck/internal/result"
	"github.com/perfgate/pagecheck/internal/urls"
)

var (
	flagFile          string
	flagSitemap       string
	flagSitemapLimit  int
	flagSitemapFilter string
	flagStrategy      string
	flagCategories    []string
	flagDelay         float64
	flagWorkers       int
	flagRuns          int
	flagOutputFormat  string
	flagOutput        string
	flagOutputDir     string
	flagFull          bool
	flagStream        bool
	flagBudget        string
	flagBudgetFormat  string
	flagWebhook       string
	flagWebhookOn     string
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [urls...]",
		Short: "Analyze a batch of URLs and write report files",
		RunE:  runAuditCmd,
	}
	addSourceFlags(cmd)
	addRunFlags(cmd)
	addOutputFlags(cmd)
	addBudgetFlags(cmd)
	cmd.Flags().BoolVar(&flagStream, "stream", false, "emit NDJSON rows to stdout as results complete, skip report files")
	return cmd
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagFile, "file", "f", "", "file with one URL per line")
	cmd.Flags().StringVar(&flagSitemap, "sitemap", "", "sitemap URL or local path to pull URLs from")
	cmd.Flags().IntVar(&flagSitemapLimit, "sitemap-limit", 0, "max URLs to take from the sitemap (0 = all)")
	cmd.Flags().StringVar(&flagSitemapFilter, "sitemap-filter", "", "regex filter for sitemap URLs")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagStrategy, "strategy", "s", "mobile", "analysis strategy: mobile, desktop, or both")
	cmd.Flags().StringSliceVar(&flagCategories, "categories", []string{"performance"}, "Lighthouse categories to request")
	cmd.Flags().Float64VarP(&flagDelay, "delay", "d", 1.5, "minimum seconds between API call starts")
	cmd.Flags().IntVarP(&flagWorkers, "workers", "w", 4, "concurrent workers")
	cmd.Flags().IntVar(&flagRuns, "runs", 1, "samples per URL, aggregated into one row")
	cmd.Flags().BoolVar(&flagFull, "full", false, "retain the raw lighthouseResult in JSON output")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOutputFormat, "output-format", "csv", "output format: csv, json, or both")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "explicit output path (extension set per format)")
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", "./reports", "directory for timestamped report files")
}

func addBudgetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagBudget, "budget", "", "budget YAML file or the built-in \"cwv\" preset")
	cmd.Flags().StringVar(&flagBudgetFormat, "budget-format", "text", "budget verdict format: text, json, or github")
	cmd.Flags().StringVar(&flagWebhook, "webhook", "", "URL to POST the budget verdict to")
	cmd.Flags().StringVar(&flagWebhookOn, "webhook-on", "always", "when to send the webhook: always or fail")
}

// applyAuditFlags copies every flag the user set over the resolved
// settings. Unset flags keep the config/profile/default value.
func applyAuditFlags(f *pflag.FlagSet, s *config.Settings) {
	set := map[string]func(){
		"file":           func() { s.URLsFile = flagFile },
		"sitemap":        func() { s.Sitemap = flagSitemap },
		"sitemap-limit":  func() { s.SitemapLimit = flagSitemapLimit },
		"sitemap-filter": func() { s.SitemapFilter = flagSitemapFilter },
		"strategy":       func() { s.Strategy = flagStrategy },
		"categories":     func() { s.Categories = flagCategories },
		"delay":          func() { s.Delay = flagDelay },
		"workers":        func() { s.Workers = flagWorkers },
		"runs":           func() { s.Runs = flagRuns },
		"output-format":  func() { s.OutputFormat = flagOutputFormat },
		"output-dir":     func() { s.OutputDir = flagOutputDir },
		"budget":         func() { s.Budget = flagBudget },
		"budget-format":  func() { s.BudgetFormat = flagBudgetFormat },
		"webhook":        func() { s.WebhookURL = flagWebhook },
		"webhook-on":     func() { s.WebhookOn = flagWebhookOn },
	}
	for name, apply := range set {
		if f.Lookup(name) != nil && f.Changed(name) {
			apply()
		}
	}
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd.Flags())
	if err != nil {
		return err
	}
	applyAuditFlags(cmd.Flags(), &s)
	if err := s.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	targets, err := urls.Load(ctx, urls.Sources{
		Args:          args,
		File:          s.URLsFile,
		Sitemap:       s.Sitemap,
		SitemapLimit:  s.SitemapLimit,
		SitemapFilter: s.SitemapFilter,
		Stdin:         stdinIfPiped(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Auditing %d URL(s), strategy: %s\n", len(targets), s.Strategy)
	rows, err := runBatch(ctx, s, targets)
	if err != nil {
		return err
	}

	if !flagStream {
		w := &report.Writer{
			Format:        s.OutputFormat,
			Dir:           s.OutputDir,
			ExplicitPath:  flagOutput,
			StrategyLabel: strategyLabel(s),
			MultiRun:      s.Runs > 1,
			Log:           os.Stderr,
		}
		if _, err := w.Write(rows); err != nil {
			return err
		}
		report.Summarize(rows, os.Stderr)
	}

	if s.Budget != "" {
		return applyBudget(ctx, s, rows)
	}
	return nil
}

// runBatch executes the configured audit over targets and folds
// repeated samples into one row per (URL, strategy) pair.
func runBatch(ctx context.Context, s config.Settings, targets []string) ([]result.Representative, error) {
	gate := ratelimit.New(time.Duration(s.Delay * float64(time.Second)))
	client := psi.NewClient(s.APIKey, s.Categories, gate)
	client.IncludeRaw = flagFull

	var observer batch.Observer
	switch {
	case flagStream:
		observer = func(r result.Result) {
			line, err := report.NDJSONRow(r)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: encoding stream row for %s: %v\n", r.URL, err)
				return
			}
			fmt.Println(string(line))
		}
	case s.Verbose:
		observer = func(r result.Result) {
			if r.Failed() {
				fmt.Fprintf(os.Stderr, "  %s (%s): %s\n", r.URL, r.Strategy, r.Err)
				return
			}
			score, _ := r.Metric(result.PrimaryScore)
			fmt.Fprintf(os.Stderr, "  %s (%s): %s\n", r.URL, r.Strategy, report.ScoreText(score))
		}
	}

	results, err := batch.Run(ctx, client, batch.Opts{
		URLs:       targets,
		Strategies: s.Strategies(),
		Runs:       s.Runs,
		Workers:    s.Workers,
		Observer:   observer,
	})
	if err != nil {
		return nil, err
	}
	return aggregate.Aggregate(results, s.Runs), nil
}

// applyBudget judges rows, prints the verdict in the configured
// format, optionally notifies the webhook, and maps a failing verdict
// to the budget exit code.
func applyBudget(ctx context.Context, s config.Settings, rows []result.Representative) error {
	b, err := budget.Load(s.Budget)
	if err != nil {
		return err
	}
	verdict := budget.Evaluate(rows, b)

	switch s.BudgetFormat {
	case "json":
		out, err := budget.FormatJSON(verdict)
		if err != nil {
			return err
		}
		fmt.Println(out)
	case "github":
		fmt.Print(budget.FormatGitHub(verdict))
	default:
		fmt.Print(budget.FormatText(verdict))
	}

	if s.WebhookURL != "" && (s.WebhookOn == "always" || verdict.Status == budget.Fail) {
		if err := budget.SendWebhook(ctx, s.WebhookURL, verdict); err != nil {
			fmt.Fprintf(os.Stderr, "warning: webhook delivery failed: %v\n", err)
		}
	}

	switch verdict.Status {
	case budget.Fail:
		return errBudgetFailed
	case budget.Inconclusive:
		return fmt.Errorf("budget inconclusive: every pair errored out")
	}
	return nil
}

func strategyLabel(s config.Settings) string {
	label := s.Strategy
	if flagFull {
		label += "-full"
	}
	return label
}

// stdinIfPiped returns stdin only when something is piped in, so an
// interactive run without URLs errors out instead of hanging.
func stdinIfPiped() io.Reader {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return os.Stdin
}
