package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfgate/pagecheck/internal/report"
	"github.com/perfgate/pagecheck/internal/urls"
)

var flagNoReport bool

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline [source...]",
		Short: "Resolve sources, audit, write data files and an HTML report",
		Long: `End-to-end run: resolve URL sources (a single positional source that
looks like a sitemap is treated as one), audit them, write data files,
generate an HTML dashboard and optionally apply a budget.`,
		RunE: runPipelineCmd,
	}
	addSourceFlags(cmd)
	addRunFlags(cmd)
	addOutputFlags(cmd)
	addBudgetFlags(cmd)
	cmd.Flags().BoolVar(&flagNoReport, "no-report", false, "skip the HTML report")
	return cmd
}

func runPipelineCmd(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings(cmd.Flags())
	if err != nil {
		return err
	}
	applyAuditFlags(cmd.Flags(), &s)
	if err := s.Validate(); err != nil {
		return err
	}

	plain := args
	if s.Sitemap == "" && len(args) == 1 && urls.LooksLikeSitemap(args[0]) {
		s.Sitemap = args[0]
		plain = nil
	}

	ctx := cmd.Context()
	targets, err := urls.Load(ctx, urls.Sources{
		Args:          plain,
		File:          s.URLsFile,
		Sitemap:       s.Sitemap,
		SitemapLimit:  s.SitemapLimit,
		SitemapFilter: s.SitemapFilter,
		Stdin:         stdinIfPiped(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Pipeline: analyzing %d URL(s), strategy: %s\n", len(targets), s.Strategy)
	rows, err := runBatch(ctx, s, targets)
	if err != nil {
		return err
	}

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

	if !flagNoReport {
		if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output dir %s: %w", s.OutputDir, err)
		}
		ts := time.Now().UTC().Format("20060102T150405Z")
		htmlPath := filepath.Join(s.OutputDir, ts+"-report.html")
		f, err := os.Create(htmlPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", htmlPath, err)
		}
		err = report.WriteHTML(rows, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("writing HTML report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "  + HTML report: %s\n", htmlPath)
	}

	if s.Budget != "" {
		return applyBudget(ctx, s, rows)
	}
	return nil
}
