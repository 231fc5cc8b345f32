package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/perfgate/pagecheck/internal/result"
)

var (
	scoreGood = color.New(color.FgGreen, color.Bold)
	scoreMid  = color.New(color.FgYellow, color.Bold)
	scorePoor = color.New(color.FgRed, color.Bold)
	errStyle  = color.New(color.FgRed, color.Bold)
)

// ScoreText renders a score with Lighthouse band coloring: green at
// 90 and above, yellow at 50 and above, red below.
func ScoreText(score float64) string {
	s := fmt.Sprintf("%.0f", score)
	switch {
	case score >= 90:
		return scoreGood.Sprint(s)
	case score >= 50:
		return scoreMid.Sprint(s)
	default:
		return scorePoor.Sprint(s)
	}
}

// Summarize prints URL count, average/min/max performance score and
// the error count for a finished batch.
func Summarize(rows []result.Representative, w io.Writer) {
	urls := map[string]bool{}
	var scores []float64
	errors := 0
	for _, r := range rows {
		urls[r.URL] = true
		if r.Failed() {
			errors++
			continue
		}
		if v, ok := r.Metric(result.PrimaryScore); ok {
			scores = append(scores, v)
		}
	}
	if len(scores) == 0 && errors == 0 {
		return
	}

	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, strings.Repeat("-", 30))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "URLs analyzed\t%d\n", len(urls))
	if len(scores) > 0 {
		sum, min, max := 0.0, scores[0], scores[0]
		for _, s := range scores {
			sum += s
			min = math.Min(min, s)
			max = math.Max(max, s)
		}
		fmt.Fprintf(tw, "Avg score\t%s\n", ScoreText(math.Round(sum/float64(len(scores)))))
		fmt.Fprintf(tw, "Min score\t%s\n", ScoreText(min))
		fmt.Fprintf(tw, "Max score\t%s\n", ScoreText(max))
	}
	if errors > 0 {
		fmt.Fprintf(tw, "Errors\t%s\n", errStyle.Sprint(errors))
	}
	tw.Flush()
}

// PrintDetail renders full per-result metric detail for the check
// subcommand.
func PrintDetail(rows []result.Representative, w io.Writer) {
	for _, r := range rows {
		fmt.Fprintf(w, "\n%s (%s)\n", color.CyanString(r.URL), r.Strategy)
		if r.Failed() {
			fmt.Fprintf(w, "  %s %s\n", errStyle.Sprint("error:"), r.Err)
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, name := range result.ScoreMetrics {
			if v, ok := r.Metric(name); ok {
				fmt.Fprintf(tw, "  %s\t%s\n", metricLabel(name), ScoreText(v))
			}
		}
		for _, m := range result.LabMetrics {
			if v, ok := r.Metric(m.Column); ok {
				fmt.Fprintf(tw, "  %s\t%s\n", metricLabel(m.Column), formatFloat(v))
			}
		}
		for _, m := range result.FieldMetrics {
			v, ok := r.Metric(m.ValueColumn)
			if !ok {
				continue
			}
			line := formatFloat(v)
			if cat, ok := r.Categories[m.CatColumn]; ok {
				line += " (" + cat + ")"
			}
			fmt.Fprintf(tw, "  %s\t%s\n", metricLabel(m.ValueColumn), line)
		}
		if r.SamplesCompleted > 1 {
			fmt.Fprintf(tw, "  samples\t%d (spread %s)\n", r.SamplesCompleted, formatFloat(r.SampleSpread))
		}
		tw.Flush()
	}
}

func metricLabel(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
