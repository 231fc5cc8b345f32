package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/perfgate/pagecheck/internal/result"
)

// ScoreDelta is one score's movement for a (URL, strategy) pair.
// Before or After is nil when the pair is missing on that side.
type ScoreDelta struct {
	Metric string
	Before *float64
	After  *float64
}

// CompareRow is the merged view of one pair across two reports.
type CompareRow struct {
	URL      string
	Strategy string
	Deltas   []ScoreDelta
}

// Comparison is the result of merging two reports on (url, strategy).
type Comparison struct {
	Rows         []CompareRow
	ScoreMetrics []string
	Threshold    float64
	BeforeAvg    float64
	AfterAvg     float64
	Regressions  int
	Improvements int
}

// Compare merges two reports on (url, strategy); pairs present only in
// one report still appear, flagged NEW or GONE. Regressions and
// improvements count primary-score moves of at least threshold points.
func Compare(before, after []result.Representative, threshold float64) Comparison {
	c := Comparison{Threshold: threshold}

	metricPresent := map[string]bool{}
	for _, rows := range [][]result.Representative{before, after} {
		for _, r := range rows {
			for _, m := range result.ScoreMetrics {
				if _, ok := r.Metric(m); ok {
					metricPresent[m] = true
				}
			}
		}
	}
	for _, m := range result.ScoreMetrics {
		if m == result.PrimaryScore || metricPresent[m] {
			c.ScoreMetrics = append(c.ScoreMetrics, m)
		}
	}

	beforeByKey := map[string]result.Representative{}
	for _, r := range before {
		beforeByKey[r.Key()] = r
	}
	afterByKey := map[string]result.Representative{}
	for _, r := range after {
		afterByKey[r.Key()] = r
	}

	// before order first, then pairs new in after
	var keys []string
	seen := map[string]bool{}
	for _, r := range before {
		if !seen[r.Key()] {
			seen[r.Key()] = true
			keys = append(keys, r.Key())
		}
	}
	for _, r := range after {
		if !seen[r.Key()] {
			seen[r.Key()] = true
			keys = append(keys, r.Key())
		}
	}

	var beforeSum, afterSum float64
	var beforeN, afterN int
	for _, key := range keys {
		b, hasBefore := beforeByKey[key]
		a, hasAfter := afterByKey[key]

		row := CompareRow{}
		if hasBefore {
			row.URL, row.Strategy = b.URL, b.Strategy
		} else {
			row.URL, row.Strategy = a.URL, a.Strategy
		}

		for _, m := range c.ScoreMetrics {
			d := ScoreDelta{Metric: m}
			if hasBefore {
				if v, ok := b.Metric(m); ok {
					d.Before = &v
				}
			}
			if hasAfter {
				if v, ok := a.Metric(m); ok {
					d.After = &v
				}
			}
			if m == result.PrimaryScore {
				if d.Before != nil {
					beforeSum += *d.Before
					beforeN++
				}
				if d.After != nil {
					afterSum += *d.After
					afterN++
				}
				if d.Before != nil && d.After != nil {
					delta := *d.After - *d.Before
					if delta <= -threshold {
						c.Regressions++
					} else if delta >= threshold {
						c.Improvements++
					}
				}
			}
			row.Deltas = append(row.Deltas, d)
		}
		c.Rows = append(c.Rows, row)
	}

	if beforeN > 0 {
		c.BeforeAvg = beforeSum / float64(beforeN)
	}
	if afterN > 0 {
		c.AfterAvg = afterSum / float64(afterN)
	}
	return c
}

// WriteText renders the comparison as an aligned table with a summary.
func (c Comparison) WriteText(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := "URL\tSTRATEGY"
	for _, m := range c.ScoreMetrics {
		label := strings.ToUpper(strings.ReplaceAll(strings.TrimSuffix(m, "_score"), "_", " "))
		header += fmt.Sprintf("\t%s BEFORE\tAFTER\tDELTA", label)
	}
	fmt.Fprintln(tw, header)

	for _, row := range c.Rows {
		line := fmt.Sprintf("%s\t%s", truncateURL(row.URL), row.Strategy)
		for _, d := range row.Deltas {
			line += "\t" + formatDelta(d, c.Threshold)
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Before avg: %.1f\n", c.BeforeAvg)
	fmt.Fprintf(w, "  After avg:  %.1f\n", c.AfterAvg)
	delta := c.AfterAvg - c.BeforeAvg
	fmt.Fprintf(w, "  Change:     %+.1f (%s)\n", delta, direction(delta))
	fmt.Fprintf(w, "  Regressions (>= %g point drop): %d\n", c.Threshold, c.Regressions)
	fmt.Fprintf(w, "  Improvements (>= %g point gain): %d\n", c.Threshold, c.Improvements)
	fmt.Fprintf(w, "\n  Legend: !! = regression, ++ = improvement\n")
}

func formatDelta(d ScoreDelta, threshold float64) string {
	switch {
	case d.Before == nil && d.After == nil:
		return "N/A\tN/A\t"
	case d.Before == nil:
		return fmt.Sprintf("N/A\t%.0f\tNEW", *d.After)
	case d.After == nil:
		return fmt.Sprintf("%.0f\tN/A\tGONE", *d.Before)
	}
	delta := *d.After - *d.Before
	mark := ""
	if math.Abs(delta) >= threshold {
		if delta < 0 {
			mark = " !!"
		} else {
			mark = " ++"
		}
	}
	return fmt.Sprintf("%.0f\t%.0f\t%+.0f%s", *d.Before, *d.After, delta, mark)
}

func direction(delta float64) string {
	switch {
	case delta > 0:
		return "improvement"
	case delta < 0:
		return "regression"
	default:
		return "no change"
	}
}

func truncateURL(url string) string {
	if len(url) > 50 {
		return url[:47] + "..."
	}
	return url
}
