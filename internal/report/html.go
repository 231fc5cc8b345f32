package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/perfgate/pagecheck/internal/result"
)

// cwvThreshold holds the good/poor cutoffs used to grade Core Web
// Vitals cells in the HTML report.
type cwvThreshold struct {
	Good  float64
	Poor  float64
	Label string
	Unit  string
}

var cwvThresholds = map[string]cwvThreshold{
	"lab_lcp_ms":   {2500, 4000, "LCP", "ms"},
	"lab_cls":      {0.1, 0.25, "CLS", ""},
	"lab_tbt_ms":   {200, 600, "TBT", "ms"},
	"lab_fcp_ms":   {1800, 3000, "FCP", "ms"},
	"field_lcp_ms": {2500, 4000, "LCP", "ms"},
	"field_cls":    {0.1, 0.25, "CLS", ""},
	"field_inp_ms": {200, 500, "INP", "ms"},
}

var cwvColumns = []string{"lab_lcp_ms", "lab_cls", "lab_tbt_ms", "lab_fcp_ms"}

var fieldColumns = []string{"field_lcp_ms", "field_cls", "field_inp_ms", "field_fcp_ms", "field_fid_ms", "field_ttfb_ms"}

var fieldLabels = map[string]string{
	"field_lcp_ms":  "LCP",
	"field_cls":     "CLS",
	"field_inp_ms":  "INP",
	"field_fcp_ms":  "FCP",
	"field_fid_ms":  "FID",
	"field_ttfb_ms": "TTFB",
}

type htmlCell struct {
	Value  string
	Class  string
	Status string
}

type htmlRow struct {
	URL      string
	Strategy string
	Error    string
	Score    *float64
	ScoreBar int // percent width for the score bar
	Cells    []htmlCell
	Field    []htmlCell
}

type htmlData struct {
	GeneratedAt string
	TotalURLs   int
	Strategies  []string
	AvgScore    float64
	BestScore   float64
	WorstScore  float64
	ErrorCount  int
	CWVLabels   []string
	FieldLabels []string
	Rows        []htmlRow
	HasField    bool
}

// WriteHTML renders a self-contained dashboard for rows.
func WriteHTML(rows []result.Representative, w io.Writer) error {
	data := buildHTMLData(rows)
	return dashboardTmpl.Execute(w, data)
}

func buildHTMLData(rows []result.Representative) htmlData {
	urls := map[string]bool{}
	var strategies []string
	seenStrategy := map[string]bool{}
	var scores []float64

	data := htmlData{
		GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
	}
	for _, col := range cwvColumns {
		data.CWVLabels = append(data.CWVLabels, cwvThresholds[col].Label)
	}
	for _, col := range fieldColumns {
		data.FieldLabels = append(data.FieldLabels, fieldLabels[col])
	}

	for _, r := range rows {
		urls[r.URL] = true
		if !seenStrategy[r.Strategy] {
			seenStrategy[r.Strategy] = true
			strategies = append(strategies, r.Strategy)
		}

		row := htmlRow{URL: r.URL, Strategy: r.Strategy, Error: r.Err}
		if !r.Failed() {
			if v, ok := r.Metric(result.PrimaryScore); ok {
				v := v
				row.Score = &v
				row.ScoreBar = int(math.Max(2, v))
				scores = append(scores, v)
			}
			for _, col := range cwvColumns {
				row.Cells = append(row.Cells, cwvCell(r, col))
			}
			for _, col := range fieldColumns {
				cell := cwvCell(r, col)
				if cell.Value != "" {
					data.HasField = true
				}
				row.Field = append(row.Field, cell)
			}
		} else {
			data.ErrorCount++
		}
		data.Rows = append(data.Rows, row)
	}

	data.TotalURLs = len(urls)
	data.Strategies = strategies
	if len(scores) > 0 {
		sum, best, worst := 0.0, scores[0], scores[0]
		for _, s := range scores {
			sum += s
			best = math.Max(best, s)
			worst = math.Min(worst, s)
		}
		data.AvgScore = sum / float64(len(scores))
		data.BestScore = best
		data.WorstScore = worst
	}
	return data
}

func cwvCell(r result.Representative, col string) htmlCell {
	v, ok := r.Metric(col)
	if !ok {
		return htmlCell{Class: "na", Status: "N/A"}
	}
	t, graded := cwvThresholds[col]
	cell := htmlCell{Value: formatFloat(v) + t.Unit}
	if !graded {
		cell.Value = formatFloat(v) + "ms"
		return cell
	}
	switch {
	case v <= t.Good:
		cell.Class, cell.Status = "good", "Pass"
	case v <= t.Poor:
		cell.Class, cell.Status = "needs-work", "Needs Work"
	default:
		cell.Class, cell.Status = "poor", "Fail"
	}
	return cell
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"scoreClass": func(s *float64) string {
		switch {
		case s == nil:
			return "na"
		case *s >= 90:
			return "good"
		case *s >= 50:
			return "needs-work"
		default:
			return "poor"
		}
	},
	"scoreText": func(s *float64) string {
		if s == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.0f", *s)
	},
	"fmt1": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>PageSpeed Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.5rem; }
.meta { color: #777; font-size: 0.85rem; margin-bottom: 1.5rem; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; margin-bottom: 2rem; }
.card { border: 1px solid #ddd; border-radius: 8px; padding: 1rem 1.5rem; min-width: 8rem; }
.card .value { font-size: 1.8rem; font-weight: 700; }
.card .label { color: #777; font-size: 0.8rem; text-transform: uppercase; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
th, td { text-align: left; padding: 0.5rem 0.75rem; border-bottom: 1px solid #eee; font-size: 0.9rem; }
th { background: #fafafa; text-transform: uppercase; font-size: 0.75rem; color: #555; }
.url-cell { max-width: 28rem; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
.good { color: #0cce6b; font-weight: 600; }
.needs-work { color: #ffa400; font-weight: 600; }
.poor { color: #ff4e42; font-weight: 600; }
.na { color: #999; }
.error-cell { color: #ff4e42; }
.bar { background: #eee; border-radius: 4px; height: 8px; width: 10rem; display: inline-block; vertical-align: middle; margin-left: 0.5rem; }
.bar span { display: block; height: 8px; border-radius: 4px; }
.bar .good { background: #0cce6b; }
.bar .needs-work { background: #ffa400; }
.bar .poor { background: #ff4e42; }
</style>
</head>
<body>
<h1>PageSpeed Report</h1>
<div class="meta">Generated {{.GeneratedAt}} · {{.TotalURLs}} URL(s) · strategies: {{range $i, $s := .Strategies}}{{if $i}}, {{end}}{{$s}}{{end}}</div>

<div class="cards">
  <div class="card"><div class="value">{{.TotalURLs}}</div><div class="label">URLs</div></div>
  <div class="card"><div class="value">{{fmt1 .AvgScore}}</div><div class="label">Avg score</div></div>
  <div class="card"><div class="value">{{fmt1 .BestScore}}</div><div class="label">Best</div></div>
  <div class="card"><div class="value">{{fmt1 .WorstScore}}</div><div class="label">Worst</div></div>
  <div class="card"><div class="value">{{.ErrorCount}}</div><div class="label">Errors</div></div>
</div>

<h2>Performance scores</h2>
<table>
<tr><th>URL</th><th>Strategy</th><th>Score</th></tr>
{{range .Rows}}
<tr>
  <td class="url-cell" title="{{.URL}}">{{.URL}}</td>
  <td>{{.Strategy}}</td>
  {{if .Error}}<td class="error-cell">Error: {{.Error}}</td>{{else -}}
  <td><span class="{{scoreClass .Score}}">{{scoreText .Score}}</span>{{if .Score}}<span class="bar"><span class="{{scoreClass .Score}}" style="width: {{.ScoreBar}}%"></span></span>{{end}}</td>
  {{- end}}
</tr>
{{end}}
</table>

<h2>Core Web Vitals (lab)</h2>
<table>
<tr><th>URL</th><th>Strategy</th>{{range .CWVLabels}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}{{if not .Error}}
<tr>
  <td class="url-cell" title="{{.URL}}">{{.URL}}</td>
  <td>{{.Strategy}}</td>
  {{range .Cells}}<td class="{{.Class}}">{{if .Value}}{{.Value}} ({{.Status}}){{else}}N/A{{end}}</td>{{end}}
</tr>
{{end}}{{end}}
</table>

{{if .HasField}}
<h2>Field data (CrUX)</h2>
<table>
<tr><th>URL</th><th>Strategy</th>{{range .FieldLabels}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}{{if not .Error}}
<tr>
  <td class="url-cell" title="{{.URL}}">{{.URL}}</td>
  <td>{{.Strategy}}</td>
  {{range .Field}}<td class="{{.Class}}">{{if .Value}}{{.Value}}{{else}}N/A{{end}}</td>{{end}}
</tr>
{{end}}{{end}}
</table>
{{end}}
</body>
</html>
`))
