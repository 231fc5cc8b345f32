// Package report writes audit results to CSV, structured JSON, NDJSON
// and HTML, loads them back for the compare/report/budget subcommands,
// and prints terminal summaries.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/perfgate/pagecheck/internal/result"
)

const ToolVersion = "1.0.0"

// Writer controls where and in which formats result files land.
type Writer struct {
	Format        string // csv, json, or both
	Dir           string
	ExplicitPath  string // when set, overrides Dir naming (extension swapped per format)
	StrategyLabel string
	MultiRun      bool      // include sample provenance columns
	Log           io.Writer // announcements; nil silences them
}

// Write persists rows in the configured formats and an errors.csv side
// file when any row failed. Returns the data file paths written.
func (w *Writer) Write(rows []result.Representative) ([]string, error) {
	var written []string

	if w.Format == "csv" || w.Format == "both" {
		path, err := w.outputPath(w.StrategyLabel, "csv")
		if err != nil {
			return written, err
		}
		if err := writeCSV(rows, path, w.MultiRun); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if w.Format == "json" || w.Format == "both" {
		path, err := w.outputPath(w.StrategyLabel, "json")
		if err != nil {
			return written, err
		}
		if err := writeJSON(rows, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	for _, path := range written {
		w.logf("  + %s\n", path)
	}

	failed := failedRows(rows)
	if len(failed) > 0 {
		path, err := w.errorsPath()
		if err != nil {
			return written, err
		}
		if err := writeErrorsCSV(failed, path); err != nil {
			return written, err
		}
		noun := "URLs"
		if len(failed) == 1 {
			noun = "URL"
		}
		w.logf("  ! %s (%d failed %s)\n", path, len(failed), noun)
	}

	return written, nil
}

func (w *Writer) logf(format string, args ...any) {
	if w.Log != nil {
		fmt.Fprintf(w.Log, format, args...)
	}
}

func (w *Writer) outputPath(label, ext string) (string, error) {
	if w.ExplicitPath != "" {
		base := w.ExplicitPath[:len(w.ExplicitPath)-len(filepath.Ext(w.ExplicitPath))]
		return base + "." + ext, nil
	}
	return timestampedPath(w.Dir, label, ext)
}

func (w *Writer) errorsPath() (string, error) {
	return timestampedPath(w.Dir, "errors", "csv")
}

func timestampedPath(dir, label, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	return filepath.Join(dir, fmt.Sprintf("%s-%s.%s", ts, label, ext)), nil
}

// Columns is the flat column order shared by CSV output and the
// report loader.
func Columns(multiRun bool) []string {
	cols := []string{"url", "strategy"}
	cols = append(cols, result.MetricColumns()...)
	cols = append(cols, result.CategoryColumns()...)
	cols = append(cols, "fetch_time", "error")
	if multiRun {
		cols = append(cols, "samples_completed", "sample_spread", "sample_variance")
	}
	return cols
}

func writeCSV(rows []result.Representative, path string, multiRun bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cols := Columns(multiRun)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		record := make([]string, 0, len(cols))
		for _, col := range cols {
			record = append(record, cellValue(r, col))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

func cellValue(r result.Representative, col string) string {
	switch col {
	case "url":
		return r.URL
	case "strategy":
		return r.Strategy
	case "fetch_time":
		return r.FetchTime
	case "error":
		return r.Err
	case "samples_completed":
		return strconv.Itoa(r.SamplesCompleted)
	case "sample_spread":
		return formatFloat(r.SampleSpread)
	case "sample_variance":
		return formatFloat(r.SampleVariance)
	}
	if v, ok := r.Metrics[col]; ok {
		return formatFloat(v)
	}
	if c, ok := r.Categories[col]; ok {
		return c
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func failedRows(rows []result.Representative) []result.Representative {
	var failed []result.Representative
	for _, r := range rows {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

func writeErrorsCSV(rows []result.Representative, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Write([]string{"url", "strategy", "error"})
	for _, r := range rows {
		cw.Write([]string{r.URL, r.Strategy, r.Err})
	}
	cw.Flush()
	return cw.Error()
}

// Document is the structured JSON report format.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Results  []Record `json:"results"`
}

type Metadata struct {
	GeneratedAt string   `json:"generated_at"`
	TotalURLs   int      `json:"total_urls"`
	Strategies  []string `json:"strategies"`
	ToolVersion string   `json:"tool_version"`
}

// Record is one structured JSON result. Scores sit at the top level,
// lab and field metrics are nested, CrUX categories ride along inside
// field_metrics as strings.
type Record struct {
	URL                string             `json:"url"`
	Strategy           string             `json:"strategy"`
	Error              *string            `json:"error"`
	PerformanceScore   *float64           `json:"performance_score"`
	AccessibilityScore *float64           `json:"accessibility_score,omitempty"`
	BestPracticesScore *float64           `json:"best_practices_score,omitempty"`
	SEOScore           *float64           `json:"seo_score,omitempty"`
	LabMetrics         map[string]float64 `json:"lab_metrics,omitempty"`
	FieldMetrics       map[string]any     `json:"field_metrics,omitempty"`
	FetchTime          *string            `json:"fetch_time"`
	Lighthouse         map[string]any     `json:"lighthouseResult,omitempty"`
	SamplesCompleted   *int               `json:"samples_completed,omitempty"`
	SampleSpread       *float64           `json:"sample_spread,omitempty"`
	SampleVariance     *float64           `json:"sample_variance,omitempty"`
}

func writeJSON(rows []result.Representative, path string) error {
	doc := BuildDocument(rows)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

// BuildDocument assembles the structured JSON document for rows.
func BuildDocument(rows []result.Representative) Document {
	urls := map[string]bool{}
	var strategies []string
	seenStrategy := map[string]bool{}
	records := make([]Record, 0, len(rows))

	for _, r := range rows {
		urls[r.URL] = true
		if !seenStrategy[r.Strategy] {
			seenStrategy[r.Strategy] = true
			strategies = append(strategies, r.Strategy)
		}
		records = append(records, buildRecord(r))
	}

	return Document{
		Metadata: Metadata{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			TotalURLs:   len(urls),
			Strategies:  strategies,
			ToolVersion: ToolVersion,
		},
		Results: records,
	}
}

func buildRecord(r result.Representative) Record {
	rec := Record{URL: r.URL, Strategy: r.Strategy}
	if r.Err != "" {
		rec.Error = &r.Err
	}
	if r.FetchTime != "" {
		rec.FetchTime = &r.FetchTime
	}
	rec.PerformanceScore = metricPtr(r.Result, "performance_score")
	rec.AccessibilityScore = metricPtr(r.Result, "accessibility_score")
	rec.BestPracticesScore = metricPtr(r.Result, "best_practices_score")
	rec.SEOScore = metricPtr(r.Result, "seo_score")

	for _, m := range result.LabMetrics {
		if v, ok := r.Metrics[m.Column]; ok {
			if rec.LabMetrics == nil {
				rec.LabMetrics = map[string]float64{}
			}
			rec.LabMetrics[m.Column] = v
		}
	}
	for _, m := range result.FieldMetrics {
		if v, ok := r.Metrics[m.ValueColumn]; ok {
			if rec.FieldMetrics == nil {
				rec.FieldMetrics = map[string]any{}
			}
			rec.FieldMetrics[m.ValueColumn] = v
		}
		if c, ok := r.Categories[m.CatColumn]; ok {
			if rec.FieldMetrics == nil {
				rec.FieldMetrics = map[string]any{}
			}
			rec.FieldMetrics[m.CatColumn] = c
		}
	}
	if r.Raw != nil {
		rec.Lighthouse = r.Raw
	}
	if r.SamplesCompleted > 1 {
		rec.SamplesCompleted = &r.SamplesCompleted
		rec.SampleSpread = &r.SampleSpread
		rec.SampleVariance = &r.SampleVariance
	}
	return rec
}

func metricPtr(r result.Result, name string) *float64 {
	if v, ok := r.Metrics[name]; ok {
		return &v
	}
	return nil
}

// NDJSONRow serializes one result as a single flat JSON line for
// streaming output. Absent metrics are omitted rather than null.
func NDJSONRow(r result.Result) ([]byte, error) {
	row := map[string]any{
		"url":      r.URL,
		"strategy": r.Strategy,
	}
	if r.Err != "" {
		row["error"] = r.Err
	}
	if r.FetchTime != "" {
		row["fetch_time"] = r.FetchTime
	}
	for name, v := range r.Metrics {
		row[name] = v
	}
	for name, c := range r.Categories {
		row[name] = c
	}
	return json.Marshal(row)
}
