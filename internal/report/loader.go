package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/perfgate/pagecheck/internal/result"
)

// Load reads a previously written report (flat CSV or structured JSON)
// back into rows for the compare, report and budget subcommands.
func Load(path string) ([]result.Representative, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".json":
		return loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported report format %q: use .csv or .json", filepath.Ext(path))
	}
}

func loadCSV(path string) ([]result.Representative, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening report %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("report %s is empty", path)
	}

	header := records[0]
	rows := make([]result.Representative, 0, len(records)-1)
	for _, record := range records[1:] {
		var r result.Representative
		r.SamplesCompleted = 1
		sawSamples := false
		for i, col := range header {
			if i >= len(record) || record[i] == "" {
				continue
			}
			if col == "samples_completed" {
				sawSamples = true
			}
			setCell(&r, col, record[i])
		}
		if r.Failed() && !sawSamples {
			r.SamplesCompleted = 0
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func setCell(r *result.Representative, col, val string) {
	switch col {
	case "url":
		r.URL = val
		return
	case "strategy":
		r.Strategy = val
		return
	case "fetch_time":
		r.FetchTime = val
		return
	case "error":
		r.Err = val
		return
	case "samples_completed":
		if n, err := strconv.Atoi(val); err == nil {
			r.SamplesCompleted = n
		}
		return
	case "sample_spread":
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			r.SampleSpread = v
		}
		return
	case "sample_variance":
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			r.SampleVariance = v
		}
		return
	}
	// Numeric cells become metrics, everything else a category. This
	// keeps the loader tolerant of columns added by newer versions.
	if v, err := strconv.ParseFloat(val, 64); err == nil {
		if r.Metrics == nil {
			r.Metrics = map[string]float64{}
		}
		r.Metrics[col] = v
		return
	}
	if r.Categories == nil {
		r.Categories = map[string]string{}
	}
	r.Categories[col] = val
}

func loadJSON(path string) ([]result.Representative, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening report %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	if doc.Results == nil {
		return nil, fmt.Errorf("report %s has no results section", path)
	}

	rows := make([]result.Representative, 0, len(doc.Results))
	for _, rec := range doc.Results {
		rows = append(rows, flattenRecord(rec))
	}
	return rows, nil
}

func flattenRecord(rec Record) result.Representative {
	var r result.Representative
	r.URL = rec.URL
	r.Strategy = rec.Strategy
	r.SamplesCompleted = 1
	if rec.Error != nil && *rec.Error != "" {
		r.Err = *rec.Error
		r.SamplesCompleted = 0
	}
	if rec.FetchTime != nil {
		r.FetchTime = *rec.FetchTime
	}

	setMetric := func(name string, v *float64) {
		if v == nil {
			return
		}
		if r.Metrics == nil {
			r.Metrics = map[string]float64{}
		}
		r.Metrics[name] = *v
	}
	setMetric("performance_score", rec.PerformanceScore)
	setMetric("accessibility_score", rec.AccessibilityScore)
	setMetric("best_practices_score", rec.BestPracticesScore)
	setMetric("seo_score", rec.SEOScore)

	for name, v := range rec.LabMetrics {
		setMetric(name, &v)
	}
	for name, v := range rec.FieldMetrics {
		switch val := v.(type) {
		case float64:
			setMetric(name, &val)
		case string:
			if r.Categories == nil {
				r.Categories = map[string]string{}
			}
			r.Categories[name] = val
		}
	}

	if rec.Lighthouse != nil {
		r.Raw = rec.Lighthouse
	}
	if rec.SamplesCompleted != nil {
		r.SamplesCompleted = *rec.SamplesCompleted
	}
	if rec.SampleSpread != nil {
		r.SampleSpread = *rec.SampleSpread
	}
	if rec.SampleVariance != nil {
		r.SampleVariance = *rec.SampleVariance
	}
	return r
}
