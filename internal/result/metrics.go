package result

import "math"

// PrimaryScore is the headline metric used for spread/variance
// provenance and summary statistics.
const PrimaryScore = "performance_score"

// ScoreMetrics are the Lighthouse category scores (0-100 integers).
var ScoreMetrics = []string{
	"performance_score",
	"accessibility_score",
	"best_practices_score",
	"seo_score",
}

// LabMetric maps a Lighthouse audit ID to its output column.
type LabMetric struct {
	AuditID string
	Column  string
}

var LabMetrics = []LabMetric{
	{"first-contentful-paint", "lab_fcp_ms"},
	{"largest-contentful-paint", "lab_lcp_ms"},
	{"cumulative-layout-shift", "lab_cls"},
	{"speed-index", "lab_speed_index_ms"},
	{"total-blocking-time", "lab_tbt_ms"},
	{"interactive", "lab_tti_ms"},
}

// FieldMetric maps a CrUX API key to its value and category columns.
type FieldMetric struct {
	APIKey      string
	ValueColumn string
	CatColumn   string
}

var FieldMetrics = []FieldMetric{
	{"FIRST_CONTENTFUL_PAINT_MS", "field_fcp_ms", "field_fcp_category"},
	{"LARGEST_CONTENTFUL_PAINT_MS", "field_lcp_ms", "field_lcp_category"},
	{"CUMULATIVE_LAYOUT_SHIFT_SCORE", "field_cls", "field_cls_category"},
	{"INTERACTION_TO_NEXT_PAINT", "field_inp_ms", "field_inp_category"},
	{"FIRST_INPUT_DELAY_MS", "field_fid_ms", "field_fid_category"},
	{"EXPERIMENTAL_TIME_TO_FIRST_BYTE", "field_ttfb_ms", "field_ttfb_category"},
}

// MetricColumns is the flat column order for CSV/JSON output:
// scores, then lab, then field values.
func MetricColumns() []string {
	cols := append([]string{}, ScoreMetrics...)
	for _, m := range LabMetrics {
		cols = append(cols, m.Column)
	}
	for _, m := range FieldMetrics {
		cols = append(cols, m.ValueColumn)
	}
	return cols
}

// CategoryColumns is the flat column order for categorical metrics.
func CategoryColumns() []string {
	cols := make([]string, 0, len(FieldMetrics))
	for _, m := range FieldMetrics {
		cols = append(cols, m.CatColumn)
	}
	return cols
}

// decimals holds the precision convention per metric. Layout-shift
// ratios keep four decimal places; everything else (scores, ms
// timings) is integral. Precision belongs to the metric, not to the
// step that produced the value, so single-sample and aggregated
// values round identically.
var decimals = map[string]int{
	"lab_cls":   4,
	"field_cls": 4,
}

// Round applies a metric's precision convention to a value.
func Round(metric string, v float64) float64 {
	d, ok := decimals[metric]
	if !ok {
		return math.Round(v)
	}
	p := math.Pow(10, float64(d))
	return math.Round(v*p) / p
}
