package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgate/pagecheck/internal/result"
)

func sampleRows() []result.Representative {
	return []result.Representative{
		{
			Result: result.Result{
				URL:      "https://example.com",
				Strategy: "mobile",
				Metrics: map[string]float64{
					"performance_score": 92,
					"seo_score":         100,
					"lab_lcp_ms":        2413,
					"lab_cls":           0.0422,
					"field_lcp_ms":      2300,
				},
				Categories: map[string]string{"field_lcp_category": "FAST"},
				FetchTime:  "2026-08-29T10:00:00Z",
			},
			SamplesCompleted: 1,
		},
		{
			Result:           result.Failure("https://broken.example.com", "mobile", "failed after 4 attempts"),
			SamplesCompleted: 0,
		},
	}
}

func TestColumnsOrder(t *testing.T) {
	cols := Columns(false)
	assert.Equal(t, "url", cols[0])
	assert.Equal(t, "strategy", cols[1])
	assert.Equal(t, "performance_score", cols[2])
	assert.Equal(t, "error", cols[len(cols)-1])
	assert.NotContains(t, cols, "samples_completed")

	multi := Columns(true)
	assert.Equal(t, "sample_variance", multi[len(multi)-1])
}

func TestWriteCSVAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Format: "csv", Dir: dir, StrategyLabel: "mobile"}
	written, err := w.Write(sampleRows())
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.True(t, strings.HasSuffix(written[0], "-mobile.csv"))

	rows, err := Load(written[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ok := rows[0]
	assert.Equal(t, "https://example.com", ok.URL)
	assert.Equal(t, 92.0, ok.Metrics["performance_score"])
	assert.Equal(t, 0.0422, ok.Metrics["lab_cls"])
	assert.Equal(t, "FAST", ok.Categories["field_lcp_category"])
	assert.Equal(t, 1, ok.SamplesCompleted)

	failed := rows[1]
	assert.True(t, failed.Failed())
	assert.Equal(t, 0, failed.SamplesCompleted)

	// errors.csv side file appears alongside the data file
	matches, err := filepath.Glob(filepath.Join(dir, "*-errors.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://broken.example.com")
	assert.Contains(t, string(data), "failed after 4 attempts")
}

func TestWriteJSONAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{Format: "json", Dir: dir, StrategyLabel: "mobile"}
	written, err := w.Write(sampleRows())
	require.NoError(t, err)
	require.Len(t, written, 1)

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, float64(2), meta["total_urls"])
	assert.Equal(t, ToolVersion, meta["tool_version"])

	rows, err := Load(written[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2413.0, rows[0].Metrics["lab_lcp_ms"])
	assert.Equal(t, "FAST", rows[0].Categories["field_lcp_category"])
	assert.True(t, rows[1].Failed())
	assert.Equal(t, 0, rows[1].SamplesCompleted)
}

func TestWriteBothFormats(t *testing.T) {
	w := &Writer{Format: "both", Dir: t.TempDir(), StrategyLabel: "both"}
	written, err := w.Write(sampleRows())
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.True(t, strings.HasSuffix(written[0], ".csv"))
	assert.True(t, strings.HasSuffix(written[1], ".json"))
}

func TestExplicitPathSwapsExtension(t *testing.T) {
	dir := t.TempDir()
	w := &Writer{
		Format:        "json",
		Dir:           dir,
		ExplicitPath:  filepath.Join(dir, "out.csv"),
		StrategyLabel: "mobile",
	}
	written, err := w.Write(sampleRows()[:1])
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, filepath.Join(dir, "out.json"), written[0])
}

func TestBuildDocumentNesting(t *testing.T) {
	rows := sampleRows()
	rows[0].SamplesCompleted = 3
	rows[0].SampleSpread = 4
	rows[0].SampleVariance = 1.63

	doc := BuildDocument(rows)
	require.Len(t, doc.Results, 2)

	rec := doc.Results[0]
	require.NotNil(t, rec.PerformanceScore)
	assert.Equal(t, 92.0, *rec.PerformanceScore)
	assert.Equal(t, 2413.0, rec.LabMetrics["lab_lcp_ms"])
	assert.Equal(t, 2300.0, rec.FieldMetrics["field_lcp_ms"])
	assert.Equal(t, "FAST", rec.FieldMetrics["field_lcp_category"])
	require.NotNil(t, rec.SamplesCompleted)
	assert.Equal(t, 3, *rec.SamplesCompleted)

	errRec := doc.Results[1]
	require.NotNil(t, errRec.Error)
	assert.Nil(t, errRec.PerformanceScore)
	assert.Nil(t, errRec.LabMetrics)
}

func TestNDJSONRow(t *testing.T) {
	line, err := NDJSONRow(sampleRows()[0].Result)
	require.NoError(t, err)
	var row map[string]any
	require.NoError(t, json.Unmarshal(line, &row))
	assert.Equal(t, "https://example.com", row["url"])
	assert.Equal(t, 92.0, row["performance_score"])
	assert.Equal(t, "FAST", row["field_lcp_category"])
	_, hasErr := row["error"]
	assert.False(t, hasErr)

	line, err = NDJSONRow(sampleRows()[1].Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(line, &row))
	assert.Equal(t, "failed after 4 attempts", row["error"])
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load("report.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}

func TestSummarize(t *testing.T) {
	color.NoColor = true
	rows := sampleRows()
	rows = append(rows, result.Representative{
		Result: result.Result{
			URL:      "https://other.example.com",
			Strategy: "mobile",
			Metrics:  map[string]float64{"performance_score": 48},
		},
		SamplesCompleted: 1,
	})

	var buf bytes.Buffer
	Summarize(rows, &buf)
	out := buf.String()
	assert.Contains(t, out, "URLs analyzed")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "Avg score")
	assert.Contains(t, out, "70")
	assert.Contains(t, out, "Min score")
	assert.Contains(t, out, "48")
	assert.Contains(t, out, "Errors")
}

func TestCompare(t *testing.T) {
	mk := func(url string, score float64) result.Representative {
		return result.Representative{
			Result: result.Result{
				URL:      url,
				Strategy: "mobile",
				Metrics:  map[string]float64{"performance_score": score},
			},
			SamplesCompleted: 1,
		}
	}
	before := []result.Representative{mk("https://a.example.com", 90), mk("https://b.example.com", 80), mk("https://gone.example.com", 70)}
	after := []result.Representative{mk("https://a.example.com", 82), mk("https://b.example.com", 88), mk("https://new.example.com", 95)}

	c := Compare(before, after, 5)
	assert.Equal(t, 1, c.Regressions)
	assert.Equal(t, 1, c.Improvements)
	assert.Equal(t, 80.0, c.BeforeAvg)
	assert.InDelta(t, 88.33, c.AfterAvg, 0.01)
	require.Len(t, c.Rows, 4)

	var buf bytes.Buffer
	c.WriteText(&buf)
	out := buf.String()
	assert.Contains(t, out, "GONE")
	assert.Contains(t, out, "NEW")
	assert.Contains(t, out, "!!")
	assert.Contains(t, out, "++")
	assert.Contains(t, out, "Regressions")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(sampleRows(), &buf))
	out := buf.String()
	assert.Contains(t, out, "https://example.com")
	assert.Contains(t, out, "Core Web Vitals")
	assert.Contains(t, out, `class="good"`)
	assert.Contains(t, out, "Error: failed after 4 attempts")
	assert.Contains(t, out, "Field data (CrUX)")
}
