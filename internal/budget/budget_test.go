package budget_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfgate/pagecheck/internal/budget"
	"github.com/perfgate/pagecheck/internal/result"
)

func rep(url string, metrics map[string]float64) result.Representative {
	return result.Representative{
		Result:           result.Result{URL: url, Strategy: "mobile", Metrics: metrics},
		SamplesCompleted: 1,
	}
}

func scoreBudget(limit float64) budget.Budget {
	return budget.Budget{
		Name:  "test",
		Rules: []budget.Rule{{Metric: "performance_score", Op: budget.AtLeast, Limit: limit}},
	}
}

func TestEvaluateViolation(t *testing.T) {
	v := budget.Evaluate([]result.Representative{
		rep("a", map[string]float64{"performance_score": 72}),
	}, scoreBudget(90))

	assert.Equal(t, budget.Fail, v.Status)
	require.Len(t, v.Outcomes, 1)
	require.Len(t, v.Outcomes[0].Violations, 1)
	viol := v.Outcomes[0].Violations[0]
	assert.Equal(t, "performance_score", viol.Metric)
	assert.Equal(t, float64(72), viol.Actual)
	assert.Equal(t, float64(90), viol.Limit)
	assert.Equal(t, budget.AtLeast, viol.Operator)
}

func TestEvaluatePass(t *testing.T) {
	v := budget.Evaluate([]result.Representative{
		rep("a", map[string]float64{"performance_score": 95}),
	}, scoreBudget(90))

	assert.Equal(t, budget.Pass, v.Status)
	assert.Equal(t, 1, v.Passed)
	assert.Empty(t, v.Outcomes[0].Violations)
}

func TestEvaluateMaxOperator(t *testing.T) {
	b := budget.Budget{Name: "t", Rules: []budget.Rule{{Metric: "lab_lcp_ms", Op: budget.AtMost, Limit: 2500}}}
	v := budget.Evaluate([]result.Representative{
		rep("fast", map[string]float64{"lab_lcp_ms": 2100}),
		rep("slow", map[string]float64{"lab_lcp_ms": 3900}),
	}, b)

	assert.Equal(t, budget.Fail, v.Status)
	assert.Equal(t, 1, v.Passed)
	assert.Equal(t, 1, v.Failed)
}

func TestEvaluateMissingMetricSkipsRuleForThatPairOnly(t *testing.T) {
	b := budget.Budget{Name: "t", Rules: []budget.Rule{
		{Metric: "performance_score", Op: budget.AtLeast, Limit: 90},
		{Metric: "accessibility_score", Op: budget.AtLeast, Limit: 90},
	}}
	v := budget.Evaluate([]result.Representative{
		rep("no-a11y", map[string]float64{"performance_score": 95}),
		rep("both", map[string]float64{"performance_score": 95, "accessibility_score": 40}),
	}, b)

	assert.Equal(t, budget.Fail, v.Status)
	assert.Equal(t, budget.Pass, v.Outcomes[0].Status, "absent metric must not poison the pair")
	assert.Equal(t, budget.Fail, v.Outcomes[1].Status)
}

func TestEvaluateSkipsErroredPairs(t *testing.T) {
	failed := result.Representative{Result: result.Failure("bad", "mobile", "HTTP 500")}
	v := budget.Evaluate([]result.Representative{
		failed,
		rep("good", map[string]float64{"performance_score": 95}),
	}, scoreBudget(90))

	assert.Equal(t, budget.Pass, v.Status)
	assert.Equal(t, 1, v.ErrorsSkipped)
	assert.Equal(t, 1, v.Total)
}

func TestEvaluateInconclusiveWhenNothingJudged(t *testing.T) {
	failed := result.Representative{Result: result.Failure("bad", "mobile", "HTTP 500")}
	v := budget.Evaluate([]result.Representative{failed}, scoreBudget(90))

	assert.Equal(t, budget.Inconclusive, v.Status)
	assert.Equal(t, 0, v.Total)
	assert.Equal(t, 1, v.ErrorsSkipped)
}

func TestEvaluateEmptyRuleSetPasses(t *testing.T) {
	v := budget.Evaluate([]result.Representative{
		rep("a", map[string]float64{"performance_score": 10}),
	}, budget.Budget{Name: "empty"})

	assert.Equal(t, budget.Pass, v.Status)
}

func TestLoadCWVPreset(t *testing.T) {
	b, err := budget.Load("cwv")
	require.NoError(t, err)
	assert.Equal(t, "Core Web Vitals", b.Name)
	assert.Len(t, b.Rules, 4)
}

func TestLoadBudgetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
meta:
  name: Launch gate
thresholds:
  min_performance_score: 85
  max_lcp_ms: 3000
  max_cls: 0.1
`), 0o644))

	b, err := budget.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Launch gate", b.Name)
	require.Len(t, b.Rules, 3)
	assert.Equal(t, budget.Rule{Metric: "performance_score", Op: budget.AtLeast, Limit: 85}, b.Rules[0])
	assert.Equal(t, budget.Rule{Metric: "lab_lcp_ms", Op: budget.AtMost, Limit: 3000}, b.Rules[1])
}

func TestLoadRejectsUnknownThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  max_bogus: 1\n"), 0o644))
	_, err := budget.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_bogus")
}

func TestFormatText(t *testing.T) {
	v := budget.Evaluate([]result.Representative{
		rep("https://example.com", map[string]float64{"performance_score": 72}),
	}, scoreBudget(90))

	out := budget.FormatText(v)
	assert.Contains(t, out, "Result: FAIL (0 passed, 1 failed, 1 total, 0 skipped)")
	assert.Contains(t, out, "FAIL  https://example.com (mobile)")
	assert.Contains(t, out, "performance_score: 72 (threshold: >= 90)")
}

func TestFormatGitHub(t *testing.T) {
	fail := budget.Evaluate([]result.Representative{
		rep("https://example.com", map[string]float64{"performance_score": 72}),
	}, scoreBudget(90))
	out := budget.FormatGitHub(fail)
	assert.Contains(t, out, "::error::Budget FAIL: https://example.com (mobile)")

	pass := budget.Evaluate([]result.Representative{
		rep("https://example.com", map[string]float64{"performance_score": 99}),
	}, scoreBudget(90))
	assert.Contains(t, budget.FormatGitHub(pass), "::notice::Budget PASS")
}

func TestSendWebhook(t *testing.T) {
	var got budget.Verdict
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, jsonDecode(r, &got))
	}))
	defer srv.Close()

	v := budget.Evaluate([]result.Representative{
		rep("a", map[string]float64{"performance_score": 95}),
	}, scoreBudget(90))
	require.NoError(t, budget.SendWebhook(context.Background(), srv.URL, v))
	assert.Equal(t, budget.Pass, got.Status)
}

func TestSendWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	err := budget.SendWebhook(context.Background(), srv.URL, budget.Verdict{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
