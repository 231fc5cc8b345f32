package budget

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders a verdict for terminal output.
func FormatText(v Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Budget: %s\n", v.BudgetName)
	fmt.Fprintf(&b, "Result: %s (%d passed, %d failed, %d total, %d skipped)\n\n",
		strings.ToUpper(string(v.Status)), v.Passed, v.Failed, v.Total, v.ErrorsSkipped)

	for _, o := range v.Outcomes {
		fmt.Fprintf(&b, "%s  %s (%s)\n", strings.ToUpper(string(o.Status)), o.URL, o.Strategy)
		for _, viol := range o.Violations {
			fmt.Fprintf(&b, "      %s: %s (threshold: %s %s)\n",
				viol.Metric, trimFloat(viol.Actual), viol.Operator, trimFloat(viol.Limit))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatJSON renders a verdict as indented JSON.
func FormatJSON(v Verdict) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling verdict: %w", err)
	}
	return string(data), nil
}

// FormatGitHub renders a verdict as GitHub Actions workflow
// annotations: one error per violation, or a single notice on pass.
func FormatGitHub(v Verdict) string {
	var lines []string
	for _, o := range v.Outcomes {
		if o.Status != Fail {
			continue
		}
		for _, viol := range o.Violations {
			lines = append(lines, fmt.Sprintf(
				"::error::Budget FAIL: %s (%s) - %s=%s (%s %s)",
				o.URL, o.Strategy, viol.Metric, trimFloat(viol.Actual), viol.Operator, trimFloat(viol.Limit)))
		}
	}
	if len(lines) == 0 && v.Status == Pass {
		lines = append(lines, fmt.Sprintf("::notice::Budget PASS: %s", v.BudgetName))
	}
	return strings.Join(lines, "\n")
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
