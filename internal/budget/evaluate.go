package budget

import (
	"log"

	"github.com/perfgate/pagecheck/internal/result"
)

// Status is the judgment for one pair or for the whole batch.
type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
	// Inconclusive means nothing could be judged (every pair errored
	// out). Callers must not treat it as a pass; it maps to an
	// operational-error exit, not the budget-failure exit.
	Inconclusive Status = "inconclusive"
)

// Violation records one threshold breach.
type Violation struct {
	Metric   string   `json:"metric"`
	Actual   float64  `json:"actual"`
	Limit    float64  `json:"threshold"`
	Operator Operator `json:"operator"`
}

// Outcome is the judgment of one (URL, strategy) pair.
type Outcome struct {
	URL        string      `json:"url"`
	Strategy   string      `json:"strategy"`
	Status     Status      `json:"verdict"`
	Violations []Violation `json:"violations"`
}

// Verdict is the full judgment of a batch against one budget.
type Verdict struct {
	BudgetName    string    `json:"budget_name"`
	Status        Status    `json:"verdict"`
	Passed        int       `json:"passed"`
	Failed        int       `json:"failed"`
	Total         int       `json:"total"`
	ErrorsSkipped int       `json:"errors_skipped"`
	Outcomes      []Outcome `json:"results"`
}

// Evaluate judges each representative result against the budget.
// Pairs with no completed samples are skipped (counted separately,
// never folded into pass/fail), and rules whose metric is absent on a
// pair are skipped for that pair only.
func Evaluate(reps []result.Representative, b Budget) Verdict {
	v := Verdict{BudgetName: b.Name, Outcomes: []Outcome{}}

	if len(b.Rules) == 0 {
		log.Printf("warning: budget %q has no thresholds defined, every judged pair passes", b.Name)
	}

	for _, rep := range reps {
		if rep.SamplesCompleted == 0 {
			v.ErrorsSkipped++
			continue
		}

		outcome := Outcome{URL: rep.URL, Strategy: rep.Strategy, Status: Pass, Violations: []Violation{}}
		for _, rule := range b.Rules {
			actual, ok := rep.Metric(rule.Metric)
			if !ok {
				continue
			}
			if violates(rule, actual) {
				outcome.Violations = append(outcome.Violations, Violation{
					Metric:   rule.Metric,
					Actual:   actual,
					Limit:    rule.Limit,
					Operator: rule.Op,
				})
			}
		}
		if len(outcome.Violations) > 0 {
			outcome.Status = Fail
			v.Failed++
		} else {
			v.Passed++
		}
		v.Outcomes = append(v.Outcomes, outcome)
	}

	v.Total = v.Passed + v.Failed
	switch {
	case v.Failed > 0:
		v.Status = Fail
	case v.Total > 0:
		v.Status = Pass
	default:
		v.Status = Inconclusive
	}
	return v
}

func violates(rule Rule, actual float64) bool {
	switch rule.Op {
	case AtLeast:
		return actual < rule.Limit
	case AtMost:
		return actual > rule.Limit
	}
	return false
}
