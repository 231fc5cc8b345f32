// Package budget judges representative results against named
// threshold rule sets and renders the verdict for humans, CI and
// webhooks.
package budget

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Operator compares an actual metric value to a limit.
type Operator string

const (
	AtLeast Operator = ">="
	AtMost  Operator = "<="
)

// Rule is one threshold: metric must satisfy `actual Op limit`.
type Rule struct {
	Metric string
	Op     Operator
	Limit  float64
}

// Budget is a named collection of threshold rules.
type Budget struct {
	Name  string
	Rules []Rule
}

// thresholdKeys maps budget-file threshold keys to the metric they
// constrain and the comparison direction.
var thresholdKeys = []struct {
	Key    string
	Metric string
	Op     Operator
}{
	{"min_performance_score", "performance_score", AtLeast},
	{"min_accessibility_score", "accessibility_score", AtLeast},
	{"min_best_practices_score", "best_practices_score", AtLeast},
	{"min_seo_score", "seo_score", AtLeast},
	{"max_lcp_ms", "lab_lcp_ms", AtMost},
	{"max_cls", "lab_cls", AtMost},
	{"max_tbt_ms", "lab_tbt_ms", AtMost},
	{"max_fcp_ms", "lab_fcp_ms", AtMost},
}

// CWVPreset is the built-in Core Web Vitals budget: the "good" band
// thresholds for the lab metrics.
func CWVPreset() Budget {
	return Budget{
		Name: "Core Web Vitals",
		Rules: []Rule{
			{Metric: "lab_lcp_ms", Op: AtMost, Limit: 2500},
			{Metric: "lab_cls", Op: AtMost, Limit: 0.1},
			{Metric: "lab_tbt_ms", Op: AtMost, Limit: 200},
			{Metric: "lab_fcp_ms", Op: AtMost, Limit: 1800},
		},
	}
}

type budgetFile struct {
	Meta struct {
		Name string `yaml:"name"`
	} `yaml:"meta"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// Load reads a budget from a YAML file, or returns the built-in
// preset when source is "cwv".
func Load(source string) (Budget, error) {
	if source == "cwv" {
		return CWVPreset(), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return Budget{}, fmt.Errorf("reading budget file %s: %w", source, err)
	}
	var file budgetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Budget{}, fmt.Errorf("parsing budget file %s: %w", source, err)
	}

	b := Budget{Name: file.Meta.Name}
	if b.Name == "" {
		b.Name = "Performance budget"
	}
	for _, tk := range thresholdKeys {
		limit, ok := file.Thresholds[tk.Key]
		if !ok {
			continue
		}
		b.Rules = append(b.Rules, Rule{Metric: tk.Metric, Op: tk.Op, Limit: limit})
	}
	for key := range file.Thresholds {
		if !knownThresholdKey(key) {
			return Budget{}, fmt.Errorf("budget file %s: unknown threshold %q", source, key)
		}
	}
	return b, nil
}

func knownThresholdKey(key string) bool {
	for _, tk := range thresholdKeys {
		if tk.Key == key {
			return true
		}
	}
	return false
}
