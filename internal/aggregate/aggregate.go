// Package aggregate collapses repeated measurements of one
// (URL, strategy) pair into a single representative record using
// order-independent statistics.
package aggregate

import (
	"math"
	"sort"

	"github.com/perfgate/pagecheck/internal/result"
)

// Aggregate groups raw results by (URL, strategy) and folds each
// group into one Representative. Groups appear in first-seen order,
// so the output matches the original URL order regardless of task
// completion order. With runs <= 1 no aggregation math is applied:
// each result passes through unchanged with trivial provenance.
func Aggregate(results []result.Result, runs int) []result.Representative {
	if runs <= 1 {
		reps := make([]result.Representative, len(results))
		for i, r := range results {
			samples := 1
			if r.Failed() {
				samples = 0
			}
			reps[i] = result.Representative{Result: r, SamplesCompleted: samples}
		}
		return reps
	}

	var order []string
	groups := map[string][]result.Result{}
	for _, r := range results {
		key := r.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	reps := make([]result.Representative, 0, len(order))
	for _, key := range order {
		reps = append(reps, fold(groups[key]))
	}
	return reps
}

// fold reduces one group of samples to its representative record.
func fold(samples []result.Result) result.Representative {
	var ok, failed []result.Result
	for _, s := range samples {
		if s.Failed() {
			failed = append(failed, s)
		} else {
			ok = append(ok, s)
		}
	}

	if len(ok) == 0 {
		return result.Representative{
			Result:           result.Failure(failed[0].URL, failed[0].Strategy, failed[0].Err),
			SamplesCompleted: 0,
		}
	}

	rep := result.Representative{
		Result: result.Result{
			URL:        ok[0].URL,
			Strategy:   ok[0].Strategy,
			Metrics:    map[string]float64{},
			Categories: map[string]string{},
		},
		SamplesCompleted: len(ok),
	}

	for _, name := range metricNames(ok) {
		var values []float64
		for _, s := range ok {
			if v, present := s.Metric(name); present {
				values = append(values, v)
			}
		}
		rep.Metrics[name] = result.Round(name, median(values))
	}

	for _, name := range categoryNames(ok) {
		var values []string
		for _, s := range ok {
			if v, present := s.Categories[name]; present {
				values = append(values, v)
			}
		}
		rep.Categories[name] = mode(values)
	}

	var scores []float64
	for _, s := range ok {
		if v, present := s.Metric(result.PrimaryScore); present {
			scores = append(scores, v)
		}
	}
	if len(scores) > 0 {
		rep.SampleSpread = spread(scores)
		rep.SampleVariance = stddev(scores)
	}

	// Most recent measurement wins for the timestamp.
	rep.FetchTime = ok[len(ok)-1].FetchTime
	if raw := ok[len(ok)-1].Raw; raw != nil {
		rep.Raw = raw
	}
	return rep
}

// metricNames returns the union of metric names across samples, in
// first-encountered order.
func metricNames(samples []result.Result) []string {
	var names []string
	seen := map[string]bool{}
	for _, col := range result.MetricColumns() {
		for _, s := range samples {
			if _, present := s.Metrics[col]; present && !seen[col] {
				seen[col] = true
				names = append(names, col)
			}
		}
	}
	// Metrics outside the known column set still aggregate.
	for _, s := range samples {
		for name := range s.Metrics {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func categoryNames(samples []result.Result) []string {
	var names []string
	seen := map[string]bool{}
	for _, col := range result.CategoryColumns() {
		for _, s := range samples {
			if _, present := s.Categories[col]; present && !seen[col] {
				seen[col] = true
				names = append(names, col)
			}
		}
	}
	for _, s := range samples {
		for name := range s.Categories {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// median of values; an even count averages the two middle values.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// mode returns the most frequent value, ties broken by
// first-encountered order.
func mode(values []string) string {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := "", 0
	for _, v := range values {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func spread(values []float64) float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}
