package result

// Task is one unit of work: analyze a single URL with one strategy.
// Run distinguishes repeated measurements of the same (URL, strategy)
// pair when multi-run sampling is requested.
type Task struct {
	URL      string
	Strategy string
	Run      int
}

// Key identifies the (URL, strategy) pair a task or result belongs to.
func (t Task) Key() string { return t.URL + "|" + t.Strategy }

// Result is the outcome of executing one Task. On failure Err is
// non-empty and the metric maps are empty.
type Result struct {
	URL        string             `json:"url"`
	Strategy   string             `json:"strategy"`
	Err        string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Categories map[string]string  `json:"categories,omitempty"`
	FetchTime  string             `json:"fetch_time,omitempty"`

	// Raw holds the unparsed lighthouseResult when requested (--full).
	// Excluded from CSV output.
	Raw map[string]any `json:"lighthouseResult,omitempty"`
}

func (r Result) Key() string { return r.URL + "|" + r.Strategy }

// Failed reports whether this result carries an error instead of data.
func (r Result) Failed() bool { return r.Err != "" }

// Metric returns a metric value and whether it is present.
func (r Result) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// Representative is the one-per-(URL, strategy) record produced by
// multi-sample aggregation. With a single run it is the raw result
// plus trivial provenance.
type Representative struct {
	Result
	SamplesCompleted int     `json:"samples_completed"`
	SampleSpread     float64 `json:"sample_spread"`
	SampleVariance   float64 `json:"sample_variance"`
}

// Failure builds a failed Result for a task.
func Failure(url, strategy, msg string) Result {
	return Result{URL: url, Strategy: strategy, Err: msg}
}
