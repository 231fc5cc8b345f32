package psi

import (
	"encoding/json"
	"strings"

	"github.com/perfgate/pagecheck/internal/result"
)

type apiResponse struct {
	Error             *apiError         `json:"error"`
	LighthouseResult  json.RawMessage   `json:"lighthouseResult"`
	LoadingExperience loadingExperience `json:"loadingExperience"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lighthouseResult struct {
	Categories map[string]lighthouseCategory `json:"categories"`
	Audits     map[string]lighthouseAudit    `json:"audits"`
	FetchTime  string                        `json:"fetchTime"`
}

type lighthouseCategory struct {
	Score *float64 `json:"score"`
}

type lighthouseAudit struct {
	NumericValue *float64 `json:"numericValue"`
}

type loadingExperience struct {
	Metrics map[string]fieldMetric `json:"metrics"`
}

type fieldMetric struct {
	Percentile *float64 `json:"percentile"`
	Category   string   `json:"category"`
}

// extract pulls the flat metric row out of a successful API response.
func (c *Client) extract(body *apiResponse, pageURL, strategy string) result.Result {
	res := result.Result{
		URL:        pageURL,
		Strategy:   strategy,
		Metrics:    map[string]float64{},
		Categories: map[string]string{},
	}

	var lh lighthouseResult
	if err := json.Unmarshal(body.LighthouseResult, &lh); err != nil {
		return result.Failure(pageURL, strategy, "malformed lighthouseResult: "+err.Error())
	}
	res.FetchTime = lh.FetchTime

	// Category scores come back 0..1; reported 0..100.
	for apiKey, cat := range lh.Categories {
		if cat.Score == nil {
			continue
		}
		col := strings.ReplaceAll(apiKey, "-", "_") + "_score"
		res.Metrics[col] = result.Round(col, *cat.Score*100)
	}

	for _, m := range result.LabMetrics {
		audit, ok := lh.Audits[m.AuditID]
		if !ok || audit.NumericValue == nil {
			continue
		}
		res.Metrics[m.Column] = result.Round(m.Column, *audit.NumericValue)
	}

	for _, m := range result.FieldMetrics {
		fm, ok := body.LoadingExperience.Metrics[m.APIKey]
		if !ok {
			continue
		}
		if fm.Percentile != nil {
			v := *fm.Percentile
			// The API reports CLS percentiles multiplied by 100.
			if strings.Contains(m.APIKey, "CUMULATIVE_LAYOUT_SHIFT") {
				v /= 100
			}
			res.Metrics[m.ValueColumn] = result.Round(m.ValueColumn, v)
		}
		if fm.Category != "" {
			res.Categories[m.CatColumn] = fm.Category
		}
	}

	if c.IncludeRaw {
		var raw map[string]any
		if json.Unmarshal(body.LighthouseResult, &raw) == nil {
			res.Raw = raw
		}
	}
	return res
}
