// Package psi is the PageSpeed Insights API client: one scoring
// request per (URL, strategy) pair, with rate limiting, retry
// classification and backoff. All failure paths come back as data on
// the Result, never as a raised error.
package psi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/perfgate/pagecheck/internal/ratelimit"
	"github.com/perfgate/pagecheck/internal/result"
)

const DefaultAPIURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 2 * time.Second
	attemptTimeout    = 120 * time.Second
)

type Client struct {
	APIURL     string
	APIKey     string
	Categories []string
	MaxRetries int
	BaseDelay  time.Duration
	IncludeRaw bool

	HTTPClient *http.Client
	Gate       *ratelimit.Gate
}

// NewClient returns a client with production defaults. gate may be nil
// when no request spacing is wanted.
func NewClient(apiKey string, categories []string, gate *ratelimit.Gate) *Client {
	return &Client{
		APIURL:     DefaultAPIURL,
		APIKey:     apiKey,
		Categories: categories,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		HTTPClient: &http.Client{Timeout: attemptTimeout},
		Gate:       gate,
	}
}

// outcome classifies one attempt against the remote API.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomePermanent
)

// attempt is the classified product of a single request.
type attempt struct {
	outcome  outcome
	body     *apiResponse
	waitHint time.Duration // Retry-After, rate-limit responses only
	err      error
}

// Fetch analyzes one URL with one strategy. Retryable failures (rate
// limit, transient server fault, network fault) are retried with
// backoff up to MaxRetries; permanent failures and retry exhaustion
// produce a failed Result.
func (c *Client) Fetch(ctx context.Context, pageURL, strategy string) result.Result {
	var lastErr error
	for attemptNum := 0; attemptNum <= c.MaxRetries; attemptNum++ {
		if c.Gate != nil {
			if err := c.Gate.Wait(ctx); err != nil {
				return result.Failure(pageURL, strategy, fmt.Sprintf("canceled: %v", err))
			}
		}

		a := c.do(ctx, pageURL, strategy)
		switch a.outcome {
		case outcomeSuccess:
			return c.extract(a.body, pageURL, strategy)
		case outcomePermanent:
			return result.Failure(pageURL, strategy, a.err.Error())
		}

		lastErr = a.err
		if attemptNum == c.MaxRetries {
			break
		}
		wait := c.BaseDelay * (1 << attemptNum)
		if a.waitHint > wait {
			wait = a.waitHint
		}
		log.Printf("warning: %v, retrying in %s (attempt %d/%d)", a.err, wait, attemptNum+1, c.MaxRetries)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return result.Failure(pageURL, strategy, fmt.Sprintf("canceled: %v", ctx.Err()))
		}
	}
	return result.Failure(pageURL, strategy,
		fmt.Sprintf("failed after %d attempts for %s (%s): %v", c.MaxRetries+1, pageURL, strategy, lastErr))
}

// do issues one request and classifies the response.
func (c *Client) do(ctx context.Context, pageURL, strategy string) attempt {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL, nil)
	if err != nil {
		return attempt{outcome: outcomePermanent, err: fmt.Errorf("building request: %w", err)}
	}
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", strategy)
	for _, cat := range c.Categories {
		q.Add("category", cat)
	}
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Network faults are transient until retries run out.
		return attempt{outcome: outcomeRetryable, err: fmt.Errorf("request error for %s (%s): %w", pageURL, strategy, err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return attempt{outcome: outcomePermanent, err: fmt.Errorf("decoding response for %s (%s): %w", pageURL, strategy, err)}
		}
		if body.Error != nil {
			msg := body.Error.Message
			if msg == "" {
				msg = "unknown API error"
			}
			return attempt{outcome: outcomePermanent, err: fmt.Errorf("API error for %s (%s): %s", pageURL, strategy, msg)}
		}
		if len(body.LighthouseResult) == 0 {
			return attempt{outcome: outcomePermanent, err: fmt.Errorf("no lighthouseResult in API response for %s (%s)", pageURL, strategy)}
		}
		return attempt{outcome: outcomeSuccess, body: &body}

	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		a := attempt{
			outcome: outcomeRetryable,
			err:     fmt.Errorf("HTTP %d for %s (%s)", resp.StatusCode, pageURL, strategy),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			a.waitHint = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return a

	default:
		detail := readErrorDetail(resp.Body)
		return attempt{outcome: outcomePermanent, err: fmt.Errorf("HTTP %d for %s (%s): %s", resp.StatusCode, pageURL, strategy, detail)}
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(header, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	if len(data) > 200 {
		data = data[:200]
	}
	return string(data)
}
