// Package sitemap extracts page URLs from sitemap.xml sources,
// following sitemap index files recursively.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	fetchTimeout = 30 * time.Second
	maxDepth     = 3
)

type Opts struct {
	Source string // URL or local file path
	Limit  int    // max URLs returned, 0 = unlimited
	Filter string // regex, keeps matches
}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []loc    `xml:"url"`
}

type sitemapindex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []loc    `xml:"sitemap"`
}

type loc struct {
	Loc string `xml:"loc"`
}

// Fetch loads a sitemap from a URL or file, recursing into child
// sitemaps of an index concurrently up to a fixed depth, then applies
// the filter and limit.
func Fetch(ctx context.Context, opts Opts) ([]string, error) {
	var filter *regexp.Regexp
	if opts.Filter != "" {
		var err error
		filter, err = regexp.Compile(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid sitemap filter regex %q: %w", opts.Filter, err)
		}
	}

	content, err := fetchContent(ctx, opts.Source)
	if err != nil {
		return nil, err
	}
	urls, err := parse(ctx, content, 0)
	if err != nil {
		return nil, err
	}

	if filter != nil {
		var kept []string
		for _, u := range urls {
			if filter.MatchString(u) {
				kept = append(kept, u)
			}
		}
		urls = kept
	}
	if opts.Limit > 0 && len(urls) > opts.Limit {
		urls = urls[:opts.Limit]
	}
	return urls, nil
}

func fetchContent(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("building sitemap request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching sitemap %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching sitemap %s: HTTP %d", source, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading sitemap file: %w", err)
	}
	return data, nil
}

// parse handles both <urlset> and <sitemapindex> roots. Children of
// an index are fetched in parallel; a failed child is a warning, not
// a batch failure.
func parse(ctx context.Context, content []byte, depth int) ([]string, error) {
	if depth >= maxDepth {
		log.Printf("warning: max sitemap depth (%d) reached, stopping recursion", maxDepth)
		return nil, nil
	}

	var index sitemapindex
	if err := xml.Unmarshal(content, &index); err == nil && len(index.Sitemaps) > 0 {
		// Children fetch in parallel but land in index order so the
		// final URL list stays deterministic.
		perChild := make([][]string, len(index.Sitemaps))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, child := range index.Sitemaps {
			childURL := strings.TrimSpace(child.Loc)
			if childURL == "" {
				continue
			}
			i := i
			g.Go(func() error {
				content, err := fetchContent(gctx, childURL)
				if err != nil {
					log.Printf("warning: failed to fetch child sitemap %s: %v", childURL, err)
					return nil
				}
				childURLs, err := parse(gctx, content, depth+1)
				if err != nil {
					log.Printf("warning: failed to parse child sitemap %s: %v", childURL, err)
					return nil
				}
				perChild[i] = childURLs
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		var urls []string
		for _, childURLs := range perChild {
			urls = append(urls, childURLs...)
		}
		return urls, nil
	}

	var set urlset
	if err := xml.Unmarshal(content, &set); err != nil {
		return nil, fmt.Errorf("malformed sitemap XML: %w", err)
	}
	var urls []string
	for _, u := range set.URLs {
		if trimmed := strings.TrimSpace(u.Loc); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls, nil
}
