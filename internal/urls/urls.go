// Package urls resolves the audit target list from CLI args, files,
// stdin and sitemaps, with validation and order-preserving dedupe.
package urls

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/perfgate/pagecheck/internal/sitemap"
)

type Sources struct {
	Args          []string
	File          string
	Sitemap       string
	SitemapLimit  int
	SitemapFilter string
	// Stdin is read when no args and no file are given; nil disables.
	Stdin io.Reader
}

// Validate normalizes a raw URL line. Blank lines and #-comments
// return empty; a missing scheme defaults to https.
func Validate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || !strings.Contains(parsed.Host, ".") {
		return ""
	}
	return raw
}

// Load gathers, validates and dedupes the target list. An empty final
// list is fatal: there is nothing to audit.
func Load(ctx context.Context, src Sources) ([]string, error) {
	var raw []string

	switch {
	case len(src.Args) > 0:
		raw = append(raw, src.Args...)
	case src.File != "":
		lines, err := readLines(src.File)
		if err != nil {
			return nil, fmt.Errorf("reading URL file: %w", err)
		}
		raw = append(raw, lines...)
	case src.Stdin != nil:
		scanner := bufio.NewScanner(src.Stdin)
		for scanner.Scan() {
			raw = append(raw, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	}

	if src.Sitemap != "" {
		found, err := sitemap.Fetch(ctx, sitemap.Opts{
			Source: src.Sitemap,
			Limit:  src.SitemapLimit,
			Filter: src.SitemapFilter,
		})
		if err != nil {
			log.Printf("warning: fetching sitemap %s: %v", src.Sitemap, err)
		}
		raw = append(raw, found...)
	}

	seen := map[string]bool{}
	var validated []string
	for _, line := range raw {
		cleaned := Validate(line)
		if cleaned == "" {
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				log.Printf("warning: skipping invalid URL: %s", trimmed)
			}
			continue
		}
		if !seen[cleaned] {
			seen[cleaned] = true
			validated = append(validated, cleaned)
		}
	}

	if len(validated) == 0 {
		return nil, fmt.Errorf("no valid URLs provided")
	}
	return validated, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// LooksLikeSitemap guesses whether a source string names a sitemap
// rather than a page URL. Used by the pipeline command to auto-detect
// a single positional sitemap argument.
func LooksLikeSitemap(source string) bool {
	lower := strings.ToLower(source)
	if strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, ".xml.gz") {
		return true
	}
	if strings.Contains(lower, "sitemap") {
		return true
	}
	if data, err := os.ReadFile(source); err == nil {
		head := string(data[:min(len(data), 512)])
		head = strings.TrimSpace(head)
		if strings.HasPrefix(head, "<?xml") || strings.Contains(head, "<urlset") || strings.Contains(head, "<sitemapindex") {
			return true
		}
	}
	return false
}
