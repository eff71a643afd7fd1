// Package official contains clients for official agency sources. The FEMA
// and Red Cross clients scrape HTML listings; the weather client reads the
// NWS alert feed. All of them normalize into domain.OfficialUpdate and
// filter by location keywords at fetch time.
package official

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "disaster-aggregator/1.0"

// keywordMatch reports whether any keyword appears in the text, case
// insensitively. An empty keyword list matches everything.
func keywordMatch(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// parseDate tries the date formats the agency pages use. A zero time is
// returned when none match; callers keep the update either way.
func parseDate(raw string) time.Time {
	layouts := []string{
		time.RFC3339,
		"January 2, 2006",
		"Jan 2, 2006",
		"01/02/2006",
		"2006-01-02",
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// fetchDocument retrieves a page and parses it for selector queries.
func fetchDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
