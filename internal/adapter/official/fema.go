package official

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// FEMAClient scrapes the FEMA disaster declarations listing.
type FEMAClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFEMAClient creates a FEMA scraper.
func NewFEMAClient(timeout time.Duration) *FEMAClient {
	return &FEMAClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://www.fema.gov",
	}
}

func (c *FEMAClient) Name() string { return "fema" }

// Fetch scrapes disaster declarations matching the location keywords.
func (c *FEMAClient) Fetch(ctx context.Context, keywords []string) ([]domain.OfficialUpdate, error) {
	doc, err := fetchDocument(ctx, c.httpClient, c.baseURL+"/disaster")
	if err != nil {
		return nil, err
	}

	var updates []domain.OfficialUpdate
	doc.Find(".disaster-list-item").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").Text())
		date := strings.TrimSpace(s.Find(".disaster-date").Text())
		description := strings.TrimSpace(s.Find(".disaster-description").Text())
		link, _ := s.Find("a").Attr("href")

		if !keywordMatch(title+" "+description, keywords) {
			return
		}

		update := domain.OfficialUpdate{
			ID:          fmt.Sprintf("fema_%d", i),
			Source:      "FEMA",
			Title:       title,
			Date:        parseDate(date),
			Description: description,
		}
		if link != "" {
			update.URL = c.baseURL + link
		}
		updates = append(updates, update)
	})
	return updates, nil
}
