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

// RedCrossClient scrapes the Red Cross disaster relief updates page.
type RedCrossClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewRedCrossClient creates a Red Cross scraper.
func NewRedCrossClient(timeout time.Duration) *RedCrossClient {
	return &RedCrossClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://www.redcross.org",
	}
}

func (c *RedCrossClient) Name() string { return "redcross" }

// Fetch scrapes relief updates matching the location keywords.
func (c *RedCrossClient) Fetch(ctx context.Context, keywords []string) ([]domain.OfficialUpdate, error) {
	doc, err := fetchDocument(ctx, c.httpClient, c.baseURL+"/get-help/disaster-relief-and-recovery-services.html")
	if err != nil {
		return nil, err
	}

	var updates []domain.OfficialUpdate
	doc.Find(".disaster-update").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".update-title").Text())
		date := strings.TrimSpace(s.Find(".update-date").Text())
		description := strings.TrimSpace(s.Find(".update-content").Text())
		link, _ := s.Find(".update-link").Attr("href")

		if !keywordMatch(title+" "+description, keywords) {
			return
		}

		updates = append(updates, domain.OfficialUpdate{
			ID:          fmt.Sprintf("redcross_%d", i),
			Source:      "Red Cross",
			Title:       title,
			Date:        parseDate(date),
			Description: description,
			URL:         link,
		})
	})
	return updates, nil
}
