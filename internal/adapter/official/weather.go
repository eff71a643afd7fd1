package official

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// WeatherClient reads the National Weather Service active alerts feed.
type WeatherClient struct {
	parser  *gofeed.Parser
	feedURL string
}

// NewWeatherClient creates an NWS alert feed client.
func NewWeatherClient(timeout time.Duration) *WeatherClient {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}
	return &WeatherClient{
		parser:  parser,
		feedURL: "https://api.weather.gov/alerts/active.atom",
	}
}

func (c *WeatherClient) Name() string { return "weather" }

// Fetch reads active alerts matching the location keywords. CAP severity is
// carried through when the feed provides it.
func (c *WeatherClient) Fetch(ctx context.Context, keywords []string) ([]domain.OfficialUpdate, error) {
	feed, err := c.parser.ParseURLWithContext(c.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse alert feed: %w", err)
	}

	var updates []domain.OfficialUpdate
	for i, item := range feed.Items {
		if !keywordMatch(item.Title+" "+item.Description, keywords) {
			continue
		}

		var date time.Time
		if item.UpdatedParsed != nil {
			date = *item.UpdatedParsed
		} else if item.PublishedParsed != nil {
			date = *item.PublishedParsed
		}

		updates = append(updates, domain.OfficialUpdate{
			ID:          fmt.Sprintf("weather_%d", i),
			Source:      "National Weather Service",
			Title:       item.Title,
			Date:        date,
			Description: item.Description,
			URL:         item.Link,
			Severity:    capSeverity(item),
		})
	}
	return updates, nil
}

// capSeverity pulls the cap:severity extension from an alert item.
func capSeverity(item *gofeed.Item) string {
	caps, ok := item.Extensions["cap"]
	if !ok {
		return ""
	}
	sevs, ok := caps["severity"]
	if !ok || len(sevs) == 0 {
		return ""
	}
	return sevs[0].Value
}
