// Package social contains the HTTP clients for social feed providers. Each
// client normalizes provider posts into domain.SocialSignal; priority is left
// unset and recomputed by the aggregator so classification is uniform across
// platforms.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// TwitterClient searches recent tweets via the v2 recent-search endpoint.
type TwitterClient struct {
	bearerToken string
	httpClient  *http.Client
	baseURL     string
}

// NewTwitterClient creates a Twitter search client.
func NewTwitterClient(bearerToken string, timeout time.Duration) *TwitterClient {
	return &TwitterClient{
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     "https://api.twitter.com/2/tweets/search/recent",
	}
}

func (c *TwitterClient) Name() string { return "twitter" }

// Search returns recent posts matching any of the keywords. Retweets are
// excluded to avoid near-duplicate content.
func (c *TwitterClient) Search(ctx context.Context, keywords []string) ([]domain.SocialSignal, error) {
	if c.bearerToken == "" {
		return nil, fmt.Errorf("twitter: bearer token not configured")
	}

	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = fmt.Sprintf("%q", kw)
	}
	query := strings.Join(quoted, " OR ") + " -is:retweet"

	params := url.Values{
		"query":        {query},
		"max_results":  {"50"},
		"tweet.fields": {"created_at,author_id,text,public_metrics"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twitter API error: status %d: %s", resp.StatusCode, body)
	}

	var twResp twitterResponse
	if err := json.NewDecoder(resp.Body).Decode(&twResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	signals := make([]domain.SocialSignal, 0, len(twResp.Data))
	for _, tw := range twResp.Data {
		createdAt, _ := time.Parse(time.RFC3339, tw.CreatedAt)
		signals = append(signals, domain.SocialSignal{
			ID:        tw.ID,
			Platform:  c.Name(),
			Content:   tw.Text,
			Author:    tw.AuthorID,
			URL:       "https://twitter.com/user/status/" + tw.ID,
			CreatedAt: createdAt,
			Metrics: domain.Engagement{
				Reposts: tw.PublicMetrics.RetweetCount,
				Likes:   tw.PublicMetrics.LikeCount,
			},
		})
	}
	return signals, nil
}

// Twitter API response types.

type twitterResponse struct {
	Data []tweet `json:"data"`
}

type tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
	} `json:"public_metrics"`
}
