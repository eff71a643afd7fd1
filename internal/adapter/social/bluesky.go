package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// BlueskyClient searches posts via the app.bsky.feed.searchPosts endpoint.
// It creates a session lazily on first use and reuses the access token.
type BlueskyClient struct {
	identifier string
	password   string
	httpClient *http.Client
	baseURL    string

	mu          sync.Mutex
	accessToken string
}

// NewBlueskyClient creates a Bluesky search client.
func NewBlueskyClient(identifier, password string, timeout time.Duration) *BlueskyClient {
	return &BlueskyClient{
		identifier: identifier,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://bsky.social",
	}
}

func (c *BlueskyClient) Name() string { return "bluesky" }

// Search returns posts matching the keywords, one query joining all terms.
func (c *BlueskyClient) Search(ctx context.Context, keywords []string) ([]domain.SocialSignal, error) {
	token, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":     {strings.Join(keywords, " ")},
		"limit": {"50"},
		"sort":  {"latest"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/xrpc/app.bsky.feed.searchPosts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bluesky search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bluesky API error: status %d: %s", resp.StatusCode, body)
	}

	var searchResp blueskySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	signals := make([]domain.SocialSignal, 0, len(searchResp.Posts))
	for _, post := range searchResp.Posts {
		createdAt, _ := time.Parse(time.RFC3339, post.Record.CreatedAt)
		signals = append(signals, domain.SocialSignal{
			ID:        post.URI,
			Platform:  c.Name(),
			Content:   post.Record.Text,
			Author:    post.Author.Handle,
			URL:       postURL(post.Author.Handle, post.URI),
			CreatedAt: createdAt,
			Metrics: domain.Engagement{
				Reposts: post.RepostCount,
				Likes:   post.LikeCount,
			},
		})
	}
	return signals, nil
}

// session returns a cached access token, authenticating if needed.
func (c *BlueskyClient) session(ctx context.Context) (string, error) {
	if c.identifier == "" || c.password == "" {
		return "", fmt.Errorf("bluesky: credentials not configured")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"identifier": c.identifier,
		"password":   c.password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("bluesky session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bluesky session error: status %d: %s", resp.StatusCode, respBody)
	}

	var session struct {
		AccessJWT string `json:"accessJwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	if session.AccessJWT == "" {
		return "", fmt.Errorf("bluesky session response missing token")
	}

	c.accessToken = session.AccessJWT
	return c.accessToken, nil
}

// postURL builds a web link from an AT URI like
// at://did:plc:abc/app.bsky.feed.post/3k44deefqdk2g.
func postURL(handle, uri string) string {
	parts := strings.Split(uri, "/")
	if len(parts) == 0 {
		return ""
	}
	return "https://bsky.app/profile/" + handle + "/post/" + parts[len(parts)-1]
}

type blueskySearchResponse struct {
	Posts []blueskyPost `json:"posts"`
}

type blueskyPost struct {
	URI    string `json:"uri"`
	Author struct {
		Handle string `json:"handle"`
	} `json:"author"`
	Record struct {
		Text      string `json:"text"`
		CreatedAt string `json:"createdAt"`
	} `json:"record"`
	RepostCount int `json:"repostCount"`
	LikeCount   int `json:"likeCount"`
}
