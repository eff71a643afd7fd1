package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// GoogleClient resolves location names via the Google Maps Geocoding API.
type GoogleClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewGoogleClient creates a Google Maps geocoding client.
func NewGoogleClient(apiKey string, timeout time.Duration) *GoogleClient {
	return &GoogleClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://maps.googleapis.com/maps/api/geocode/json",
	}
}

func (c *GoogleClient) Name() string { return "google_maps" }

// Geocode converts a free-text location name to coordinates.
func (c *GoogleClient) Geocode(ctx context.Context, location string) (domain.Coordinates, error) {
	params := url.Values{
		"address": {location},
		"key":     {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("google geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Coordinates{}, fmt.Errorf("google API error: status %d: %s", resp.StatusCode, body)
	}

	var googleResp googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&googleResp); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode response: %w", err)
	}

	if googleResp.Status != "OK" || len(googleResp.Results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("google geocode: status %s for %q", googleResp.Status, location)
	}

	loc := googleResp.Results[0].Geometry.Location
	return domain.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

// Google Maps API response types.

type googleResponse struct {
	Status  string         `json:"status"`
	Results []googleResult `json:"results"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}
