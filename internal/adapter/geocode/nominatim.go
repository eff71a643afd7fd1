package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
)

// userAgent identifies the service to Nominatim, which rejects anonymous clients.
const userAgent = "disaster-aggregator/1.0"

// NominatimClient resolves location names via the OpenStreetMap Nominatim
// API. It needs no API key and also serves reverse geocoding.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewNominatimClient creates an OpenStreetMap geocoding client.
func NewNominatimClient(timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://nominatim.openstreetmap.org",
	}
}

func (c *NominatimClient) Name() string { return "openstreetmap" }

// Geocode converts a free-text location name to coordinates.
func (c *NominatimClient) Geocode(ctx context.Context, location string) (domain.Coordinates, error) {
	params := url.Values{
		"q":      {location},
		"format": {"json"},
		"limit":  {"1"},
	}

	var results []nominatimResult
	if err := c.get(ctx, c.baseURL+"/search?"+params.Encode(), &results); err != nil {
		return domain.Coordinates{}, err
	}
	if len(results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("nominatim geocode: no results for %q", location)
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return domain.Coordinates{}, fmt.Errorf("nominatim geocode: malformed coordinates for %q", location)
	}

	return domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// Reverse converts coordinates to a display address.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format": {"json"},
	}

	var result nominatimReverseResult
	if err := c.get(ctx, c.baseURL+"/reverse?"+params.Encode(), &result); err != nil {
		return "", err
	}
	if result.DisplayName == "" {
		return "", fmt.Errorf("nominatim reverse: empty display name for %.4f,%.4f", lat, lon)
	}
	return result.DisplayName, nil
}

func (c *NominatimClient) get(ctx context.Context, fullURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Nominatim API response types.

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type nominatimReverseResult struct {
	DisplayName string `json:"display_name"`
}
