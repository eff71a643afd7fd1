package official

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const femaHTML = `<html><body>
<div class="disaster-list-item">
  <h3>Federal Disaster Declaration for Manhattan</h3>
  <span class="disaster-date">March 15, 2024</span>
  <p class="disaster-description">Major flooding declared in Manhattan area.</p>
  <a href="/disaster/4832">Details</a>
</div>
<div class="disaster-list-item">
  <h3>Wildfire Recovery in Oregon</h3>
  <span class="disaster-date">March 10, 2024</span>
  <p class="disaster-description">Recovery centers open in affected counties.</p>
  <a href="/disaster/4830">Details</a>
</div>
</body></html>`

func TestFEMAClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/disaster", r.URL.Path)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(femaHTML))
	}))
	defer server.Close()

	client := &FEMAClient{httpClient: server.Client(), baseURL: server.URL}

	updates, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, "fema_0", updates[0].ID)
	assert.Equal(t, "FEMA", updates[0].Source)
	assert.Equal(t, "Federal Disaster Declaration for Manhattan", updates[0].Title)
	assert.Equal(t, server.URL+"/disaster/4832", updates[0].URL)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), updates[0].Date)
}

func TestFEMAClient_Fetch_KeywordFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(femaHTML))
	}))
	defer server.Close()

	client := &FEMAClient{httpClient: server.Client(), baseURL: server.URL}

	updates, err := client.Fetch(context.Background(), []string{"manhattan"})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0].Title, "Manhattan")
}

func TestFEMAClient_Fetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := &FEMAClient{httpClient: server.Client(), baseURL: server.URL}

	_, err := client.Fetch(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestRedCrossClient_Fetch(t *testing.T) {
	html := `<html><body>
<div class="disaster-update">
  <span class="update-title">Emergency Shelter Operations in Manhattan</span>
  <span class="update-date">2024-03-15</span>
  <p class="update-content">Shelters open for displaced residents.</p>
  <a class="update-link" href="https://www.redcross.org/shelter-updates">More</a>
</div>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer server.Close()

	client := &RedCrossClient{httpClient: server.Client(), baseURL: server.URL}

	updates, err := client.Fetch(context.Background(), []string{"shelter"})
	require.NoError(t, err)
	require.Len(t, updates, 1)

	assert.Equal(t, "redcross_0", updates[0].ID)
	assert.Equal(t, "Red Cross", updates[0].Source)
	assert.Equal(t, "https://www.redcross.org/shelter-updates", updates[0].URL)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), updates[0].Date)
}

func TestRedCrossClient_Fetch_NoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	client := &RedCrossClient{httpClient: server.Client(), baseURL: server.URL}

	updates, err := client.Fetch(context.Background(), []string{"manhattan"})
	require.NoError(t, err)
	assert.Empty(t, updates)
}

const alertFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:cap="urn:oasis:names:tc:emergency:cap:1.2">
  <title>Current Watches, Warnings and Advisories</title>
  <updated>2024-03-15T12:00:00Z</updated>
  <entry>
    <id>urn:oid:2.49.0.1.840.0.1</id>
    <title>Flood Warning issued for Manhattan</title>
    <updated>2024-03-15T11:30:00Z</updated>
    <link href="https://api.weather.gov/alerts/urn:oid:2.49.0.1.840.0.1"/>
    <summary>Flood warning remains in effect until further notice.</summary>
    <cap:event>Flood Warning</cap:event>
    <cap:severity>Severe</cap:severity>
  </entry>
  <entry>
    <id>urn:oid:2.49.0.1.840.0.2</id>
    <title>Wind Advisory for Denver</title>
    <updated>2024-03-15T10:00:00Z</updated>
    <link href="https://api.weather.gov/alerts/urn:oid:2.49.0.1.840.0.2"/>
    <summary>Gusts up to 45 mph expected.</summary>
    <cap:event>Wind Advisory</cap:event>
    <cap:severity>Moderate</cap:severity>
  </entry>
</feed>`

func TestWeatherClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(alertFeed))
	}))
	defer server.Close()

	parser := gofeed.NewParser()
	parser.Client = server.Client()
	client := &WeatherClient{parser: parser, feedURL: server.URL}

	updates, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, "weather_0", updates[0].ID)
	assert.Equal(t, "National Weather Service", updates[0].Source)
	assert.Equal(t, "Flood Warning issued for Manhattan", updates[0].Title)
	assert.Equal(t, "Severe", updates[0].Severity)
	assert.Equal(t, time.Date(2024, 3, 15, 11, 30, 0, 0, time.UTC), updates[0].Date)
}

func TestWeatherClient_Fetch_KeywordFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(alertFeed))
	}))
	defer server.Close()

	parser := gofeed.NewParser()
	parser.Client = server.Client()
	client := &WeatherClient{parser: parser, feedURL: server.URL}

	updates, err := client.Fetch(context.Background(), []string{"manhattan"})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0].Title, "Manhattan")
}

func TestWeatherClient_Fetch_BadFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	parser := gofeed.NewParser()
	parser.Client = server.Client()
	client := &WeatherClient{parser: parser, feedURL: server.URL}

	_, err := client.Fetch(context.Background(), nil)
	require.Error(t, err)
}

func TestKeywordMatch(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     bool
	}{
		{"empty keywords match everything", "anything", nil, true},
		{"case insensitive", "Flooding in Manhattan", []string{"MANHATTAN"}, true},
		{"any keyword suffices", "Wildfire in Oregon", []string{"manhattan", "oregon"}, true},
		{"no match", "Wind advisory", []string{"flood"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keywordMatch(tt.text, tt.keywords))
		})
	}
}
