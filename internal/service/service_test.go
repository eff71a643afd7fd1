package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefgrid/disaster-aggregator/internal/analysis"
	"github.com/reliefgrid/disaster-aggregator/internal/cache"
	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/geocoding"
	"github.com/reliefgrid/disaster-aggregator/internal/notify"
	"github.com/reliefgrid/disaster-aggregator/internal/observability"
	"github.com/reliefgrid/disaster-aggregator/internal/store"
)

type stubGeocoder struct {
	coords domain.Coordinates
	err    error
}

func (s *stubGeocoder) Name() string { return "google_maps" }

func (s *stubGeocoder) Geocode(ctx context.Context, location string) (domain.Coordinates, error) {
	if s.err != nil {
		return domain.Coordinates{}, s.err
	}
	return s.coords, nil
}

type stubAI struct {
	location string
	analysis string
	verdict  string
	err      error
}

func (s *stubAI) Complete(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	// Location extraction asks for a single line; everything else gets JSON.
	if strings.HasPrefix(prompt, "Extract") {
		return s.location, nil
	}
	return s.analysis, nil
}

func (s *stubAI) CompleteWithImage(ctx context.Context, prompt string, image []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.verdict, nil
}

type capturingPublisher struct {
	events []notify.Event
}

func (c *capturingPublisher) Name() string { return "capture" }

func (c *capturingPublisher) Publish(ctx context.Context, event notify.Event) error {
	c.events = append(c.events, event)
	return nil
}

type testHarness struct {
	svc       *Service
	store     *store.MemoryStore
	publisher *capturingPublisher
}

func newHarness(t *testing.T, geo geocoding.Provider, ai analysis.AIClient) *testHarness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	geocoder := geocoding.NewResolver([]geocoding.Provider{geo}, nil,
		cache.New(cache.NewMemoryStore(), logger), time.Hour, time.Second, logger, metrics)
	analyzer := analysis.NewResolver(ai,
		cache.New(cache.NewMemoryStore(), logger), time.Hour, logger)

	st := store.NewMemoryStore()
	publisher := &capturingPublisher{}
	notifier := notify.NewNotifier([]notify.Publisher{publisher}, logger, metrics)

	return &testHarness{
		svc:       New(geocoder, analyzer, st, notifier, logger),
		store:     st,
		publisher: publisher,
	}
}

func TestService_CreateDisaster(t *testing.T) {
	h := newHarness(t,
		&stubGeocoder{coords: domain.Coordinates{Latitude: 40.7128, Longitude: -74.0060}},
		&stubAI{analysis: `{"severity_level": "high", "disaster_type": "flood", "urgency_indicator": true}`},
	)

	disaster, err := h.svc.CreateDisaster(context.Background(), CreateDisasterInput{
		Title:        "Manhattan Flooding",
		LocationName: "Manhattan, NYC",
		Description:  "Severe flooding across lower Manhattan",
		Tags:         []string{"flood"},
		OwnerID:      "user-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, disaster.ID)
	assert.Equal(t, "Manhattan, NYC", disaster.LocationName)
	require.NotNil(t, disaster.Coordinates)
	assert.InDelta(t, 40.7128, disaster.Coordinates.Latitude, 1e-9)
	require.NotNil(t, disaster.Analysis)
	assert.Equal(t, domain.SeverityHigh, disaster.Analysis.SeverityLevel)
	assert.Equal(t, "flood", disaster.Analysis.DisasterType)

	stored, err := h.store.Disaster(context.Background(), disaster.ID)
	require.NoError(t, err)
	assert.Equal(t, disaster.Title, stored.Title)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, "disaster_updated", h.publisher.events[0].Type)
}

func TestService_CreateDisaster_MissingFields(t *testing.T) {
	h := newHarness(t, &stubGeocoder{}, &stubAI{})

	_, err := h.svc.CreateDisaster(context.Background(), CreateDisasterInput{Title: "no description"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = h.svc.CreateDisaster(context.Background(), CreateDisasterInput{Description: "no title"})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestService_CreateDisaster_ExtractsLocationWhenMissing(t *testing.T) {
	h := newHarness(t,
		&stubGeocoder{coords: domain.Coordinates{Latitude: 40.7128, Longitude: -74.0060}},
		&stubAI{location: "Manhattan, NYC"},
	)

	disaster, err := h.svc.CreateDisaster(context.Background(), CreateDisasterInput{
		Title:       "Flooding",
		Description: "Water rising in Manhattan",
	})
	require.NoError(t, err)
	assert.Equal(t, "Manhattan, NYC", disaster.LocationName)
	require.NotNil(t, disaster.Coordinates)
}

func TestService_CreateDisaster_EnrichmentFailureStillCreates(t *testing.T) {
	h := newHarness(t,
		&stubGeocoder{err: errors.New("geocoder down")},
		&stubAI{err: errors.New("ai down")},
	)

	disaster, err := h.svc.CreateDisaster(context.Background(), CreateDisasterInput{
		Title:       "Flooding",
		Description: "Water rising",
	})
	require.NoError(t, err)

	// Location extraction failed, so no geocoding happened.
	assert.Equal(t, analysis.NoLocationFound, disaster.LocationName)
	assert.Nil(t, disaster.Coordinates)
	require.NotNil(t, disaster.Analysis)
	assert.Equal(t, "error", disaster.Analysis.Source)
	assert.Equal(t, domain.SeverityMedium, disaster.Analysis.SeverityLevel)

	require.Len(t, h.publisher.events, 1)
}

func TestService_CreateDisaster_GeocoderFailureYieldsSubstituteCoords(t *testing.T) {
	h := newHarness(t,
		&stubGeocoder{err: errors.New("quota")},
		&stubAI{analysis: `{"severity_level": "low"}`},
	)

	disaster, err := h.svc.CreateDisaster(context.Background(), CreateDisasterInput{
		Title:        "Flooding",
		LocationName: "Manhattan",
		Description:  "Water rising",
	})
	require.NoError(t, err)
	require.NotNil(t, disaster.Coordinates)
	assert.InDelta(t, 40.7128, disaster.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, -74.0060, disaster.Coordinates.Longitude, 1e-9)
}

func TestService_ReanalyzeDisaster(t *testing.T) {
	h := newHarness(t,
		&stubGeocoder{coords: domain.Coordinates{Latitude: 1, Longitude: 2}},
		&stubAI{analysis: `{"severity_level": "critical", "disaster_type": "hurricane"}`},
	)

	created, err := h.svc.CreateDisaster(context.Background(), CreateDisasterInput{
		Title:        "Storm",
		LocationName: "Miami",
		Description:  "Hurricane approaching the coast",
	})
	require.NoError(t, err)

	updated, err := h.svc.ReanalyzeDisaster(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Analysis)
	assert.Equal(t, domain.SeverityCritical, updated.Analysis.SeverityLevel)
}

func TestService_ReanalyzeDisaster_NotFound(t *testing.T) {
	h := newHarness(t, &stubGeocoder{}, &stubAI{})

	_, err := h.svc.ReanalyzeDisaster(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_CreateResource_GeocodesLocationName(t *testing.T) {
	h := newHarness(t,
		&stubGeocoder{coords: domain.Coordinates{Latitude: 40.73, Longitude: -73.99}},
		&stubAI{},
	)

	resource, err := h.svc.CreateResource(context.Background(), CreateResourceInput{
		DisasterID:   "d1",
		Name:         "Community Shelter",
		Type:         "shelter",
		LocationName: "East Village",
	})
	require.NoError(t, err)
	require.NotNil(t, resource.Coordinates)
	assert.InDelta(t, 40.73, resource.Coordinates.Latitude, 1e-9)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, "resources_updated", h.publisher.events[0].Type)
}

func TestService_NearbyResources(t *testing.T) {
	h := newHarness(t, &stubGeocoder{}, &stubAI{})
	ctx := context.Background()

	_, err := h.store.SaveResource(ctx, domain.Resource{
		Name: "Close Shelter", Type: "shelter",
		Coordinates: &domain.Coordinates{Latitude: 40.7138, Longitude: -74.0070},
	})
	require.NoError(t, err)
	_, err = h.store.SaveResource(ctx, domain.Resource{
		Name: "Far Shelter", Type: "shelter",
		Coordinates: &domain.Coordinates{Latitude: 34.0522, Longitude: -118.2437},
	})
	require.NoError(t, err)
	_, err = h.store.SaveResource(ctx, domain.Resource{
		Name: "Close Supply Point", Type: "supplies",
		Coordinates: &domain.Coordinates{Latitude: 40.7120, Longitude: -74.0050},
	})
	require.NoError(t, err)
	_, err = h.store.SaveResource(ctx, domain.Resource{Name: "Unmapped"})
	require.NoError(t, err)

	nearby, err := h.svc.NearbyResources(ctx, 40.7128, -74.0060, 10, "")
	require.NoError(t, err)
	assert.Len(t, nearby, 2)

	shelters, err := h.svc.NearbyResources(ctx, 40.7128, -74.0060, 10, "shelter")
	require.NoError(t, err)
	require.Len(t, shelters, 1)
	assert.Equal(t, "Close Shelter", shelters[0].Name)
}

func TestService_NearbyResources_InvalidCoordinates(t *testing.T) {
	h := newHarness(t, &stubGeocoder{}, &stubAI{})

	_, err := h.svc.NearbyResources(context.Background(), 91, 0, 10, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)

	_, err = h.svc.NearbyResources(context.Background(), 0, -181, 10, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
}

func TestService_NearbyResources_DefaultRadius(t *testing.T) {
	h := newHarness(t, &stubGeocoder{}, &stubAI{})
	ctx := context.Background()

	_, err := h.store.SaveResource(ctx, domain.Resource{
		Name:        "Close Shelter",
		Coordinates: &domain.Coordinates{Latitude: 40.7138, Longitude: -74.0070},
	})
	require.NoError(t, err)

	nearby, err := h.svc.NearbyResources(ctx, 40.7128, -74.0060, 0, "")
	require.NoError(t, err)
	assert.Len(t, nearby, 1)
}

func TestService_VerifyReport(t *testing.T) {
	h := newHarness(t, &stubGeocoder{}, &stubAI{
		verdict: `{"authenticity_score": 90, "context_match": true, "confidence_level": "high"}`,
	})

	_, err := h.svc.VerifyReport(context.Background(), "", "context")
	require.Error(t, err)
	assert.Empty(t, h.publisher.events)

	// Unreachable image URL fails closed but still publishes the outcome.
	result, err := h.svc.VerifyReport(context.Background(), "http://127.0.0.1:1/img.jpg", "context")
	require.NoError(t, err)
	assert.Equal(t, "error", result.Source)
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, "image_verification_completed", h.publisher.events[0].Type)
}
