// Package service implements the disaster report flows: creation with
// location extraction, geocoding and analysis, resource management with
// geospatial lookup, and image verification. External enrichment never
// blocks a flow; only caller mistakes (missing fields, invalid coordinates)
// surface as errors.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reliefgrid/disaster-aggregator/internal/analysis"
	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/geocoding"
	"github.com/reliefgrid/disaster-aggregator/internal/notify"
	"github.com/reliefgrid/disaster-aggregator/internal/store"
)

// DefaultRadiusKm is the nearby-resource search radius when none is given.
const DefaultRadiusKm = 10.0

// ErrMissingFields is returned when a create request lacks required fields.
var ErrMissingFields = errors.New("title and description are required")

// Service wires the resolvers, store, and notifier behind the API surface.
type Service struct {
	geocoder *geocoding.Resolver
	analyzer *analysis.Resolver
	store    store.Store
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New builds the service.
func New(geocoder *geocoding.Resolver, analyzer *analysis.Resolver, st store.Store, notifier *notify.Notifier, logger *slog.Logger) *Service {
	return &Service{
		geocoder: geocoder,
		analyzer: analyzer,
		store:    st,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateDisasterInput is a disaster creation request.
type CreateDisasterInput struct {
	Title        string
	LocationName string
	Description  string
	Tags         []string
	OwnerID      string
}

// CreateDisaster runs the full creation flow: extract a location from the
// description when none was given, geocode it, analyze the description, and
// persist the enriched record. Enrichment failures degrade to defaults and
// never fail the creation.
func (s *Service) CreateDisaster(ctx context.Context, in CreateDisasterInput) (domain.Disaster, error) {
	if in.Title == "" || in.Description == "" {
		return domain.Disaster{}, ErrMissingFields
	}

	locationName := in.LocationName
	if locationName == "" {
		extracted, source := s.analyzer.ExtractLocation(ctx, in.Description)
		locationName = extracted
		s.logger.Info("location extracted from description", "location", locationName, "source", source)
	}

	var coords *domain.Coordinates
	if locationName != "" && locationName != analysis.NoLocationFound {
		geocoded := s.geocoder.Resolve(ctx, locationName)
		coords = geocoded.Coordinates
		s.logger.Info("location geocoded",
			"location", locationName,
			"source", geocoded.Source,
		)
	}

	result := s.analyzer.AnalyzeDescription(ctx, in.Description)

	disaster := domain.Disaster{
		Title:        in.Title,
		LocationName: locationName,
		Coordinates:  coords,
		Description:  in.Description,
		Tags:         in.Tags,
		Analysis:     &result,
		OwnerID:      in.OwnerID,
	}

	saved, err := s.store.SaveDisaster(ctx, disaster)
	if err != nil {
		return domain.Disaster{}, fmt.Errorf("save disaster: %w", err)
	}

	s.notifier.Notify(ctx, "disaster_updated", saved)
	return saved, nil
}

// Disaster returns one disaster record.
func (s *Service) Disaster(ctx context.Context, id string) (domain.Disaster, error) {
	return s.store.Disaster(ctx, id)
}

// Disasters lists all disaster records, newest first.
func (s *Service) Disasters(ctx context.Context) ([]domain.Disaster, error) {
	return s.store.Disasters(ctx)
}

// ReanalyzeDisaster re-runs description analysis on a stored disaster and
// persists the refreshed result.
func (s *Service) ReanalyzeDisaster(ctx context.Context, id string) (domain.Disaster, error) {
	disaster, err := s.store.Disaster(ctx, id)
	if err != nil {
		return domain.Disaster{}, err
	}

	result := s.analyzer.AnalyzeDescription(ctx, disaster.Description)
	disaster.Analysis = &result

	saved, err := s.store.SaveDisaster(ctx, disaster)
	if err != nil {
		return domain.Disaster{}, fmt.Errorf("save disaster: %w", err)
	}

	s.notifier.Notify(ctx, "disaster_updated", saved)
	return saved, nil
}

// CreateResourceInput is a resource creation request.
type CreateResourceInput struct {
	DisasterID   string
	Name         string
	Type         string
	LocationName string
	Coordinates  *domain.Coordinates
}

// CreateResource persists a field resource, geocoding its location name when
// no coordinates were supplied.
func (s *Service) CreateResource(ctx context.Context, in CreateResourceInput) (domain.Resource, error) {
	if in.Name == "" {
		return domain.Resource{}, errors.New("resource name is required")
	}

	coords := in.Coordinates
	if coords == nil && in.LocationName != "" {
		geocoded := s.geocoder.Resolve(ctx, in.LocationName)
		coords = geocoded.Coordinates
	}

	resource := domain.Resource{
		DisasterID:   in.DisasterID,
		Name:         in.Name,
		Type:         in.Type,
		LocationName: in.LocationName,
		Coordinates:  coords,
	}

	saved, err := s.store.SaveResource(ctx, resource)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("save resource: %w", err)
	}

	s.notifier.Notify(ctx, "resources_updated", saved)
	return saved, nil
}

// NearbyResources returns resources within radiusKm of the given point,
// optionally restricted to one resource type. Invalid coordinates are
// rejected; resources without coordinates are skipped.
func (s *Service) NearbyResources(ctx context.Context, lat, lon, radiusKm float64, resourceType string) ([]domain.Resource, error) {
	if !domain.ValidCoordinates(lat, lon) {
		return nil, domain.ErrInvalidCoordinates
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	all, err := s.store.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	var nearby []domain.Resource
	for _, r := range all {
		if r.Coordinates == nil {
			continue
		}
		if resourceType != "" && r.Type != resourceType {
			continue
		}
		if domain.Distance(lat, lon, r.Coordinates.Latitude, r.Coordinates.Longitude) <= radiusKm {
			nearby = append(nearby, r)
		}
	}
	return nearby, nil
}

// VerifyReport checks a report image for authenticity against the disaster
// context. The result is fail-closed when verification cannot complete.
func (s *Service) VerifyReport(ctx context.Context, imageURL, disasterContext string) (domain.VerificationResult, error) {
	if imageURL == "" {
		return domain.VerificationResult{}, errors.New("image URL is required")
	}
	result := s.analyzer.VerifyImage(ctx, imageURL, disasterContext)
	s.notifier.Notify(ctx, "image_verification_completed", result)
	return result, nil
}
