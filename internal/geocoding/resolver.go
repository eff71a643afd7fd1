// Package geocoding resolves location names to coordinates through an
// ordered provider chain with caching. Forward resolution never fails: when
// every provider is down the resolver returns fixed substitute coordinates
// tagged "mock" so downstream flows keep working.
package geocoding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/cache"
	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/observability"
	"github.com/reliefgrid/disaster-aggregator/internal/provider"
)

// Substitute coordinates returned when the whole chain fails. Lower
// Manhattan, matching the seeded demo data.
var substituteCoords = domain.Coordinates{Latitude: 40.7128, Longitude: -74.0060}

// Provider geocodes a location name to coordinates.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, location string) (domain.Coordinates, error)
}

// ReverseProvider maps coordinates back to an address.
type ReverseProvider interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Resolver is the cached geocoding front end.
type Resolver struct {
	chain    *provider.Chain[string, domain.Coordinates]
	reverse  ReverseProvider
	cache    *cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewResolver builds a resolver over the given providers, tried in order.
// reverse may be nil when no provider supports reverse lookup.
func NewResolver(providers []Provider, reverse ReverseProvider, c *cache.Cache, ttl time.Duration, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	chained := make([]provider.Provider[string, domain.Coordinates], len(providers))
	for i, p := range providers {
		chained[i] = chainAdapter{p}
	}
	chain := provider.NewChain("geocoding", chained, func(string) domain.Coordinates {
		return substituteCoords
	}, timeout, logger, metrics)

	return &Resolver{
		chain:    chain,
		reverse:  reverse,
		cache:    c,
		cacheTTL: ttl,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve geocodes a location name. Identical inputs within the cache TTL
// return the cached result without touching any provider, including cached
// substitute results.
func (r *Resolver) Resolve(ctx context.Context, location string) domain.GeocodeResult {
	key := forwardKey(location)

	var cached domain.GeocodeResult
	if r.cache.Get(ctx, key, &cached) {
		r.metrics.CacheLookups.WithLabelValues("geocoding", "hit").Inc()
		return cached
	}
	r.metrics.CacheLookups.WithLabelValues("geocoding", "miss").Inc()

	coords, source := r.chain.Resolve(ctx, location)
	result := domain.GeocodeResult{
		LocationName: location,
		Coordinates:  &coords,
		Source:       source,
		GeocodedAt:   domain.Now(),
	}

	r.cache.Set(ctx, key, result, r.cacheTTL)
	return result
}

// ReverseGeocode maps coordinates to an address. Unlike forward resolution
// there is no substitute address: on failure the result carries "Unknown
// location" with source "error", and invalid coordinates are rejected.
func (r *Resolver) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.ReverseGeocodeResult, error) {
	if !domain.ValidCoordinates(lat, lon) {
		return domain.ReverseGeocodeResult{}, domain.ErrInvalidCoordinates
	}

	key := reverseKey(lat, lon)

	var cached domain.ReverseGeocodeResult
	if r.cache.Get(ctx, key, &cached) {
		r.metrics.CacheLookups.WithLabelValues("reverse_geocoding", "hit").Inc()
		return cached, nil
	}
	r.metrics.CacheLookups.WithLabelValues("reverse_geocoding", "miss").Inc()

	result := domain.ReverseGeocodeResult{
		Coordinates:       domain.Coordinates{Latitude: lat, Longitude: lon},
		ReverseGeocodedAt: domain.Now(),
	}

	if r.reverse == nil {
		result.Address = "Unknown location"
		result.Source = "error"
	} else if address, err := r.reverse.Reverse(ctx, lat, lon); err != nil {
		r.logger.Warn("reverse geocoding failed", "error", err)
		result.Address = "Unknown location"
		result.Source = "error"
	} else {
		result.Address = address
		result.Source = "openstreetmap"
	}

	r.cache.Set(ctx, key, result, r.cacheTTL)
	return result, nil
}

// forwardKey digests the location so arbitrary text stays safe as a cache
// key across every backend.
func forwardKey(location string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(location))))
	return "geocode:" + hex.EncodeToString(sum[:16])
}

// reverseKey rounds to four decimal places, roughly 11 meters, so nearby
// lookups share a cache entry.
func reverseKey(lat, lon float64) string {
	return fmt.Sprintf("reverse_geocode:%.4f,%.4f", lat, lon)
}

// chainAdapter lifts a Provider into the generic chain interface.
type chainAdapter struct {
	p Provider
}

func (a chainAdapter) Name() string { return a.p.Name() }

func (a chainAdapter) Resolve(ctx context.Context, location string) (domain.Coordinates, error) {
	return a.p.Geocode(ctx, location)
}
