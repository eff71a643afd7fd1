// Package official aggregates agency updates from scraped and feed-based
// sources. Like the social aggregator it fans out concurrently, merges what
// it gets, and substitutes a deterministic dataset when every source comes
// back empty.
package official

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/reliefgrid/disaster-aggregator/internal/cache"
	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/notify"
	"github.com/reliefgrid/disaster-aggregator/internal/observability"
)

// emergencyKeywords mark an update as an emergency-level alert when any of
// them appears in its title or description.
var emergencyKeywords = []string{"emergency", "warning", "evacuation", "critical", "immediate"}

// Source is one official agency feed or page.
type Source interface {
	Name() string
	Fetch(ctx context.Context, keywords []string) ([]domain.OfficialUpdate, error)
}

// Aggregator fans out to official sources and merges their updates.
type Aggregator struct {
	sources  []Source
	cache    *cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
}

// NewAggregator builds an official update aggregator.
func NewAggregator(sources []Source, c *cache.Cache, ttl, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		sources:  sources,
		cache:    c,
		cacheTTL: ttl,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
	}
}

// WithClock swaps the ticker clock for tests.
func (a *Aggregator) WithClock(clk clockwork.Clock) *Aggregator {
	a.clock = clk
	return a
}

// Updates returns official updates for a disaster matching the location
// keywords. A failed source drops only its own contribution; an entirely
// empty merge is replaced by the substitute dataset.
func (a *Aggregator) Updates(ctx context.Context, disasterID string, keywords []string) []domain.OfficialUpdate {
	key := updatesKey(disasterID, keywords)

	var cached []domain.OfficialUpdate
	if a.cache.Get(ctx, key, &cached) {
		a.metrics.CacheLookups.WithLabelValues("official", "hit").Inc()
		return cached
	}
	a.metrics.CacheLookups.WithLabelValues("official", "miss").Inc()

	updates := a.fanOut(ctx, a.sources, keywords)
	if len(updates) == 0 {
		a.logger.Warn("no official updates from any source, using substitute data", "disaster_id", disasterID)
		a.metrics.ChainFallbacks.WithLabelValues("official").Inc()
		updates = substituteUpdates(keywords)
	}

	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Date.After(updates[j].Date)
	})

	a.cache.Set(ctx, key, updates, a.cacheTTL)
	return updates
}

// EmergencyAlerts returns only updates whose title or description contains
// an emergency-level keyword.
func (a *Aggregator) EmergencyAlerts(ctx context.Context, keywords []string) []domain.OfficialUpdate {
	all := a.Updates(ctx, "emergency_alerts", keywords)
	alerts := make([]domain.OfficialUpdate, 0, len(all))
	for _, u := range all {
		content := strings.ToLower(u.Title + " " + u.Description)
		for _, kw := range emergencyKeywords {
			if strings.Contains(content, kw) {
				alerts = append(alerts, u)
				break
			}
		}
	}
	return alerts
}

// UpdatesBySource returns updates from a single named source. An unknown
// source name yields the substitute dataset.
func (a *Aggregator) UpdatesBySource(ctx context.Context, source string) []domain.OfficialUpdate {
	key := "official:source:" + strings.ToLower(source)

	var cached []domain.OfficialUpdate
	if a.cache.Get(ctx, key, &cached) {
		a.metrics.CacheLookups.WithLabelValues("official", "hit").Inc()
		return cached
	}
	a.metrics.CacheLookups.WithLabelValues("official", "miss").Inc()

	var updates []domain.OfficialUpdate
	for _, s := range a.sources {
		if strings.EqualFold(s.Name(), source) {
			updates = a.fanOut(ctx, []Source{s}, nil)
			break
		}
	}
	if len(updates) == 0 {
		updates = substituteUpdates(nil)
	}

	a.cache.Set(ctx, key, updates, a.cacheTTL)
	return updates
}

// RunPush polls for updates on the given interval and hands each batch to
// publish. It blocks until ctx is cancelled.
func (a *Aggregator) RunPush(ctx context.Context, disasterID string, keywords []string, interval time.Duration, publish func([]domain.OfficialUpdate)) {
	a.logger.Info("official update push loop started", "disaster_id", disasterID, "interval", interval)
	notify.RunEvery(ctx, a.clock, interval, func() {
		publish(a.Updates(ctx, disasterID, keywords))
	})
	a.logger.Info("official update push loop stopped", "disaster_id", disasterID)
}

func (a *Aggregator) fanOut(parent context.Context, sources []Source, keywords []string) []domain.OfficialUpdate {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()

	type result struct {
		source  string
		updates []domain.OfficialUpdate
		err     error
	}

	results := make(chan result, len(sources))
	var wg sync.WaitGroup
	for _, s := range sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			start := time.Now()
			updates, err := s.Fetch(ctx, keywords)
			a.metrics.ProviderDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
			results <- result{source: s.Name(), updates: updates, err: err}
		}(s)
	}
	wg.Wait()
	close(results)

	var merged []domain.OfficialUpdate
	for r := range results {
		if r.err != nil {
			a.logger.Warn("official source failed", "source", r.source, "error", r.err)
			a.metrics.ProviderRequests.WithLabelValues(r.source, "error").Inc()
			continue
		}
		a.metrics.ProviderRequests.WithLabelValues(r.source, "success").Inc()
		merged = append(merged, r.updates...)
	}
	return merged
}

// substituteUpdates is the deterministic dataset used when no source
// produced anything, parameterized by the first keyword.
func substituteUpdates(keywords []string) []domain.OfficialUpdate {
	location := "Manhattan"
	if len(keywords) > 0 && keywords[0] != "" {
		location = keywords[0]
	}
	now := domain.Now()

	return []domain.OfficialUpdate{
		{
			ID:          "fema_mock_1",
			Source:      "FEMA",
			Title:       fmt.Sprintf("Federal Disaster Declaration for %s", location),
			Date:        now,
			Description: fmt.Sprintf("President has declared a major disaster for %s area. Federal assistance is now available for individuals and businesses affected by the flooding.", location),
			URL:         "https://www.fema.gov/disaster/mock-disaster",
		},
		{
			ID:          "redcross_mock_1",
			Source:      "Red Cross",
			Title:       fmt.Sprintf("Emergency Shelter Operations in %s", location),
			Date:        now.Add(-time.Hour),
			Description: fmt.Sprintf("Red Cross has opened emergency shelters in %s to assist displaced residents. Medical services and food distribution available.", location),
			URL:         "https://www.redcross.org/shelter-updates",
		},
		{
			ID:          "weather_mock_1",
			Source:      "National Weather Service",
			Title:       fmt.Sprintf("Flood Warning Extended for %s", location),
			Date:        now.Add(-2 * time.Hour),
			Description: fmt.Sprintf("Flood warning remains in effect for %s until further notice. Water levels continue to rise in affected areas.", location),
			Severity:    "Warning",
		},
		{
			ID:          "fema_mock_2",
			Source:      "FEMA",
			Title:       "Disaster Recovery Centers Opening",
			Date:        now.Add(-3 * time.Hour),
			Description: "FEMA Disaster Recovery Centers will open in affected areas to provide in-person assistance with disaster relief applications.",
			URL:         "https://www.fema.gov/recovery-centers",
		},
		{
			ID:          "redcross_mock_2",
			Source:      "Red Cross",
			Title:       "Volunteer Training Sessions",
			Date:        now.Add(-4 * time.Hour),
			Description: "Red Cross is conducting emergency volunteer training sessions for disaster response. Contact local chapter for registration.",
			URL:         "https://www.redcross.org/volunteer",
		},
	}
}

func updatesKey(disasterID string, keywords []string) string {
	sum := sha256.Sum256([]byte(strings.Join(keywords, ",")))
	return "official:" + disasterID + ":" + hex.EncodeToString(sum[:8])
}
