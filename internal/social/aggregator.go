// Package social aggregates disaster reports from social platforms. Feed
// providers are queried concurrently and their results merged; when every
// provider fails or returns nothing, a deterministic substitute dataset
// keeps downstream consumers working. Priority is always recomputed locally
// so classification is uniform regardless of platform.
package social

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

// FeedProvider is one social platform feed.
type FeedProvider interface {
	Name() string
	Search(ctx context.Context, keywords []string) ([]domain.SocialSignal, error)
}

// Aggregator fans out to feed providers and merges their signals.
type Aggregator struct {
	providers []FeedProvider
	cache     *cache.Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	rules     domain.PriorityRules
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewAggregator builds a social signal aggregator.
func NewAggregator(providers []FeedProvider, c *cache.Cache, ttl, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		providers: providers,
		cache:     c,
		cacheTTL:  ttl,
		timeout:   timeout,
		rules:     domain.DefaultPriorityRules(),
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
}

// WithClock replaces the aggregator's clock. Tests use this to drive the
// push loop deterministically.
func (a *Aggregator) WithClock(clk clockwork.Clock) *Aggregator {
	a.clock = clk
	return a
}

// Reports returns social signals for a disaster matching the keywords. All
// providers are queried concurrently; a provider failure drops that
// provider's contribution, never the whole result. When nothing comes back
// the substitute dataset is returned instead.
func (a *Aggregator) Reports(ctx context.Context, disasterID string, keywords []string) []domain.SocialSignal {
	key := reportsKey(disasterID, keywords)

	var cached []domain.SocialSignal
	if a.cache.Get(ctx, key, &cached) {
		a.metrics.CacheLookups.WithLabelValues("social", "hit").Inc()
		return cached
	}
	a.metrics.CacheLookups.WithLabelValues("social", "miss").Inc()

	signals := a.fanOut(ctx, keywords)
	if len(signals) == 0 {
		a.logger.Warn("no social signals from any provider, using substitute data", "disaster_id", disasterID)
		a.metrics.ChainFallbacks.WithLabelValues("social").Inc()
		signals = substituteSignals(keywords)
	}

	for i := range signals {
		signals[i].Priority = a.rules.Classify(signals[i].Content, signals[i].Metrics)
	}
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].CreatedAt.After(signals[j].CreatedAt)
	})

	a.cache.Set(ctx, key, signals, a.cacheTTL)
	return signals
}

// PriorityAlerts returns only urgent and high priority signals.
func (a *Aggregator) PriorityAlerts(ctx context.Context, disasterID string, keywords []string) []domain.SocialSignal {
	all := a.Reports(ctx, disasterID, keywords)
	alerts := make([]domain.SocialSignal, 0, len(all))
	for _, s := range all {
		if s.Priority == domain.PriorityUrgent || s.Priority == domain.PriorityHigh {
			alerts = append(alerts, s)
		}
	}
	return alerts
}

// ReportsByLocation returns signals whose content mentions any of the
// location keywords.
func (a *Aggregator) ReportsByLocation(ctx context.Context, locationKeywords []string) []domain.SocialSignal {
	all := a.Reports(ctx, "location_search", locationKeywords)
	matched := make([]domain.SocialSignal, 0, len(all))
	for _, s := range all {
		if containsAny(s.Content, locationKeywords) {
			matched = append(matched, s)
		}
	}
	return matched
}

// RunPush polls for reports on the given interval and hands each batch to
// publish. It blocks until ctx is cancelled.
func (a *Aggregator) RunPush(ctx context.Context, disasterID string, keywords []string, interval time.Duration, publish func([]domain.SocialSignal)) {
	a.logger.Info("social signal push loop started", "disaster_id", disasterID, "interval", interval)
	notify.RunEvery(ctx, a.clock, interval, func() {
		publish(a.Reports(ctx, disasterID, keywords))
	})
	a.logger.Info("social signal push loop stopped", "disaster_id", disasterID)
}

func (a *Aggregator) fanOut(parent context.Context, keywords []string) []domain.SocialSignal {
	ctx, cancel := context.WithTimeout(parent, a.timeout)
	defer cancel()

	type result struct {
		provider string
		signals  []domain.SocialSignal
		err      error
	}

	results := make(chan result, len(a.providers))
	var wg sync.WaitGroup
	for _, p := range a.providers {
		wg.Add(1)
		go func(p FeedProvider) {
			defer wg.Done()
			start := time.Now()
			signals, err := p.Search(ctx, keywords)
			a.metrics.ProviderDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
			results <- result{provider: p.Name(), signals: signals, err: err}
		}(p)
	}
	wg.Wait()
	close(results)

	var merged []domain.SocialSignal
	for r := range results {
		if r.err != nil {
			a.logger.Warn("social provider failed", "provider", r.provider, "error", r.err)
			a.metrics.ProviderRequests.WithLabelValues(r.provider, "error").Inc()
			continue
		}
		a.metrics.ProviderRequests.WithLabelValues(r.provider, "success").Inc()
		merged = append(merged, r.signals...)
	}
	return merged
}

// substituteSignals is the deterministic dataset used when no provider
// produced anything. The first keyword parameterizes the content; with no
// keywords everything defaults to Manhattan-area text.
func substituteSignals(keywords []string) []domain.SocialSignal {
	location := "Manhattan"
	if len(keywords) > 0 && keywords[0] != "" {
		location = keywords[0]
	}
	now := domain.Now()

	signals := []domain.SocialSignal{
		{
			ID:        "mock_1",
			Platform:  "twitter",
			Content:   fmt.Sprintf("#floodrelief Need immediate assistance in %s. Water levels rising rapidly.", location),
			Author:    "citizen1",
			URL:       "https://twitter.com/citizen1/status/mock_1",
			CreatedAt: now,
			Metrics:   domain.Engagement{Reposts: 45, Likes: 123},
		},
		{
			ID:        "mock_2",
			Platform:  "twitter",
			Content:   fmt.Sprintf("Emergency shelter needed in %s. Families with children. #disasterresponse", location),
			Author:    "relief_worker",
			URL:       "https://twitter.com/relief_worker/status/mock_2",
			CreatedAt: now.Add(-5 * time.Minute),
			Metrics:   domain.Engagement{Reposts: 89, Likes: 234},
		},
		{
			ID:        "mock_3",
			Platform:  "bluesky",
			Content:   fmt.Sprintf("Medical supplies running low at %s shelter. Need volunteers and donations.", location),
			Author:    "medical_team",
			URL:       "https://bsky.app/profile/medical_team/post/mock_3",
			CreatedAt: now.Add(-10 * time.Minute),
			Metrics:   domain.Engagement{Likes: 67},
		},
		{
			ID:        "mock_4",
			Platform:  "twitter",
			Content:   fmt.Sprintf("Power restored in %s. Communication lines back up. #recovery", location),
			Author:    "utility_company",
			URL:       "https://twitter.com/utility_company/status/mock_4",
			CreatedAt: now.Add(-15 * time.Minute),
			Metrics:   domain.Engagement{Reposts: 23, Likes: 89},
		},
		{
			ID:        "mock_5",
			Platform:  "bluesky",
			Content:   fmt.Sprintf("Food distribution center opening at %s. Bring ID for families in need.", location),
			Author:    "red_cross_nyc",
			URL:       "https://bsky.app/profile/red_cross_nyc/post/mock_5",
			CreatedAt: now.Add(-20 * time.Minute),
			Metrics:   domain.Engagement{Likes: 156},
		},
	}

	if len(keywords) == 0 {
		return signals
	}
	filtered := make([]domain.SocialSignal, 0, len(signals))
	for _, s := range signals {
		if containsAny(s.Content, keywords) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func containsAny(content string, keywords []string) bool {
	lower := strings.ToLower(content)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func reportsKey(disasterID string, keywords []string) string {
	sum := sha256.Sum256([]byte(strings.Join(keywords, ",")))
	return "social:" + disasterID + ":" + hex.EncodeToString(sum[:8])
}
