package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/reliefgrid/disaster-aggregator/internal/adapter/genai"
	"github.com/reliefgrid/disaster-aggregator/internal/adapter/geocode"
	httpadapter "github.com/reliefgrid/disaster-aggregator/internal/adapter/http"
	officialadapter "github.com/reliefgrid/disaster-aggregator/internal/adapter/official"
	socialadapter "github.com/reliefgrid/disaster-aggregator/internal/adapter/social"
	"github.com/reliefgrid/disaster-aggregator/internal/analysis"
	"github.com/reliefgrid/disaster-aggregator/internal/cache"
	"github.com/reliefgrid/disaster-aggregator/internal/config"
	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/geocoding"
	"github.com/reliefgrid/disaster-aggregator/internal/notify"
	"github.com/reliefgrid/disaster-aggregator/internal/observability"
	"github.com/reliefgrid/disaster-aggregator/internal/official"
	"github.com/reliefgrid/disaster-aggregator/internal/service"
	"github.com/reliefgrid/disaster-aggregator/internal/social"
	"github.com/reliefgrid/disaster-aggregator/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cacheStore, err := newCacheStore(cfg)
	if err != nil {
		logger.Error("failed to initialize cache backend", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	dataCache := cache.New(cacheStore, logger)
	logger.Info("cache backend ready", "backend", cfg.CacheBackend, "ttl", cfg.CacheTTL)

	// Geocoding chain in priority order; keyless providers are left out and
	// the community provider always closes the chain.
	nominatim := geocode.NewNominatimClient(cfg.ProviderTimeout)
	var geoProviders []geocoding.Provider
	if cfg.GoogleMapsAPIKey != "" {
		geoProviders = append(geoProviders, geocode.NewGoogleClient(cfg.GoogleMapsAPIKey, cfg.ProviderTimeout))
	}
	if cfg.MapboxToken != "" {
		geoProviders = append(geoProviders, geocode.NewMapboxClient(cfg.MapboxToken, cfg.ProviderTimeout))
	}
	geoProviders = append(geoProviders, nominatim)
	geocoder := geocoding.NewResolver(geoProviders, nominatim, dataCache, cfg.CacheTTL, cfg.ProviderTimeout, logger, metrics)

	aiClient := genai.NewClient(cfg.GeminiAPIKey, cfg.ProviderTimeout)
	analyzer := analysis.NewResolver(aiClient, dataCache, cfg.CacheTTL, logger)

	var feeds []social.FeedProvider
	if cfg.TwitterBearerToken != "" {
		feeds = append(feeds, socialadapter.NewTwitterClient(cfg.TwitterBearerToken, cfg.ProviderTimeout))
	}
	if cfg.BlueskyIdentifier != "" && cfg.BlueskyPassword != "" {
		feeds = append(feeds, socialadapter.NewBlueskyClient(cfg.BlueskyIdentifier, cfg.BlueskyPassword, cfg.ProviderTimeout))
	}
	socials := social.NewAggregator(feeds, dataCache, cfg.CacheTTL, cfg.ProviderTimeout, logger, metrics)

	sources := []official.Source{
		officialadapter.NewFEMAClient(cfg.ProviderTimeout),
		officialadapter.NewRedCrossClient(cfg.ProviderTimeout),
		officialadapter.NewWeatherClient(cfg.ProviderTimeout),
	}
	officials := official.NewAggregator(sources, dataCache, cfg.CacheTTL, cfg.ProviderTimeout, logger, metrics)

	hub := notify.NewWebSocketHub(logger)
	publishers := []notify.Publisher{hub}
	var kafkaPublisher *notify.KafkaPublisher
	if cfg.KafkaEnabled {
		kafkaPublisher = notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publishers = append(publishers, kafkaPublisher)
		logger.Info("kafka event sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	notifier := notify.NewNotifier(publishers, logger, metrics)

	svc := service.New(geocoder, analyzer, store.NewMemoryStore(), notifier, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, geocoder, socials, officials, hub,
		cacheReadiness{store: cacheStore}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Push aggregated data to event sinks on a fixed interval.
	go officials.RunPush(ctx, "broadcast", nil, cfg.PushInterval, func(updates []domain.OfficialUpdate) {
		notifier.Notify(ctx, "official_updates", updates)
	})
	go socials.RunPush(ctx, "broadcast", nil, cfg.PushInterval, func(signals []domain.SocialSignal) {
		notifier.Notify(ctx, "social_media_updated", signals)
	})

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := hub.Close(); err != nil {
		logger.Error("websocket hub close error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// cacheReadiness reports ready when the cache backend answers a probe read.
type cacheReadiness struct {
	store cache.Store
}

func (r cacheReadiness) CheckReadiness(ctx context.Context) error {
	_, _, err := r.store.Get(ctx, "readiness_probe")
	return err
}

func newCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		return cache.NewRedisStore(context.Background(), cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "sqlite":
		return cache.NewSQLiteStore(cfg.SQLitePath)
	default:
		return cache.NewMemoryStore(), nil
	}
}
