// Package config loads service settings from environment variables. A .env
// file in the working directory is read first when present, so local runs
// do not need exported variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Cache backend: memory, redis, or sqlite.
	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string

	// Per-provider call timeout for geocoding and official sources.
	ProviderTimeout time.Duration

	// Geocoding providers. A provider with no credential is left out of the
	// chain; the community provider needs none.
	GoogleMapsAPIKey string
	MapboxToken      string

	// AI analysis.
	GeminiAPIKey string

	// Social feeds.
	TwitterBearerToken string
	BlueskyIdentifier  string
	BlueskyPassword    string

	// Change notification sinks.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Interval for the official update push loop.
	PushInterval time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	providerTimeout, err := envDuration("PROVIDER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	pushInterval, err := envDuration("PUSH_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CacheBackend:  envOrDefault("CACHE_BACKEND", "memory"),
		CacheTTL:      cacheTTL,
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		SQLitePath:    envOrDefault("SQLITE_PATH", "disaster-aggregator.db"),

		ProviderTimeout: providerTimeout,

		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),

		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
		BlueskyIdentifier:  os.Getenv("BLUESKY_IDENTIFIER"),
		BlueskyPassword:    os.Getenv("BLUESKY_PASSWORD"),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "disaster-events"),

		PushInterval: pushInterval,
	}

	switch cfg.CacheBackend {
	case "memory", "redis", "sqlite":
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: must be memory, redis, or sqlite", cfg.CacheBackend)
	}
	if cfg.CacheBackend == "redis" && cfg.RedisAddr == "" {
		return nil, errors.New("CACHE_BACKEND is redis but REDIS_ADDR is not set")
	}
	if cfg.CacheBackend == "sqlite" && cfg.SQLitePath == "" {
		return nil, errors.New("CACHE_BACKEND is sqlite but SQLITE_PATH is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
