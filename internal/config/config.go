// Package config provides environment-driven configuration for pathconvert.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL Secret
	DBMaxConns  int
	Port        string
	ListenHost  string
	MetricsPort string
	CORSOrigins []string
	LogLevel    string

	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingDimensions int
	OpenAIAPIKey        Secret
	OpenAIBaseURL       string
	OllamaURL           string
	OllamaAllowRemote   bool
	EmbedRatePerSec     float64
	EmbedBurst          int
	EmbedMaxRetries     int

	EncryptionKey     Secret
	ShopifyAPISecret  Secret
	ShopifyAPIVersion string

	RedisURL Secret
	CacheTTL time.Duration

	JobPollInterval time.Duration
	JobErrorBackoff time.Duration

	ThresholdPercentile float64
	ThresholdMultiplier float64
	ThresholdMin        float64
	ThresholdMax        float64
	DefaultMaxButtons   int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       Secret(envOrDefault("DATABASE_URL", "")),
		Port:              envOrDefault("PORT", "3030"),
		ListenHost:        envOrDefault("LISTEN_HOST", "127.0.0.1"),
		MetricsPort:       envOrDefault("METRICS_PORT", "9091"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		EmbeddingProvider: envOrDefault("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:    envOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIAPIKey:      Secret(envOrDefault("OPENAI_API_KEY", "")),
		OpenAIBaseURL:     envOrDefault("OPENAI_BASE_URL", ""),
		OllamaURL:         envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaAllowRemote: envOrDefault("OLLAMA_ALLOW_REMOTE", "false") == "true",
		EncryptionKey:     Secret(envOrDefault("ENCRYPTION_KEY", "")),
		ShopifyAPISecret:  Secret(envOrDefault("SHOPIFY_API_SECRET", "")),
		ShopifyAPIVersion: envOrDefault("SHOPIFY_API_VERSION", "2024-10"),
		RedisURL:          Secret(envOrDefault("REDIS_URL", "")),
	}

	if err := cfg.loadNumbers(); err != nil {
		return nil, err
	}

	if err := cfg.loadDurations(); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadNumbers() error {
	var err error

	if c.DBMaxConns, err = intInRange("DB_MAX_CONNS", "21", 2, 200); err != nil {
		return err
	}

	if c.EmbeddingDimensions, err = intInRange("EMBEDDING_DIMENSIONS", "1536", 1, 4096); err != nil {
		return err
	}

	if c.EmbedBurst, err = intInRange("EMBED_BURST", "5", 1, 100); err != nil {
		return err
	}

	if c.EmbedMaxRetries, err = intInRange("EMBED_MAX_RETRIES", "4", 0, 10); err != nil {
		return err
	}

	if c.DefaultMaxButtons, err = intInRange("DEFAULT_MAX_BUTTONS", "15", 1, 20); err != nil {
		return err
	}

	if c.EmbedRatePerSec, err = floatInRange("EMBED_RATE_PER_SEC", "50", 0.1, 1000); err != nil {
		return err
	}

	if c.ThresholdPercentile, err = floatInRange("THRESHOLD_PERCENTILE", "75", 0, 100); err != nil {
		return err
	}

	if c.ThresholdMultiplier, err = floatInRange("THRESHOLD_MULTIPLIER", "0.7", 0, 10); err != nil {
		return err
	}

	if c.ThresholdMin, err = floatInRange("THRESHOLD_MIN", "0.2", -1, 1); err != nil {
		return err
	}

	if c.ThresholdMax, err = floatInRange("THRESHOLD_MAX", "0.85", -1, 1); err != nil {
		return err
	}

	return nil
}

func (c *Config) loadDurations() error {
	var err error

	if c.CacheTTL, err = durationAtLeast("CACHE_TTL", "10m", time.Second); err != nil {
		return err
	}

	if c.JobPollInterval, err = durationAtLeast("JOB_POLL_INTERVAL", "5s", 100*time.Millisecond); err != nil {
		return err
	}

	if c.JobErrorBackoff, err = durationAtLeast("JOB_ERROR_BACKOFF", "10s", 100*time.Millisecond); err != nil {
		return err
	}

	return nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ListenHost, c.Port)
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.ListenHost, c.MetricsPort)
}

func intInRange(key, fallback string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(envOrDefault(key, fallback))
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return v, nil
}

func floatInRange(key, fallback string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(envOrDefault(key, fallback), 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be a number between %g and %g", key, lo, hi)
	}

	return v, nil
}

func durationAtLeast(key, fallback string, lo time.Duration) (time.Duration, error) {
	v, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || v < lo {
		return 0, fmt.Errorf("%s must be a duration of at least %s", key, lo)
	}

	return v, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
