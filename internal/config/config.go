// Package config loads the engine's configuration from environment
// variables. Every required variable missing at startup is a fatal error;
// cmd/server turns that into exit code 1.
package config

import (
	"fmt"
	"strings"

	pkgconfig "github.com/avishek-m/pricecompare/pkg/config"
)

// Config holds all configuration for the aggregation and matching engine.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Proxy client
	ProxyAPIKey  string `env:"PROXY_API_KEY,required"`
	ProxyBaseURL string `env:"PROXY_BASE_URL" envDefault:"https://proxy.scrapeops.io/v1/"`

	// Geocoding
	MapProviderAPIKeys []string `env:"MAP_PROVIDER_API_KEYS,required" envSeparator:" "`
	GeocodeBaseURL     string   `env:"GEOCODE_BASE_URL" envDefault:"https://maps.googleapis.com/maps/api/geocode/json"`
	PlacesBaseURL      string   `env:"PLACES_BASE_URL" envDefault:"https://maps.googleapis.com/maps/api/place/autocomplete/json"`

	// Embedding
	EmbeddingAPIKey  string `env:"EMBEDDING_API_KEY,required"`
	EmbeddingBaseURL string `env:"EMBEDDING_BASE_URL" envDefault:"https://api.openai.com/v1/embeddings"`
	EmbeddingModel   string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	// Content store (admin CRUD + user accounts)
	ContentStoreURL string `env:"CONTENT_STORE_URL,required"`
	ContentStoreKey string `env:"CONTENT_STORE_KEY,required"`

	// Admin session
	AdminSessionSecret string `env:"ADMIN_SESSION_SECRET,required"`

	// Time-obfuscated map-key endpoint
	MapKeyPool []string `env:"MAP_KEY_POOL" envSeparator:" "`

	// PostgreSQL (content CRUD backing store; app.NewApp always connects
	// with these settings and does not read ContentStoreURL/ContentStoreKey)
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"pricecompare"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"pricecompare_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"pricecompare"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (geocode + embedding caches)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka (search analytics events)
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGrp  string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"pricecompare-analytics"`
	KafkaEnableDLQ    bool     `env:"KAFKA_ENABLE_DLQ" envDefault:"true"`

	// Concurrency & deadlines
	PlatformHandlerTimeoutSecs int `env:"PLATFORM_HANDLER_TIMEOUT_SECS" envDefault:"45"`
	ProxyCallTimeoutSecs       int `env:"PROXY_CALL_TIMEOUT_SECS" envDefault:"30"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Rate limiting
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// pprof debug endpoints
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if strings.TrimSpace(c.ProxyAPIKey) == "" {
		return fmt.Errorf("PROXY_API_KEY is required")
	}
	if len(c.MapProviderAPIKeys) == 0 {
		return fmt.Errorf("MAP_PROVIDER_API_KEYS is required")
	}
	if strings.TrimSpace(c.EmbeddingAPIKey) == "" {
		return fmt.Errorf("EMBEDDING_API_KEY is required")
	}
	if strings.TrimSpace(c.ContentStoreURL) == "" {
		return fmt.Errorf("CONTENT_STORE_URL is required")
	}
	if strings.TrimSpace(c.ContentStoreKey) == "" {
		return fmt.Errorf("CONTENT_STORE_KEY is required")
	}
	if strings.TrimSpace(c.AdminSessionSecret) == "" {
		return fmt.Errorf("ADMIN_SESSION_SECRET is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if len(c.MapKeyPool) == 0 {
		// Falls back to the geocoding key pool so the /get-api-key endpoint
		// still has something to obfuscate in a minimal deployment.
		c.MapKeyPool = c.MapProviderAPIKeys
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string for the content
// store's own database, when it is backed by our Postgres adapter.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
