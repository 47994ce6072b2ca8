package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/etianguis/checkout/pkg/config"
	"github.com/etianguis/checkout/pkg/database"
)

// Config holds all configuration for the checkout service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CHECKOUT_HTTP_PORT" envDefault:"8004"`

	// Commerce backend
	CommerceBaseURL        string `env:"COMMERCE_BASE_URL,required"`
	CommercePublishableKey string `env:"COMMERCE_PUBLISHABLE_KEY"`
	CommerceAdminToken     string `env:"COMMERCE_ADMIN_TOKEN"`

	// Commerce HTTP client
	HTTPTimeoutSeconds int `env:"COMMERCE_HTTP_TIMEOUT_SECONDS" envDefault:"8"`
	HTTPMaxRetries     int `env:"COMMERCE_HTTP_MAX_RETRIES" envDefault:"2"`

	// Circuit breaker for commerce backend calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Per-step pipeline timeouts (seconds). Each stage gets its own
	// context.WithTimeout to prevent a slow backend call from consuming
	// the whole request budget.
	CartStepTimeout      int `env:"CHECKOUT_CART_TIMEOUT" envDefault:"10"`
	CompleteStepTimeout  int `env:"CHECKOUT_COMPLETE_TIMEOUT" envDefault:"15"`
	InventoryStepTimeout int `env:"CHECKOUT_INVENTORY_TIMEOUT" envDefault:"20"`
	NotifyStepTimeout    int `env:"CHECKOUT_NOTIFY_TIMEOUT" envDefault:"10"`

	// Inventory reconciliation
	InventoryConcurrency     int `env:"INVENTORY_CONCURRENCY" envDefault:"4"`
	InventoryCacheTTLSeconds int `env:"INVENTORY_CACHE_TTL_SECONDS" envDefault:"30"`
	// "memory" or "redis"
	InventoryCacheBackend string `env:"INVENTORY_CACHE_BACKEND" envDefault:"memory"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"etianguis"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"etianguis_secret"`
	PostgresDB   string `env:"CHECKOUT_DB_NAME" envDefault:"checkout_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (used when INVENTORY_CACHE_BACKEND=redis)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Mail relay
	MailSenderURL string `env:"MAIL_SENDER_URL,required"`
	MailFrom      string `env:"MAIL_FROM" envDefault:"pedidos@etianguis.mx"`
	MailStoreName string `env:"MAIL_STORE_NAME" envDefault:"E-Tianguis"`

	// Manual order retry worker
	RetryWorkerEnabled  bool `env:"RETRY_WORKER_ENABLED" envDefault:"true"`
	RetryWorkerInterval int  `env:"RETRY_WORKER_INTERVAL_SECONDS" envDefault:"300"`
	RetryWorkerBatch    int  `env:"RETRY_WORKER_BATCH_SIZE" envDefault:"20"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Origins allowed to call the API from the browser; "*" during development
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := pkgconfig.Load[Config]()
	if err != nil {
		return nil, fmt.Errorf("load checkout config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	for name, rawURL := range map[string]string{
		"COMMERCE_BASE_URL": c.CommerceBaseURL,
		"MAIL_SENDER_URL":   c.MailSenderURL,
	} {
		if rawURL == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.ParseRequestURI(rawURL); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, rawURL, err)
		}
	}
	if c.InventoryCacheBackend != "memory" && c.InventoryCacheBackend != "redis" {
		return fmt.Errorf("INVENTORY_CACHE_BACKEND must be memory or redis, got %q", c.InventoryCacheBackend)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the database pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis connection configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
