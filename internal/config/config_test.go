package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COMMERCE_BASE_URL", "http://localhost:9000")
	t.Setenv("MAIL_SENDER_URL", "http://localhost:9100")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8004, cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.InventoryCacheBackend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 300, cfg.RetryWorkerInterval)
	assert.True(t, cfg.RetryWorkerEnabled)
}

func TestLoadMissingCommerceURL(t *testing.T) {
	t.Setenv("MAIL_SENDER_URL", "http://localhost:9100")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "CHECKOUT_HTTP_PORT", "70000"},
		{"bad commerce url", "COMMERCE_BASE_URL", "not a url"},
		{"bad cache backend", "INVENTORY_CACHE_BACKEND", "memcached"},
		{"bad sample rate", "OTEL_SAMPLE_RATE", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestPostgresConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("CHECKOUT_DB_NAME", "checkout_prod")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, "checkout_prod", pg.DBName)
	assert.Equal(t, time.Hour, pg.MaxConnLifetime)
	assert.Contains(t, pg.DSN(), "db.internal")
}

func TestRedisConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", cfg.Redis().Addr())
}
