package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DATABASE_URL", "STORE_FALLBACK", "DB_CONNECT_TIMEOUT",
	"REDIS_ADDR", "CACHE_TTL", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"OTEL_HOST", "TRACE_PROBABILITY", "LOG_LEVEL", "CORS_ORIGINS", "SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.StoreFallback)
	assert.Equal(t, 5*time.Second, cfg.DBConnectTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "orders", cfg.KafkaTopic)
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Equal(t, 1.0, cfg.TraceProbability)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/orders?sslmode=disable")
	t.Setenv("STORE_FALLBACK", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("TRACE_PROBABILITY", "0.25")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.StoreFallback)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 0.25, cfg.TraceProbability)
}

func TestFromEnvInvalid(t *testing.T) {
	tests := map[string]string{
		"PORT":               "abc",
		"STORE_FALLBACK":     "maybe",
		"DB_CONNECT_TIMEOUT": "soon",
		"TRACE_PROBABILITY":  "2",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("PORT")
	os.Unsetenv("REDIS_ADDR")
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("REDIS_ADDR")
	})

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7000\nREDIS_ADDR=cache:6379\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
