package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "SERVER_ADDRESS", "ENVIRONMENT", "LOG_LEVEL", "STORAGE_BACKEND",
		"SQLITE_PATH", "DYNAMODB_TABLE", "TABLE_NAME", "EVENTS_BACKEND", "CACHE_BACKEND",
		"TREE_CACHE_TTL_SECONDS", "JWT_SECRET", "CORS_ALLOWED_ORIGINS", "ENABLE_METRICS",
		"REDIS_DB", "AUTH_RATE_LIMIT_PER_MINUTE", "DYNAMODB_ENDPOINT", "OUTBOX_RELAY_TARGET",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.ServerAddress)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, time.Minute, cfg.TreeCacheTTL())
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.EmailTokenTTL())
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_backend: memory
tree_cache_ttl_seconds: 120
jwt_secret: from-file
cors_allowed_origins:
  - https://a.example
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TREE_CACHE_TTL_SECONDS", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://b.example, https://c.example")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.TreeCacheTTL())
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with secret", mutate: func(c *Config) {}},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production"; c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "production with development secret", mutate: func(c *Config) { c.Environment = "production"; c.JWTSecret = developmentJWTSecret }, wantErr: "JWT_SECRET"},
		{name: "unknown storage", mutate: func(c *Config) { c.StorageBackend = "postgres" }, wantErr: "STORAGE_BACKEND"},
		{name: "unknown cache", mutate: func(c *Config) { c.CacheBackend = "memcached" }, wantErr: "CACHE_BACKEND"},
		{name: "unknown events", mutate: func(c *Config) { c.EventsBackend = "kafka" }, wantErr: "EVENTS_BACKEND"},
		{name: "outbox on dynamodb", mutate: func(c *Config) { c.StorageBackend = "dynamodb"; c.EventsBackend = "outbox" }},
		{name: "outbox on sqlite", mutate: func(c *Config) { c.EventsBackend = "outbox" }, wantErr: "dynamodb"},
		{name: "outbox unknown target", mutate: func(c *Config) {
			c.StorageBackend = "dynamodb"
			c.EventsBackend = "outbox"
			c.OutboxRelayTarget = "sns"
		}, wantErr: "OUTBOX_RELAY_TARGET"},
		{name: "zero ttl", mutate: func(c *Config) { c.TreeCacheTTLSeconds = 0 }, wantErr: "TREE_CACHE_TTL_SECONDS"},
		{name: "negative token ttl", mutate: func(c *Config) { c.AccessTokenExpireMinutes = -1 }, wantErr: "ACCESS_TOKEN_EXPIRE_MINUTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.JWTSecret = "secret"
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
