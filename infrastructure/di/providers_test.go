package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"evotree-backend/infrastructure/cache"
	"evotree-backend/infrastructure/config"
	"evotree-backend/infrastructure/messaging/eventbridge"
	"evotree-backend/infrastructure/messaging/logbus"
	"evotree-backend/infrastructure/persistence/dynamodb"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.JWTSecret = "test-secret"
	cfg.StorageBackend = "memory"
	cfg.EventsBackend = "none"
	return cfg
}

func TestInitializeContainer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(t *testing.T, c *Container)
	}{
		{
			name:   "memory storage",
			mutate: func(cfg *config.Config) {},
			check: func(t *testing.T, c *Container) {
				assert.Nil(t, c.Storage.SQLite)
				assert.Nil(t, c.Storage.DynamoDB)
				assert.IsType(t, &cache.MemoryCache{}, c.TreeCache)
				assert.IsType(t, logbus.NoopPublisher{}, c.Publisher)
				assert.Nil(t, c.Outbox)
				assert.NotNil(t, c.Metrics)
			},
		},
		{
			name: "sqlite storage without cache or metrics",
			mutate: func(cfg *config.Config) {
				cfg.StorageBackend = "sqlite"
				cfg.SQLitePath = filepath.Join(t.TempDir(), "evolution.db")
				cfg.CacheBackend = "none"
				cfg.EnableMetrics = false
				cfg.EventsBackend = "log"
			},
			check: func(t *testing.T, c *Container) {
				assert.NotNil(t, c.Storage.SQLite)
				assert.IsType(t, cache.NoopCache{}, c.TreeCache)
				assert.IsType(t, &logbus.Publisher{}, c.Publisher)
				assert.Nil(t, c.Metrics)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			c, cleanup, err := InitializeContainer(ctx, cfg)
			require.NoError(t, err)
			defer cleanup()

			assert.NotNil(t, c.Mechanics)
			assert.NotNil(t, c.Links)
			assert.NotNil(t, c.Auth)
			assert.NotNil(t, c.TreeQuery)
			tt.check(t, c)
		})
	}
}

func TestProvideLogger_RejectsUnknownLevel(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "chatty"

	_, err := ProvideLogger(cfg)

	assert.Error(t, err)
}

func TestProvideEventPublisher(t *testing.T) {
	logger := zap.NewNop()
	awsCfg := aws.Config{Region: "us-west-2"}
	dynamoStore := dynamodb.NewStore(nil, "evolution-tree", logger)

	tests := []struct {
		backend string
		want    interface{}
	}{
		{backend: "eventbridge", want: &eventbridge.Publisher{}},
		{backend: "outbox", want: &dynamodb.EventStore{}},
		{backend: "log", want: &logbus.Publisher{}},
		{backend: "none", want: logbus.NoopPublisher{}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := testConfig()
			cfg.EventsBackend = tt.backend

			publisher := ProvideEventPublisher(cfg, awsCfg, &Storage{DynamoDB: dynamoStore}, logger)

			assert.IsType(t, tt.want, publisher)
		})
	}
}

func TestProvideOutboxProcessor(t *testing.T) {
	logger := zap.NewNop()
	storage := &Storage{DynamoDB: dynamodb.NewStore(nil, "evolution-tree", logger)}

	cfg := testConfig()
	assert.Nil(t, ProvideOutboxProcessor(cfg, aws.Config{}, storage, logger))

	cfg.StorageBackend = "dynamodb"
	cfg.EventsBackend = "outbox"
	assert.NotNil(t, ProvideOutboxProcessor(cfg, aws.Config{}, storage, logger))
}

func TestNewHTTPHandler_ServesHealth(t *testing.T) {
	c, cleanup, err := InitializeContainer(context.Background(), testConfig())
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	NewHTTPHandler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
