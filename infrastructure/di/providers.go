package di

import (
	"context"
	"fmt"
	"time"

	"evotree-backend/application/ports"
	"evotree-backend/application/queries/handlers"
	"evotree-backend/application/services"
	"evotree-backend/infrastructure/cache"
	"evotree-backend/infrastructure/config"
	"evotree-backend/infrastructure/mail"
	"evotree-backend/infrastructure/messaging/eventbridge"
	"evotree-backend/infrastructure/messaging/logbus"
	"evotree-backend/infrastructure/persistence/dynamodb"
	"evotree-backend/infrastructure/persistence/memory"
	"evotree-backend/infrastructure/persistence/sqlite"
	"evotree-backend/pkg/auth"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

const (
	serviceName      = "evotree"
	metricsNamespace = "evotree"
	cacheSweep       = time.Minute
	limiterSweep     = 5 * time.Minute
)

// Storage groups the repositories of the selected storage backend.
// SQLite and DynamoDB are set only when that backend is in use.
type Storage struct {
	Mechanics ports.MechanicRepository
	Links     ports.LinkRepository
	Users     ports.UserRepository
	Tokens    ports.EmailTokenRepository

	SQLite   *sqlite.Store
	DynamoDB *dynamodb.Store
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build(zap.Fields(zap.String("service", serviceName)))
}

// ProvideAWSConfig creates AWS configuration. With DYNAMODB_ENDPOINT set the
// static local credentials used by DynamoDB Local are installed.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.DynamoDBEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideStorage opens the configured storage backend
func ProvideStorage(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*Storage, func(), error) {
	switch cfg.StorageBackend {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using sqlite storage", zap.String("path", cfg.SQLitePath))
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
		return &Storage{
			Mechanics: store.Mechanics(),
			Links:     store.Links(),
			Users:     store.Users(),
			Tokens:    store.EmailTokens(),
			SQLite:    store,
		}, cleanup, nil

	case "dynamodb":
		store := dynamodb.NewStore(ProvideDynamoDBClient(awsCfg, cfg), cfg.DynamoDBTable, logger)
		if cfg.DynamoDBEndpoint != "" {
			if err := store.EnsureTable(ctx); err != nil {
				return nil, nil, err
			}
		}
		logger.Info("Using dynamodb storage",
			zap.String("table", cfg.DynamoDBTable),
			zap.String("endpoint", cfg.DynamoDBEndpoint),
		)
		return &Storage{
			Mechanics: store.Mechanics(),
			Links:     store.Links(),
			Users:     store.Users(),
			Tokens:    store.EmailTokens(),
			DynamoDB:  store,
		}, func() {}, nil

	default:
		store := memory.NewStore()
		logger.Warn("Using in-memory storage; data is lost on exit")
		return &Storage{
			Mechanics: store.Mechanics(),
			Links:     store.Links(),
			Users:     store.Users(),
			Tokens:    store.EmailTokens(),
		}, func() {}, nil
	}
}

// ProvideEventPublisher selects the domain event sink
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, storage *Storage, logger *zap.Logger) ports.EventPublisher {
	switch cfg.EventsBackend {
	case "eventbridge":
		return eventbridge.NewPublisher(ProvideEventBridgeClient(awsCfg), cfg.EventBusName, logger)
	case "outbox":
		return storage.DynamoDB.Events()
	case "none":
		return logbus.NoopPublisher{}
	default:
		return logbus.NewPublisher(logger)
	}
}

// ProvideOutboxProcessor creates the outbox relay, or returns nil when the
// outbox backend is not configured.
func ProvideOutboxProcessor(cfg *config.Config, awsCfg aws.Config, storage *Storage, logger *zap.Logger) *dynamodb.OutboxProcessor {
	if cfg.EventsBackend != "outbox" || storage.DynamoDB == nil {
		return nil
	}

	var target ports.EventPublisher = logbus.NewPublisher(logger)
	if cfg.OutboxRelayTarget == "eventbridge" {
		target = eventbridge.NewPublisher(ProvideEventBridgeClient(awsCfg), cfg.EventBusName, logger)
	}

	return dynamodb.NewOutboxProcessor(
		storage.DynamoDB.Events(),
		target,
		dynamodb.NewDistributedLock(storage.DynamoDB),
		logger,
	)
}

// ProvideTreeCache selects the tree cache backend
func ProvideTreeCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Cache, func()) {
	switch cfg.CacheBackend {
	case "redis":
		c := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err := c.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable at startup; tree cache will fail open",
				zap.String("addr", cfg.RedisAddr),
				zap.Error(err),
			)
		}
		return c, func() { _ = c.Close() }
	case "none":
		return cache.NoopCache{}, func() {}
	default:
		c := cache.NewMemoryCache(cacheSweep)
		return c, func() { _ = c.Close() }
	}
}

// ProvideMetrics creates the Prometheus collector. Disabled metrics return a
// nil collector, which records nothing.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideJWTService creates the access token issuer
func ProvideJWTService(cfg *config.Config) (*auth.JWTService, error) {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{cfg.JWTIssuer},
		TTL:       cfg.AccessTokenTTL(),
	})
}

// ProvidePasswordHasher creates the bcrypt hasher
func ProvidePasswordHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(0)
}

// ProvideMailer creates the verification mailer
func ProvideMailer(logger *zap.Logger) ports.Mailer {
	return mail.NewLogMailer(logger)
}

// ProvideRateLimiter creates the per-IP limiter for the auth routes. Idle
// client windows are swept until ctx is done.
func ProvideRateLimiter(ctx context.Context, cfg *config.Config) *auth.IPRateLimiter {
	window := auth.NewSlidingWindowLimiter(cfg.AuthRateLimitPerMinute, time.Minute)
	window.StartSweeper(ctx, limiterSweep)
	return auth.NewIPRateLimiterWith(window, cfg.AuthRateLimitPerMinute)
}

// ProvideErrorHandler creates the HTTP error writer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideMechanicService creates the mechanic service
func ProvideMechanicService(
	storage *Storage,
	publisher ports.EventPublisher,
	treeCache ports.Cache,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.MechanicService {
	return services.NewMechanicService(storage.Mechanics, publisher, treeCache, metrics, logger)
}

// ProvideLinkService creates the link service
func ProvideLinkService(
	storage *Storage,
	publisher ports.EventPublisher,
	treeCache ports.Cache,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.LinkService {
	return services.NewLinkService(storage.Mechanics, storage.Links, publisher, treeCache, metrics, logger)
}

// ProvideAuthService creates the account service
func ProvideAuthService(
	cfg *config.Config,
	storage *Storage,
	mailer ports.Mailer,
	tokens *auth.JWTService,
	hasher *auth.PasswordHasher,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.AuthService {
	return services.NewAuthService(
		storage.Users,
		storage.Tokens,
		mailer,
		tokens,
		hasher,
		publisher,
		metrics,
		services.AuthConfig{
			PublicBaseURL: cfg.PublicBaseURL,
			EmailTokenTTL: cfg.EmailTokenTTL(),
		},
		logger,
	)
}

// ProvideTreeQuery creates the cached tree query handler
func ProvideTreeQuery(
	cfg *config.Config,
	storage *Storage,
	treeCache ports.Cache,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *handlers.GetMechanicTreeHandler {
	builder := services.NewTreeBuilder(storage.Mechanics, storage.Links, logger)
	return handlers.NewGetMechanicTreeHandler(builder, treeCache, cfg.TreeCacheTTL(), metrics, tracer, logger)
}
