//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"evotree-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideStorage,
	ProvideEventPublisher,
	ProvideOutboxProcessor,
	ProvideTreeCache,
	ProvideMetrics,
	ProvideTracer,
	ProvideJWTService,
	ProvidePasswordHasher,
	ProvideMailer,
	ProvideRateLimiter,
	ProvideErrorHandler,
	ProvideMechanicService,
	ProvideLinkService,
	ProvideAuthService,
	ProvideTreeQuery,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
