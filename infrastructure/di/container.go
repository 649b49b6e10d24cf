package di

import (
	"evotree-backend/application/ports"
	"evotree-backend/application/queries/handlers"
	"evotree-backend/application/services"
	"evotree-backend/infrastructure/config"
	"evotree-backend/infrastructure/persistence/dynamodb"
	"evotree-backend/pkg/auth"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Storage      *Storage
	Publisher    ports.EventPublisher
	Outbox       *dynamodb.OutboxProcessor
	TreeCache    ports.Cache
	Metrics      *observability.Collector
	Tracer       *observability.Tracer
	RateLimiter  *auth.IPRateLimiter
	ErrorHandler *pkgerrors.ErrorHandler
	Mechanics    *services.MechanicService
	Links        *services.LinkService
	Auth         *services.AuthService
	TreeQuery    *handlers.GetMechanicTreeHandler
}
