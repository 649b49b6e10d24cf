package services

import (
	"context"

	"evotree-backend/application/ports"
	"evotree-backend/domain/events"
	"evotree-backend/pkg/observability"

	"go.uber.org/zap"
)

// sideEffects bundles the best-effort work that follows a successful write.
// None of it can fail the write itself.
type sideEffects struct {
	publisher ports.EventPublisher
	treeCache ports.Cache
	metrics   *observability.Collector
	logger    *zap.Logger
}

func (s sideEffects) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish domain event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

// invalidateTrees drops every cached tree. Any write can change any tree
// that reaches the touched mechanic, so the whole tree cache goes.
func (s sideEffects) invalidateTrees(ctx context.Context) {
	if s.treeCache == nil {
		return
	}
	if err := s.treeCache.Clear(ctx); err != nil {
		s.metrics.IncrementCounter("cache_errors")
		s.logger.Warn("Failed to invalidate tree cache", zap.Error(err))
	}
}

func (s sideEffects) count(name string) {
	s.metrics.IncrementCounter(name)
}
