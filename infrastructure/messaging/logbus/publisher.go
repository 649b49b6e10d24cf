// Package logbus publishes domain events to the application log.
package logbus

import (
	"context"
	"encoding/json"

	"evotree-backend/domain/events"

	"go.uber.org/zap"
)

// Publisher writes every event as a structured log line
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a log publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

// Publish logs a single event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.logger.Info("Domain event",
		zap.String("eventID", event.GetEventID()),
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
		zap.ByteString("payload", payload),
	)
	return nil
}

// PublishBatch logs each event in order
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// NoopPublisher drops every event. Used when EVENTS_BACKEND=none.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event events.DomainEvent) error { return nil }

func (NoopPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	return nil
}
