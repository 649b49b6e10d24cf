package logbus

import (
	"context"
	"testing"
	"time"

	"evotree-backend/domain/events"
	"evotree-backend/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublisher_LogsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewPublisher(zap.New(core))

	mechanic := fixtures.Mechanic(4)
	batch := []events.DomainEvent{
		events.NewMechanicCreated(mechanic, time.Now()),
		events.NewMechanicDeleted(mechanic, time.Now()),
	}

	require.NoError(t, p.PublishBatch(context.Background(), batch))

	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, events.TypeMechanicCreated, entries[0].ContextMap()["eventType"])
	assert.Equal(t, "4", entries[1].ContextMap()["aggregateID"])
}
