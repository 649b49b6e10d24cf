package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"evotree-backend/application/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const outboxLockResource = "outbox-relay"

// OutboxProcessor relays pending outbox records to a publisher. A distributed
// lock keeps concurrent instances from relaying the same records.
type OutboxProcessor struct {
	store     *EventStore
	publisher ports.EventPublisher
	lock      *DistributedLock
	logger    *zap.Logger

	ownerID     string
	batchSize   int
	interval    time.Duration
	maxAttempts int
	now         func() time.Time

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a processor relaying from store to publisher
func NewOutboxProcessor(store *EventStore, publisher ports.EventPublisher, lock *DistributedLock, logger *zap.Logger) *OutboxProcessor {
	host, _ := os.Hostname()
	return &OutboxProcessor{
		store:       store,
		publisher:   publisher,
		lock:        lock,
		logger:      logger,
		ownerID:     host + "-" + uuid.NewString(),
		batchSize:   50,
		interval:    5 * time.Second,
		maxAttempts: 3,
		now:         time.Now,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins relaying in the background
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int("batchSize", op.batchSize),
		zap.Duration("interval", op.interval),
	)
	go op.processLoop(ctx)
}

// Stop gracefully stops the processor
func (op *OutboxProcessor) Stop() {
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("Outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if _, err := op.ProcessBatch(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch relays one batch and reports how many records were published.
// It does nothing when another instance holds the relay lock.
func (op *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	if op.lock != nil {
		lock, err := op.lock.AcquireLock(ctx, outboxLockResource, op.ownerID, op.interval*2)
		if errors.Is(err, ErrLockHeld) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				op.logger.Warn("Failed to release outbox lock", zap.Error(err))
			}
		}()
	}

	records, err := op.store.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}

	published := 0
	for _, record := range records {
		if err := op.publisher.Publish(ctx, record.ToEvent()); err != nil {
			attempts := record.PublishAttempts + 1
			op.logger.Warn("Failed to relay event",
				zap.String("eventID", record.EventID),
				zap.String("eventType", record.EventType),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			if markErr := op.store.MarkEventAsFailed(ctx, record, err.Error(), attempts, op.maxAttempts); markErr != nil {
				return published, markErr
			}
			continue
		}

		if err := op.store.MarkEventAsPublished(ctx, record, op.now()); err != nil {
			return published, err
		}
		published++
	}

	if len(records) > 0 {
		op.logger.Debug("Completed outbox batch",
			zap.Int("pending", len(records)),
			zap.Int("published", published),
		)
	}
	return published, nil
}
