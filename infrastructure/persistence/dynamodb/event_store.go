package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"evotree-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PublishStatus represents the publishing status of an outbox record
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
)

// published records are kept for a week, then DynamoDB TTL removes them
const publishedRetention = 7 * 24 * time.Hour

// EventRecord is how an event is stored in the outbox
type EventRecord struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	EntityType      string `dynamodbav:"EntityType"`
	EventID         string `dynamodbav:"EventID"`
	EventType       string `dynamodbav:"EventType"`
	AggregateID     string `dynamodbav:"AggregateID"`
	Version         int    `dynamodbav:"Version"`
	Timestamp       int64  `dynamodbav:"Timestamp"`
	Payload         string `dynamodbav:"Payload"`
	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`
	TTL             int64  `dynamodbav:"TTL,omitempty"`
}

// ToEvent rebuilds the event so it can be relayed with its original payload
func (r EventRecord) ToEvent() events.RecordedEvent {
	return events.RecordedEvent{
		BaseEvent: events.BaseEvent{
			EventID:     r.EventID,
			AggregateID: r.AggregateID,
			EventType:   r.EventType,
			Timestamp:   time.Unix(0, r.Timestamp).UTC(),
			Version:     r.Version,
		},
		Payload: json.RawMessage(r.Payload),
	}
}

// EventStore is an outbox: Publish persists events as pending records in the
// table and an OutboxProcessor relays them later.
type EventStore struct {
	s *Store
}

// Events returns the outbox event store.
func (s *Store) Events() *EventStore { return &EventStore{s: s} }

// Publish implements ports.EventPublisher by saving the event
func (es *EventStore) Publish(ctx context.Context, event events.DomainEvent) error {
	return es.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch saves the events, 25 per batch write
func (es *EventStore) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	requests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.GetEventID(), err)
		}

		item, err := attributevalue.MarshalMap(EventRecord{
			PK:            "EVENT#" + event.GetEventID(),
			SK:            entityEvent,
			EntityType:    entityEvent,
			EventID:       event.GetEventID(),
			EventType:     event.GetEventType(),
			AggregateID:   event.GetAggregateID(),
			Version:       event.GetVersion(),
			Timestamp:     event.GetTimestamp().UnixNano(),
			Payload:       string(payload),
			PublishStatus: string(PublishStatusPending),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for i := 0; i < len(requests); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}

		result, err := es.s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{es.s.tableName: requests[i:end]},
		})
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}
		if n := len(result.UnprocessedItems[es.s.tableName]); n > 0 {
			return fmt.Errorf("failed to write %d events", n)
		}
	}
	return nil
}

// GetPendingEvents returns up to limit pending records, oldest first
func (es *EventStore) GetPendingEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	filter := entityFilter(entityEvent).And(
		expression.Name("PublishStatus").Equal(expression.Value(string(PublishStatusPending))),
	)
	var records []EventRecord
	if err := es.s.scanAll(ctx, filter, &records); err != nil {
		return nil, fmt.Errorf("failed to scan pending events: %w", err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// MarkEventAsPublished marks a record published and schedules it for expiry
func (es *EventStore) MarkEventAsPublished(ctx context.Context, record EventRecord, now time.Time) error {
	_, err := es.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(es.s.tableName),
		Key:                 itemKey(record.PK, record.SK),
		UpdateExpression:    aws.String("SET PublishStatus = :published, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published": &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(publishedRetention).Unix(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	return nil
}

// MarkEventAsFailed records a failed attempt. The record stays pending until
// maxAttempts is reached.
func (es *EventStore) MarkEventAsFailed(ctx context.Context, record EventRecord, errorMsg string, attempts, maxAttempts int) error {
	status := PublishStatusPending
	if attempts >= maxAttempts {
		status = PublishStatusFailed
	}

	_, err := es.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(es.s.tableName),
		Key:                 itemKey(record.PK, record.SK),
		UpdateExpression:    aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, ErrorMessage = :error"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: string(status)},
			":attempts": &types.AttributeValueMemberN{Value: strconv.Itoa(attempts)},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}
