package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ErrLockHeld is returned when another owner holds an unexpired lock
var ErrLockHeld = errors.New("lock already held")

// DistributedLock provides distributed locking using DynamoDB conditional writes
type DistributedLock struct {
	s   *Store
	now func() time.Time
}

// NewDistributedLock creates a lock manager over the store's table
func NewDistributedLock(s *Store) *DistributedLock {
	return &DistributedLock{s: s, now: time.Now}
}

func lockKey(resource string) map[string]types.AttributeValue {
	return itemKey("LOCK#"+resource, "LOCK")
}

// AcquireLock takes the lock for resource unless another owner holds it
func (dl *DistributedLock) AcquireLock(ctx context.Context, resource, ownerID string, lockDuration time.Duration) (*Lock, error) {
	now := dl.now()
	expiresAt := now.Add(lockDuration)
	lockID := fmt.Sprintf("%s_%d", ownerID, now.UnixNano())

	item := lockKey(resource)
	item["LockID"] = &types.AttributeValueMemberS{Value: lockID}
	item["Owner"] = &types.AttributeValueMemberS{Value: ownerID}
	item["ExpiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.UnixNano(), 10)}
	item["TTL"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix(), 10)}

	_, err := dl.s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(dl.s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixNano(), 10)},
		},
	})
	if isConditionFailed(err) {
		dl.s.logger.Debug("Failed to acquire lock - already held",
			zap.String("resource", resource),
			zap.String("owner", ownerID),
		)
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return &Lock{
		distributedLock: dl,
		resource:        resource,
		lockID:          lockID,
		ownerID:         ownerID,
		expiresAt:       expiresAt,
	}, nil
}

// ReleaseLock deletes the lock if it is still ours
func (dl *DistributedLock) ReleaseLock(ctx context.Context, resource, lockID, ownerID string) error {
	_, err := dl.s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(dl.s.tableName),
		Key:                 lockKey(resource),
		ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
			":owner":  &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if isConditionFailed(err) {
		dl.s.logger.Warn("Lock already released or owned by someone else",
			zap.String("resource", resource),
			zap.String("lockID", lockID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Lock represents an acquired distributed lock
type Lock struct {
	distributedLock *DistributedLock
	resource        string
	lockID          string
	ownerID         string
	expiresAt       time.Time
}

// Release releases the lock
func (l *Lock) Release(ctx context.Context) error {
	return l.distributedLock.ReleaseLock(ctx, l.resource, l.lockID, l.ownerID)
}

// ExpiresAt reports when the lock lapses on its own
func (l *Lock) ExpiresAt() time.Time {
	return l.expiresAt
}
