// Package dynamodb stores every record in a single DynamoDB table keyed by PK and SK.
//
//	MECHANIC#<id>       METADATA   mechanic
//	LINK#<id>           METADATA   link
//	USER#<id>           METADATA   user
//	USEREMAIL#<email>   UNIQUE     email uniqueness marker
//	USERNAME#<name>     UNIQUE     username uniqueness marker
//	EMAILTOKEN#<token>  METADATA   verification token
//	EMAILTOKENID#<id>   UNIQUE     token id lookup
//	COUNTER#<entity>    COUNTER    id sequence
//	EVENT#<event id>    EVENT      outbox record
//	LOCK#<resource>     LOCK       distributed lock
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	metadataSK = "METADATA"
	uniqueSK   = "UNIQUE"
	counterSK  = "COUNTER"

	entityMechanic   = "MECHANIC"
	entityLink       = "LINK"
	entityUser       = "USER"
	entityEmailToken = "EMAIL_TOKEN"
	entityEvent      = "EVENT"

	// BatchWriteItem accepts at most 25 requests
	maxBatchWrite = 25
	maxRetries    = 3
)

// API is the subset of the DynamoDB client used by the repositories
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store shares a client and table between the repositories
type Store struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewStore creates a store over tableName
func NewStore(client API, tableName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, tableName: tableName, logger: logger}
}

// Mechanics returns the mechanic repository.
func (s *Store) Mechanics() *MechanicRepository { return &MechanicRepository{s: s} }

// Links returns the link repository.
func (s *Store) Links() *LinkRepository { return &LinkRepository{s: s} }

// Users returns the user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// EmailTokens returns the verification token repository.
func (s *Store) EmailTokens() *EmailTokenRepository { return &EmailTokenRepository{s: s} }

// EnsureTable creates the table with on-demand billing when it does not exist
// and waits until it is active.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", s.tableName, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)}, 2*time.Minute); err != nil {
		return fmt.Errorf("table %s did not become active: %w", s.tableName, err)
	}

	s.logger.Info("Created DynamoDB table", zap.String("table", s.tableName))
	return nil
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func entityPK(prefix string, id int64) string {
	return prefix + "#" + strconv.FormatInt(id, 10)
}

func isConditionFailed(err error) bool {
	var conditionalCheckFailed *types.ConditionalCheckFailedException
	return errors.As(err, &conditionalCheckFailed)
}

// nextID atomically increments the counter for entity and returns the new value
func (s *Store) nextID(ctx context.Context, entity string) (int64, error) {
	update := expression.Add(expression.Name("Value"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build counter update: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey("COUNTER#"+entity, counterSK),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", entity, err)
	}

	var counter struct {
		Value int64 `dynamodbav:"Value"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil {
		return 0, fmt.Errorf("failed to read %s counter: %w", entity, err)
	}
	return counter.Value, nil
}

// getItem loads one item into out; found is false when the key is absent
func (s *Store) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	if len(result.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", pk, err)
	}
	return true, nil
}

// putItem writes item, optionally guarded by a condition expression
func (s *Store) putItem(ctx context.Context, item interface{}, condition string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
	}

	_, err = s.client.PutItem(ctx, input)
	return err
}

// deleteExisting removes an item and reports a condition failure when it was absent
func (s *Store) deleteExisting(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 itemKey(pk, sk),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	return err
}

// scanAll runs a filtered scan over the whole table and unmarshals every page
func (s *Store) scanAll(ctx context.Context, filter expression.ConditionBuilder, out interface{}) error {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return fmt.Errorf("failed to build scan filter: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", s.tableName, err)
		}
		items = append(items, page.Items...)
	}

	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("failed to unmarshal scan results: %w", err)
	}
	return nil
}

func entityFilter(entity string) expression.ConditionBuilder {
	return expression.Name("EntityType").Equal(expression.Value(entity))
}

// batchDelete removes keys in chunks of 25, retrying unprocessed requests
func (s *Store) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
	for i := 0; i < len(keys); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(keys) {
			end = len(keys)
		}

		requests := make([]types.WriteRequest, 0, end-i)
		for _, key := range keys[i:end] {
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
		}

		pending := map[string][]types.WriteRequest{s.tableName: requests}
		for attempt := 0; len(pending[s.tableName]) > 0; attempt++ {
			if attempt == maxRetries {
				return fmt.Errorf("failed to delete %d items", len(pending[s.tableName]))
			}
			result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("failed to batch delete: %w", err)
			}
			pending = result.UnprocessedItems
		}
	}
	return nil
}
