package dynamodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/events"
	"evotree-backend/infrastructure/persistence/repotest"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/tests/fixtures"
	"evotree-backend/tests/mocks"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func (m *mockAPI) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.BatchWriteItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

func counterOutput(value string) *dynamodb.UpdateItemOutput {
	return &dynamodb.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{"Value": &types.AttributeValueMemberN{Value: value}},
	}
}

func pkOf(item map[string]types.AttributeValue) string {
	if v, ok := item["PK"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func TestMechanicRepository_CreateAllocatesID(t *testing.T) {
	// Arrange
	ctx := context.Background()
	api := new(mockAPI)
	api.On("UpdateItem", ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return pkOf(in.Key) == "COUNTER#MECHANIC"
	})).Return(counterOutput("7"), nil)
	api.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return pkOf(in.Item) == "MECHANIC#7" && aws.ToString(in.ConditionExpression) == "attribute_not_exists(PK)"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	repo := NewStore(api, "evolution-tree", zap.NewNop()).Mechanics()
	m, err := entities.NewMechanic("Tile placement", nil, nil)
	require.NoError(t, err)

	// Act
	created, err := repo.Create(ctx, m)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID().Int64())
	api.AssertExpectations(t)
}

func TestMechanicRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Should map an empty item to not found", func(t *testing.T) {
		api := new(mockAPI)
		api.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		_, err := NewStore(api, "t", zap.NewNop()).Mechanics().GetByID(ctx, 3)

		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("Should decode optional fields", func(t *testing.T) {
		description := "Draft cards"
		year := 2001
		item, err := attributevalue.MarshalMap(mechanicItem{PK: "MECHANIC#3", SK: metadataSK, EntityType: entityMechanic, ID: 3, Name: "Drafting", Description: &description, Year: &year})
		require.NoError(t, err)

		api := new(mockAPI)
		api.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{Item: item}, nil)

		m, err := NewStore(api, "t", zap.NewNop()).Mechanics().GetByID(ctx, 3)

		require.NoError(t, err)
		assert.Equal(t, "Drafting", m.Name())
		assert.Equal(t, description, *m.Description())
		assert.Equal(t, year, *m.Year())
	})

	t.Run("Should wrap client errors", func(t *testing.T) {
		storageErr := errors.New("throttled")
		api := new(mockAPI)
		api.On("GetItem", ctx, mock.Anything).Return(nil, storageErr)

		_, err := NewStore(api, "t", zap.NewNop()).Mechanics().GetByID(ctx, 3)

		assert.ErrorIs(t, err, storageErr)
		assert.False(t, pkgerrors.IsNotFound(err))
	})
}

func TestMechanicRepository_ConditionFailuresAreNotFound(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("PutItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})
	api.On("DeleteItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	repo := NewStore(api, "t", zap.NewNop()).Mechanics()

	_, err := repo.Update(ctx, fixtures.Mechanic(4))
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsNotFound(repo.Delete(ctx, 4)))
}

func TestUserRepository_CreateConflicts(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		failed  int
		wantMsg string
	}{
		{name: "email taken", failed: 1, wantMsg: "Email already registered"},
		{name: "username taken", failed: 2, wantMsg: "Username already taken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons := []types.CancellationReason{{Code: aws.String("None")}, {Code: aws.String("None")}, {Code: aws.String("None")}}
			reasons[tt.failed].Code = aws.String("ConditionalCheckFailed")

			api := new(mockAPI)
			api.On("UpdateItem", ctx, mock.Anything).Return(counterOutput("1"), nil)
			api.On("TransactWriteItems", ctx, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
				return len(in.TransactItems) == 3 && pkOf(in.TransactItems[1].Put.Item) == "USEREMAIL#ada@example.com"
			})).Return(nil, &types.TransactionCanceledException{CancellationReasons: reasons})

			u, err := entities.NewUser("Ada@example.com", "ada", "hash", time.Now())
			require.NoError(t, err)

			_, err = NewStore(api, "t", zap.NewNop()).Users().Create(ctx, u)

			assert.True(t, pkgerrors.IsConflict(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestEnsureTable_ExistingTable(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("DescribeTable", ctx, mock.Anything).Return(&dynamodb.DescribeTableOutput{}, nil)

	require.NoError(t, NewStore(api, "t", zap.NewNop()).EnsureTable(ctx))
	api.AssertNotCalled(t, "CreateTable", mock.Anything, mock.Anything)
}

func TestOutboxProcessor_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	store := NewStore(api, "t", zap.NewNop())

	record := func(id string, ts int64, attempts int) map[string]types.AttributeValue {
		item, err := attributevalue.MarshalMap(EventRecord{
			PK: "EVENT#" + id, SK: entityEvent, EntityType: entityEvent,
			EventID: id, EventType: events.TypeMechanicCreated, AggregateID: "1",
			Timestamp: ts, Payload: `{"event_id":"` + id + `"}`,
			PublishStatus: string(PublishStatusPending), PublishAttempts: attempts,
		})
		require.NoError(t, err)
		return item
	}

	api.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return pkOf(in.Item) == "LOCK#"+outboxLockResource
	})).Return(&dynamodb.PutItemOutput{}, nil)
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil)
	api.On("Scan", ctx, mock.Anything).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{record("later", 20, 0), record("first", 10, 2)},
	}, nil)

	var statuses []string
	api.On("UpdateItem", ctx, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(*dynamodb.UpdateItemInput)
		if v, ok := in.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS); ok {
			statuses = append(statuses, pkOf(in.Key)+"="+v.Value)
		} else {
			statuses = append(statuses, pkOf(in.Key)+"=published")
		}
	}).Return(&dynamodb.UpdateItemOutput{}, nil)

	publisher := new(mocks.MockEventPublisher)
	publisher.On("Publish", ctx, mock.MatchedBy(func(e events.DomainEvent) bool { return e.GetEventID() == "first" })).
		Return(errors.New("bus down"))
	publisher.On("Publish", ctx, mock.MatchedBy(func(e events.DomainEvent) bool { return e.GetEventID() == "later" })).
		Return(nil)

	processor := NewOutboxProcessor(store.Events(), publisher, NewDistributedLock(store), zap.NewNop())

	published, err := processor.ProcessBatch(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, published)
	// oldest first; the third failed attempt gives up on the record
	assert.Equal(t, []string{"EVENT#first=failed", "EVENT#later=published"}, statuses)
}

func TestOutboxProcessor_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	api.On("PutItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})
	store := NewStore(api, "t", zap.NewNop())

	processor := NewOutboxProcessor(store.Events(), new(mocks.MockEventPublisher), NewDistributedLock(store), zap.NewNop())

	published, err := processor.ProcessBatch(ctx)

	require.NoError(t, err)
	assert.Zero(t, published)
	api.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything)
}

func TestRecordedEvent_MarshalsStoredPayload(t *testing.T) {
	rec := EventRecord{EventID: "e1", EventType: events.TypeLinkCreated, Payload: `{"link_id":3}`}

	data, err := rec.ToEvent().MarshalJSON()

	require.NoError(t, err)
	assert.JSONEq(t, `{"link_id":3}`, string(data))
	assert.Equal(t, events.TypeLinkCreated, rec.ToEvent().GetEventType())
}

// TestStore_Contract runs against DynamoDB Local when DYNAMODB_ENDPOINT is set,
// for example http://localhost:8000.
func TestStore_Contract(t *testing.T) {
	endpoint := os.Getenv("DYNAMODB_ENDPOINT")
	if endpoint == "" {
		t.Skip("DYNAMODB_ENDPOINT not set")
	}

	client := dynamodb.New(dynamodb.Options{
		Region:       "us-west-2",
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
	})

	repotest.Run(t, func(t *testing.T) repotest.Repositories {
		s := NewStore(client, "evotree-test-"+uuid.NewString(), zap.NewNop())
		require.NoError(t, s.EnsureTable(context.Background()))
		return repotest.Repositories{
			Mechanics: s.Mechanics(),
			Links:     s.Links(),
			Users:     s.Users(),
			Tokens:    s.EmailTokens(),
		}
	})
}
