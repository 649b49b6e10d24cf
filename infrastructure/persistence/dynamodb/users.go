package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type userItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	EntityType     string `dynamodbav:"EntityType"`
	ID             int64  `dynamodbav:"ID"`
	Email          string `dynamodbav:"Email"`
	Username       string `dynamodbav:"Username"`
	HashedPassword string `dynamodbav:"HashedPassword"`
	IsVerified     bool   `dynamodbav:"IsVerified"`
	CreatedAt      int64  `dynamodbav:"CreatedAt"`
}

// uniqueItem reserves a unique value and points back at its owner
type uniqueItem struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	OwnerID int64  `dynamodbav:"OwnerID"`
	Value   string `dynamodbav:"Value,omitempty"`
}

func emailPK(email string) string       { return "USEREMAIL#" + strings.ToLower(email) }
func usernamePK(username string) string { return "USERNAME#" + username }

func newUserItem(u *entities.User) userItem {
	return userItem{
		PK:             entityPK(entityUser, u.ID().Int64()),
		SK:             metadataSK,
		EntityType:     entityUser,
		ID:             u.ID().Int64(),
		Email:          u.Email(),
		Username:       u.Username(),
		HashedPassword: u.HashedPassword(),
		IsVerified:     u.IsVerified(),
		CreatedAt:      u.CreatedAt().UnixNano(),
	}
}

func (i userItem) toEntity() (*entities.User, error) {
	return entities.ReconstructUser(valueobjects.UserID(i.ID), i.Email, i.Username, i.HashedPassword, i.IsVerified, time.Unix(0, i.CreatedAt).UTC())
}

func putTransact(table string, item interface{}, condition string) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal item: %w", err)
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(table),
			Item:                av,
			ConditionExpression: aws.String(condition),
		},
	}, nil
}

func deleteTransact(table, pk, sk string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(table),
			Key:       itemKey(pk, sk),
		},
	}
}

// failedConditions returns the indexes of transaction items whose condition failed
func failedConditions(err error) []int {
	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return nil
	}
	var failed []int
	for i, reason := range cancelled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			failed = append(failed, i)
		}
	}
	return failed
}

// UserRepository implements ports.UserRepository. Email and username
// uniqueness is enforced with marker items written in the same transaction.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, u *entities.User) (*entities.User, error) {
	id, err := r.s.nextID(ctx, entityUser)
	if err != nil {
		return nil, err
	}
	created := u.WithID(valueobjects.UserID(id))

	user, err := putTransact(r.s.tableName, newUserItem(created), "attribute_not_exists(PK)")
	if err != nil {
		return nil, err
	}
	email, err := putTransact(r.s.tableName, uniqueItem{PK: emailPK(created.Email()), SK: uniqueSK, OwnerID: id}, "attribute_not_exists(PK)")
	if err != nil {
		return nil, err
	}
	username, err := putTransact(r.s.tableName, uniqueItem{PK: usernamePK(created.Username()), SK: uniqueSK, OwnerID: id}, "attribute_not_exists(PK)")
	if err != nil {
		return nil, err
	}

	_, err = r.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{user, email, username},
	})
	if err != nil {
		for _, i := range failedConditions(err) {
			switch i {
			case 1:
				return nil, pkgerrors.NewConflictError("Email already registered").WithCode(pkgerrors.CodeEmailTaken)
			case 2:
				return nil, pkgerrors.NewConflictError("Username already taken").WithCode(pkgerrors.CodeUsernameTaken)
			}
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	var item userItem
	found, err := r.s.getItem(ctx, entityPK(entityUser, id.Int64()), metadataSK, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if !found {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	return item.toEntity()
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.byMarker(ctx, emailPK(email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.byMarker(ctx, usernamePK(username))
}

func (r *UserRepository) byMarker(ctx context.Context, pk string) (*entities.User, error) {
	var marker uniqueItem
	found, err := r.s.getItem(ctx, pk, uniqueSK, &marker)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !found {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	return r.GetByID(ctx, valueobjects.UserID(marker.OwnerID))
}

// Update rewrites the user and moves its uniqueness markers when email or username change
func (r *UserRepository) Update(ctx context.Context, u *entities.User) (*entities.User, error) {
	existing, err := r.GetByID(ctx, u.ID())
	if err != nil {
		return nil, err
	}

	user, err := putTransact(r.s.tableName, newUserItem(u), "attribute_exists(PK)")
	if err != nil {
		return nil, err
	}
	items := []types.TransactWriteItem{user}
	conflicts := map[int]*pkgerrors.AppError{}

	if !strings.EqualFold(existing.Email(), u.Email()) {
		marker, err := putTransact(r.s.tableName, uniqueItem{PK: emailPK(u.Email()), SK: uniqueSK, OwnerID: u.ID().Int64()}, "attribute_not_exists(PK)")
		if err != nil {
			return nil, err
		}
		conflicts[len(items)] = pkgerrors.NewConflictError("Email already registered").WithCode(pkgerrors.CodeEmailTaken)
		items = append(items, marker, deleteTransact(r.s.tableName, emailPK(existing.Email()), uniqueSK))
	}
	if existing.Username() != u.Username() {
		marker, err := putTransact(r.s.tableName, uniqueItem{PK: usernamePK(u.Username()), SK: uniqueSK, OwnerID: u.ID().Int64()}, "attribute_not_exists(PK)")
		if err != nil {
			return nil, err
		}
		conflicts[len(items)] = pkgerrors.NewConflictError("Username already taken").WithCode(pkgerrors.CodeUsernameTaken)
		items = append(items, marker, deleteTransact(r.s.tableName, usernamePK(existing.Username()), uniqueSK))
	}

	_, err = r.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		for _, i := range failedConditions(err) {
			if i == 0 {
				return nil, pkgerrors.NewNotFoundError("user")
			}
			if conflict, ok := conflicts[i]; ok {
				return nil, conflict
			}
		}
		return nil, fmt.Errorf("failed to update user %d: %w", u.ID(), err)
	}
	return u, nil
}

type emailTokenItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ID         int64  `dynamodbav:"ID"`
	UserID     int64  `dynamodbav:"UserID"`
	Token      string `dynamodbav:"Token"`
	CreatedAt  int64  `dynamodbav:"CreatedAt"`
	ExpiresAt  int64  `dynamodbav:"ExpiresAt"`
	IsUsed     bool   `dynamodbav:"IsUsed"`
}

func tokenPK(token string) string { return "EMAILTOKEN#" + token }

func (i emailTokenItem) toEntity() (*entities.EmailToken, error) {
	return entities.ReconstructEmailToken(i.ID, valueobjects.UserID(i.UserID), i.Token,
		time.Unix(0, i.CreatedAt).UTC(), time.Unix(0, i.ExpiresAt).UTC(), i.IsUsed)
}

// EmailTokenRepository implements ports.EmailTokenRepository
type EmailTokenRepository struct {
	s *Store
}

func (r *EmailTokenRepository) Create(ctx context.Context, t *entities.EmailToken) (*entities.EmailToken, error) {
	id, err := r.s.nextID(ctx, entityEmailToken)
	if err != nil {
		return nil, err
	}
	created := t.WithID(id)

	token, err := putTransact(r.s.tableName, emailTokenItem{
		PK:         tokenPK(created.Token()),
		SK:         metadataSK,
		EntityType: entityEmailToken,
		ID:         id,
		UserID:     created.UserID().Int64(),
		Token:      created.Token(),
		CreatedAt:  created.CreatedAt().UnixNano(),
		ExpiresAt:  created.ExpiresAt().UnixNano(),
		IsUsed:     created.IsUsed(),
	}, "attribute_not_exists(PK)")
	if err != nil {
		return nil, err
	}
	marker, err := putTransact(r.s.tableName, uniqueItem{PK: entityPK("EMAILTOKENID", id), SK: uniqueSK, OwnerID: created.UserID().Int64(), Value: created.Token()}, "attribute_not_exists(PK)")
	if err != nil {
		return nil, err
	}

	_, err = r.s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{token, marker},
	})
	if err != nil {
		if failed := failedConditions(err); len(failed) > 0 && failed[0] == 0 {
			return nil, pkgerrors.NewConflictError("token already exists")
		}
		return nil, fmt.Errorf("failed to save email token: %w", err)
	}
	return created, nil
}

func (r *EmailTokenRepository) GetByToken(ctx context.Context, token string) (*entities.EmailToken, error) {
	var item emailTokenItem
	found, err := r.s.getItem(ctx, tokenPK(token), metadataSK, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to get email token: %w", err)
	}
	if !found {
		return nil, pkgerrors.NewNotFoundError("email token")
	}
	return item.toEntity()
}

func (r *EmailTokenRepository) MarkAsUsed(ctx context.Context, id int64) error {
	var marker uniqueItem
	found, err := r.s.getItem(ctx, entityPK("EMAILTOKENID", id), uniqueSK, &marker)
	if err != nil {
		return fmt.Errorf("failed to look up email token %d: %w", id, err)
	}
	if !found {
		return pkgerrors.NewNotFoundError("email token")
	}

	_, err = r.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.s.tableName),
		Key:                 itemKey(tokenPK(marker.Value), metadataSK),
		UpdateExpression:    aws.String("SET IsUsed = :used"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":used": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if isConditionFailed(err) {
		return pkgerrors.NewNotFoundError("email token")
	}
	if err != nil {
		return fmt.Errorf("failed to mark email token %d used: %w", id, err)
	}
	return nil
}

func (r *EmailTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	filter := entityFilter(entityEmailToken).And(
		expression.Name("ExpiresAt").LessThanEqual(expression.Value(now.UnixNano())),
	)
	var items []emailTokenItem
	if err := r.s.scanAll(ctx, filter, &items); err != nil {
		return 0, fmt.Errorf("failed to find expired email tokens: %w", err)
	}

	keys := make([]map[string]types.AttributeValue, 0, 2*len(items))
	for _, item := range items {
		keys = append(keys,
			itemKey(item.PK, item.SK),
			itemKey(entityPK("EMAILTOKENID", item.ID), uniqueSK),
		)
	}
	if err := r.s.batchDelete(ctx, keys); err != nil {
		return 0, fmt.Errorf("failed to delete expired email tokens: %w", err)
	}
	return len(items), nil
}
