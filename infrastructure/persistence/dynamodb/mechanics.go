package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

type mechanicItem struct {
	PK          string  `dynamodbav:"PK"`
	SK          string  `dynamodbav:"SK"`
	EntityType  string  `dynamodbav:"EntityType"`
	ID          int64   `dynamodbav:"ID"`
	Name        string  `dynamodbav:"Name"`
	Description *string `dynamodbav:"Description,omitempty"`
	Year        *int    `dynamodbav:"Year,omitempty"`
}

func newMechanicItem(m *entities.Mechanic) mechanicItem {
	return mechanicItem{
		PK:          entityPK(entityMechanic, m.ID().Int64()),
		SK:          metadataSK,
		EntityType:  entityMechanic,
		ID:          m.ID().Int64(),
		Name:        m.Name(),
		Description: m.Description(),
		Year:        m.Year(),
	}
}

func (i mechanicItem) toEntity() (*entities.Mechanic, error) {
	return entities.ReconstructMechanic(valueobjects.MechanicID(i.ID), i.Name, i.Description, i.Year)
}

// MechanicRepository implements ports.MechanicRepository
type MechanicRepository struct {
	s *Store
}

func (r *MechanicRepository) Create(ctx context.Context, m *entities.Mechanic) (*entities.Mechanic, error) {
	id, err := r.s.nextID(ctx, entityMechanic)
	if err != nil {
		return nil, err
	}

	created := m.WithID(valueobjects.MechanicID(id))
	if err := r.s.putItem(ctx, newMechanicItem(created), "attribute_not_exists(PK)"); err != nil {
		return nil, fmt.Errorf("failed to save mechanic %d: %w", id, err)
	}
	return created, nil
}

func (r *MechanicRepository) GetByID(ctx context.Context, id valueobjects.MechanicID) (*entities.Mechanic, error) {
	var item mechanicItem
	found, err := r.s.getItem(ctx, entityPK(entityMechanic, id.Int64()), metadataSK, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to get mechanic %d: %w", id, err)
	}
	if !found {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}
	return item.toEntity()
}

func (r *MechanicRepository) ListAll(ctx context.Context) ([]*entities.Mechanic, error) {
	var items []mechanicItem
	if err := r.s.scanAll(ctx, entityFilter(entityMechanic), &items); err != nil {
		return nil, fmt.Errorf("failed to list mechanics: %w", err)
	}

	out := make([]*entities.Mechanic, 0, len(items))
	for _, item := range items {
		m, err := item.toEntity()
		if err != nil {
			return nil, fmt.Errorf("invalid stored mechanic %d: %w", item.ID, err)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *MechanicRepository) Update(ctx context.Context, m *entities.Mechanic) (*entities.Mechanic, error) {
	err := r.s.putItem(ctx, newMechanicItem(m), "attribute_exists(PK)")
	if isConditionFailed(err) {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update mechanic %d: %w", m.ID(), err)
	}
	return m, nil
}

// Delete removes the mechanic and then every link touching it. The two steps
// are not atomic; a failure after the first leaves dangling links, which the
// tree builder skips.
func (r *MechanicRepository) Delete(ctx context.Context, id valueobjects.MechanicID) error {
	err := r.s.deleteExisting(ctx, entityPK(entityMechanic, id.Int64()), metadataSK)
	if isConditionFailed(err) {
		return pkgerrors.NewNotFoundError("mechanic")
	}
	if err != nil {
		return fmt.Errorf("failed to delete mechanic %d: %w", id, err)
	}

	filter := entityFilter(entityLink).And(
		expression.Name("FromID").Equal(expression.Value(id.Int64())).
			Or(expression.Name("ToID").Equal(expression.Value(id.Int64()))),
	)
	var links []linkItem
	if err := r.s.scanAll(ctx, filter, &links); err != nil {
		return fmt.Errorf("failed to find links of mechanic %d: %w", id, err)
	}

	keys := make([]map[string]types.AttributeValue, 0, len(links))
	for _, l := range links {
		keys = append(keys, itemKey(l.PK, l.SK))
	}
	if err := r.s.batchDelete(ctx, keys); err != nil {
		return fmt.Errorf("failed to delete links of mechanic %d: %w", id, err)
	}

	r.s.logger.Debug("Deleted mechanic", zap.Int64("mechanicID", id.Int64()), zap.Int("links", len(keys)))
	return nil
}

type linkItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ID         int64  `dynamodbav:"ID"`
	FromID     int64  `dynamodbav:"FromID"`
	ToID       int64  `dynamodbav:"ToID"`
	Type       string `dynamodbav:"Type"`
}

func (i linkItem) toEntity() (*entities.Link, error) {
	return entities.ReconstructLink(valueobjects.LinkID(i.ID), valueobjects.MechanicID(i.FromID), valueobjects.MechanicID(i.ToID), i.Type)
}

// LinkRepository implements ports.LinkRepository
type LinkRepository struct {
	s *Store
}

func (r *LinkRepository) Create(ctx context.Context, l *entities.Link) (*entities.Link, error) {
	mechanics := r.s.Mechanics()
	for _, endpoint := range []valueobjects.MechanicID{l.FromID(), l.ToID()} {
		if _, err := mechanics.GetByID(ctx, endpoint); err != nil {
			return nil, err
		}
	}

	id, err := r.s.nextID(ctx, entityLink)
	if err != nil {
		return nil, err
	}

	created := l.WithID(valueobjects.LinkID(id))
	item := linkItem{
		PK:         entityPK(entityLink, id),
		SK:         metadataSK,
		EntityType: entityLink,
		ID:         id,
		FromID:     created.FromID().Int64(),
		ToID:       created.ToID().Int64(),
		Type:       created.Type(),
	}
	if err := r.s.putItem(ctx, item, "attribute_not_exists(PK)"); err != nil {
		return nil, fmt.Errorf("failed to save link %d: %w", id, err)
	}
	return created, nil
}

func (r *LinkRepository) GetByID(ctx context.Context, id valueobjects.LinkID) (*entities.Link, error) {
	var item linkItem
	found, err := r.s.getItem(ctx, entityPK(entityLink, id.Int64()), metadataSK, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to get link %d: %w", id, err)
	}
	if !found {
		return nil, pkgerrors.NewNotFoundError("link")
	}
	return item.toEntity()
}

func (r *LinkRepository) ListAll(ctx context.Context) ([]*entities.Link, error) {
	return r.list(ctx, entityFilter(entityLink))
}

func (r *LinkRepository) ListByFromID(ctx context.Context, fromID valueobjects.MechanicID) ([]*entities.Link, error) {
	return r.list(ctx, entityFilter(entityLink).And(expression.Name("FromID").Equal(expression.Value(fromID.Int64()))))
}

func (r *LinkRepository) list(ctx context.Context, filter expression.ConditionBuilder) ([]*entities.Link, error) {
	var items []linkItem
	if err := r.s.scanAll(ctx, filter, &items); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	out := make([]*entities.Link, 0, len(items))
	for _, item := range items {
		l, err := item.toEntity()
		if err != nil {
			return nil, fmt.Errorf("invalid stored link %d: %w", item.ID, err)
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *LinkRepository) Delete(ctx context.Context, id valueobjects.LinkID) error {
	err := r.s.deleteExisting(ctx, entityPK(entityLink, id.Int64()), metadataSK)
	if isConditionFailed(err) {
		return pkgerrors.NewNotFoundError("link")
	}
	if err != nil {
		return fmt.Errorf("failed to delete link %d: %w", id, err)
	}
	return nil
}
