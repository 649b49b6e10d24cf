package services

import (
	"context"
	"fmt"
	"time"

	"evotree-backend/application/ports"
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/domain/events"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/observability"

	"go.uber.org/zap"
)

// MechanicService implements the mechanic use cases
type MechanicService struct {
	mechanicRepo ports.MechanicRepository
	effects      sideEffects
	logger       *zap.Logger
	now          func() time.Time
}

// NewMechanicService creates a new mechanic service
func NewMechanicService(
	mechanicRepo ports.MechanicRepository,
	publisher ports.EventPublisher,
	treeCache ports.Cache,
	metrics *observability.Collector,
	logger *zap.Logger,
) *MechanicService {
	return &MechanicService{
		mechanicRepo: mechanicRepo,
		effects: sideEffects{
			publisher: publisher,
			treeCache: treeCache,
			metrics:   metrics,
			logger:    logger,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Create validates and stores a new mechanic
func (s *MechanicService) Create(ctx context.Context, name string, description *string, year *int) (*entities.Mechanic, error) {
	mechanic, err := entities.NewMechanic(name, description, year)
	if err != nil {
		return nil, err
	}

	created, err := s.mechanicRepo.Create(ctx, mechanic)
	if err != nil {
		return nil, fmt.Errorf("failed to create mechanic: %w", err)
	}

	s.logger.Info("Mechanic created",
		zap.Int64("mechanicID", created.ID().Int64()),
		zap.String("name", created.Name()),
	)

	s.effects.count("mechanics_created")
	s.effects.publish(ctx, events.NewMechanicCreated(created, s.now()))
	s.effects.invalidateTrees(ctx)

	return created, nil
}

// Get returns a single mechanic
func (s *MechanicService) Get(ctx context.Context, id valueobjects.MechanicID) (*entities.Mechanic, error) {
	mechanic, err := s.mechanicRepo.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get mechanic %d: %w", id, err)
	}
	return mechanic, nil
}

// List returns all mechanics in ID order
func (s *MechanicService) List(ctx context.Context) ([]*entities.Mechanic, error) {
	mechanics, err := s.mechanicRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mechanics: %w", err)
	}
	return mechanics, nil
}

// Update replaces the fields of an existing mechanic
func (s *MechanicService) Update(ctx context.Context, id valueobjects.MechanicID, name string, description *string, year *int) (*entities.Mechanic, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := existing.WithChanges(name, description, year)
	if err != nil {
		return nil, err
	}

	updated, err := s.mechanicRepo.Update(ctx, changed)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update mechanic %d: %w", id, err)
	}

	s.logger.Info("Mechanic updated", zap.Int64("mechanicID", id.Int64()))

	s.effects.publish(ctx, events.NewMechanicUpdated(existing, updated, s.now()))
	s.effects.invalidateTrees(ctx)

	return updated, nil
}

// Delete removes a mechanic together with its links
func (s *MechanicService) Delete(ctx context.Context, id valueobjects.MechanicID) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.mechanicRepo.Delete(ctx, id); err != nil {
		if pkgerrors.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete mechanic %d: %w", id, err)
	}

	s.logger.Info("Mechanic deleted", zap.Int64("mechanicID", id.Int64()))

	s.effects.count("mechanics_deleted")
	s.effects.publish(ctx, events.NewMechanicDeleted(existing, s.now()))
	s.effects.invalidateTrees(ctx)

	return nil
}
