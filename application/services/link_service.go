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

// LinkService implements the link use cases
type LinkService struct {
	mechanicRepo ports.MechanicRepository
	linkRepo     ports.LinkRepository
	effects      sideEffects
	logger       *zap.Logger
	now          func() time.Time
}

// NewLinkService creates a new link service
func NewLinkService(
	mechanicRepo ports.MechanicRepository,
	linkRepo ports.LinkRepository,
	publisher ports.EventPublisher,
	treeCache ports.Cache,
	metrics *observability.Collector,
	logger *zap.Logger,
) *LinkService {
	return &LinkService{
		mechanicRepo: mechanicRepo,
		linkRepo:     linkRepo,
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

// Create connects two existing mechanics
func (s *LinkService) Create(ctx context.Context, fromID, toID valueobjects.MechanicID, linkType string) (*entities.Link, error) {
	link, err := entities.NewLink(fromID, toID, linkType)
	if err != nil {
		return nil, err
	}

	if err := s.requireMechanic(ctx, "from mechanic", fromID); err != nil {
		return nil, err
	}
	if err := s.requireMechanic(ctx, "to mechanic", toID); err != nil {
		return nil, err
	}

	created, err := s.linkRepo.Create(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	s.logger.Info("Link created",
		zap.Int64("linkID", created.ID().Int64()),
		zap.Int64("fromID", fromID.Int64()),
		zap.Int64("toID", toID.Int64()),
		zap.String("type", created.Type()),
	)

	s.effects.count("links_created")
	s.effects.publish(ctx, events.NewLinkCreated(created, s.now()))
	s.effects.invalidateTrees(ctx)

	return created, nil
}

// List returns all links in ID order
func (s *LinkService) List(ctx context.Context) ([]*entities.Link, error) {
	links, err := s.linkRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// ListFrom returns the outgoing links of a mechanic
func (s *LinkService) ListFrom(ctx context.Context, fromID valueobjects.MechanicID) ([]*entities.Link, error) {
	links, err := s.linkRepo.ListByFromID(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links from %d: %w", fromID, err)
	}
	return links, nil
}

// Delete removes a link
func (s *LinkService) Delete(ctx context.Context, id valueobjects.LinkID) error {
	existing, err := s.linkRepo.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to get link %d: %w", id, err)
	}

	if err := s.linkRepo.Delete(ctx, id); err != nil {
		if pkgerrors.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete link %d: %w", id, err)
	}

	s.logger.Info("Link deleted", zap.Int64("linkID", id.Int64()))

	s.effects.count("links_deleted")
	s.effects.publish(ctx, events.NewLinkDeleted(existing, s.now()))
	s.effects.invalidateTrees(ctx)

	return nil
}

func (s *LinkService) requireMechanic(ctx context.Context, side string, id valueobjects.MechanicID) error {
	if _, err := s.mechanicRepo.GetByID(ctx, id); err != nil {
		if pkgerrors.IsNotFound(err) {
			return pkgerrors.NewNotFoundError(fmt.Sprintf("%s %d", side, id))
		}
		return fmt.Errorf("failed to resolve %s %d: %w", side, id, err)
	}
	return nil
}
