package services

import (
	"context"
	"fmt"

	"evotree-backend/application/ports"
	"evotree-backend/domain/core/aggregates"
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TreeBuilder materializes the descendants of a mechanic as a nested tree.
// It holds no state between calls and is safe for concurrent use.
type TreeBuilder struct {
	mechanicRepo ports.MechanicRepository
	linkRepo     ports.LinkRepository
	logger       *zap.Logger
}

// NewTreeBuilder creates a new tree builder
func NewTreeBuilder(
	mechanicRepo ports.MechanicRepository,
	linkRepo ports.LinkRepository,
	logger *zap.Logger,
) *TreeBuilder {
	return &TreeBuilder{
		mechanicRepo: mechanicRepo,
		linkRepo:     linkRepo,
		logger:       logger,
	}
}

// BuildTree resolves the root, loads the whole graph once and expands it.
// A missing root is the only domain error; storage errors are returned wrapped.
func (b *TreeBuilder) BuildTree(ctx context.Context, rootID valueobjects.MechanicID) (*aggregates.TreeNode, error) {
	root, err := b.mechanicRepo.GetByID(ctx, rootID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewNotFoundError("root node")
		}
		return nil, fmt.Errorf("failed to resolve root mechanic %d: %w", rootID, err)
	}

	var (
		mechanics []*entities.Mechanic
		links     []*entities.Link
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if mechanics, err = b.mechanicRepo.ListAll(gctx); err != nil {
			return fmt.Errorf("failed to load mechanics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if links, err = b.linkRepo.ListAll(gctx); err != nil {
			return fmt.Errorf("failed to load links: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree := ExpandTree(root, mechanics, links)

	b.logger.Debug("Built evolution tree",
		zap.Int64("rootID", rootID.Int64()),
		zap.Int("mechanics", len(mechanics)),
		zap.Int("links", len(links)),
		zap.Int("treeSize", tree.Size()),
	)

	return tree, nil
}

// ExpandTree builds the tree rooted at root from an in-memory snapshot.
// Children follow the order of links. Links to mechanics absent from the
// snapshot are skipped, and a mechanic that is already on the path from the
// root becomes a cycle marker leaf.
func ExpandTree(root *entities.Mechanic, mechanics []*entities.Mechanic, links []*entities.Link) *aggregates.TreeNode {
	s := snapshot{
		mechanics: make(map[valueobjects.MechanicID]*entities.Mechanic, len(mechanics)+1),
		adjacency: make(map[valueobjects.MechanicID][]*entities.Link),
	}
	for _, m := range mechanics {
		s.mechanics[m.ID()] = m
	}
	// the root was resolved separately and may be missing from a later listing
	if _, ok := s.mechanics[root.ID()]; !ok {
		s.mechanics[root.ID()] = root
	}
	for _, l := range links {
		s.adjacency[l.FromID()] = append(s.adjacency[l.FromID()], l)
	}

	return s.expand(root, map[valueobjects.MechanicID]struct{}{})
}

type snapshot struct {
	mechanics map[valueobjects.MechanicID]*entities.Mechanic
	adjacency map[valueobjects.MechanicID][]*entities.Link
}

// expand never mutates ancestors; each descent works on its own copy so
// sibling subtrees only see their common path.
func (s snapshot) expand(m *entities.Mechanic, ancestors map[valueobjects.MechanicID]struct{}) *aggregates.TreeNode {
	if _, repeated := ancestors[m.ID()]; repeated {
		return aggregates.NewCycleMarker(m)
	}

	path := make(map[valueobjects.MechanicID]struct{}, len(ancestors)+1)
	for id := range ancestors {
		path[id] = struct{}{}
	}
	path[m.ID()] = struct{}{}

	node := aggregates.NewTreeNode(m)
	for _, link := range s.adjacency[m.ID()] {
		target, ok := s.mechanics[link.ToID()]
		if !ok {
			continue
		}
		node.AddChild(link.Type(), s.expand(target, path))
	}

	return node
}
