package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"evotree-backend/domain/core/aggregates"
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/infrastructure/persistence/memory"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/tests/fixtures"
	"evotree-backend/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type graphSeed struct {
	mechanics []string
	links     [][3]interface{} // from index, to index, type
}

// seedStore creates mechanics in order, so the nth name gets id n+1
func seedStore(t *testing.T, seed graphSeed) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	for _, name := range seed.mechanics {
		m, err := entities.NewMechanic(name, nil, nil)
		require.NoError(t, err)
		_, err = store.Mechanics().Create(ctx, m)
		require.NoError(t, err)
	}
	for _, l := range seed.links {
		link, err := entities.NewLink(
			valueobjects.MechanicID(l[0].(int)),
			valueobjects.MechanicID(l[1].(int)),
			l[2].(string),
		)
		require.NoError(t, err)
		_, err = store.Links().Create(ctx, link)
		require.NoError(t, err)
	}
	return store
}

func newBuilder(store *memory.Store) *TreeBuilder {
	return NewTreeBuilder(store.Mechanics(), store.Links(), zap.NewNop())
}

func TestBuildTree_RootNotFound(t *testing.T) {
	// Arrange
	store := seedStore(t, graphSeed{mechanics: []string{"Dice"}})
	builder := newBuilder(store)

	// Act
	tree, err := builder.BuildTree(context.Background(), 42)

	// Assert
	require.Error(t, err)
	assert.Nil(t, tree)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, "root node not found", pkgerrors.GetAppError(err).Message)
}

func TestBuildTree_Leaf(t *testing.T) {
	store := seedStore(t, graphSeed{mechanics: []string{"Dice"}})
	builder := newBuilder(store)

	tree, err := builder.BuildTree(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.MechanicID(1), tree.ID)
	assert.NotNil(t, tree.Children)
	assert.Empty(t, tree.Children)
	assert.False(t, tree.Cycle)

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Dice","children":[]}`, string(data))
}

func TestBuildTree_Branching(t *testing.T) {
	store := seedStore(t, graphSeed{
		mechanics: []string{"Root", "A", "B"},
		links: [][3]interface{}{
			{1, 2, "inheritance"},
			{1, 3, "composition"},
		},
	})
	builder := newBuilder(store)

	tree, err := builder.BuildTree(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, tree.Children, 2)
	assert.Equal(t, "inheritance", tree.Children[0].EdgeType)
	assert.Equal(t, valueobjects.MechanicID(2), tree.Children[0].Node.ID)
	assert.Empty(t, tree.Children[0].Node.Children)
	assert.Equal(t, "composition", tree.Children[1].EdgeType)
	assert.Equal(t, valueobjects.MechanicID(3), tree.Children[1].Node.ID)
	assert.Empty(t, tree.Children[1].Node.Children)
}

func TestBuildTree_CycleTermination(t *testing.T) {
	store := seedStore(t, graphSeed{
		mechanics: []string{"M1", "M2", "M3"},
		links: [][3]interface{}{
			{1, 2, "inheritance"},
			{2, 3, "inheritance"},
			{3, 1, "inheritance"},
		},
	})
	builder := newBuilder(store)

	tree, err := builder.BuildTree(context.Background(), 1)
	require.NoError(t, err)

	// 1 -> 2 -> 3 -> 1(cycle)
	require.Len(t, tree.Children, 1)
	second := tree.Children[0].Node
	require.Len(t, second.Children, 1)
	third := second.Children[0].Node
	require.Len(t, third.Children, 1)
	marker := third.Children[0].Node

	assert.Equal(t, valueobjects.MechanicID(1), marker.ID)
	assert.Equal(t, "M1", marker.Name)
	assert.True(t, marker.Cycle)
	assert.NotNil(t, marker.Children)
	assert.Empty(t, marker.Children)
	assert.Equal(t, 4, tree.Size())

	data, err := json.Marshal(marker)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"M1","cycle":true,"children":[]}`, string(data))
}

func TestBuildTree_SelfContainedCycles(t *testing.T) {
	tests := []struct {
		name      string
		seed      graphSeed
		wantSize  int
		wantCycle int
	}{
		{
			name: "two node loop",
			seed: graphSeed{
				mechanics: []string{"A", "B"},
				links:     [][3]interface{}{{1, 2, "x"}, {2, 1, "y"}},
			},
			wantSize:  3,
			wantCycle: 1,
		},
		{
			name: "diamond is not a cycle",
			seed: graphSeed{
				mechanics: []string{"A", "B", "C", "D"},
				links: [][3]interface{}{
					{1, 2, "x"}, {1, 3, "x"}, {2, 4, "x"}, {3, 4, "x"},
				},
			},
			// D appears under both B and C
			wantSize:  5,
			wantCycle: 0,
		},
		{
			name: "cycle below the root",
			seed: graphSeed{
				mechanics: []string{"A", "B", "C"},
				links:     [][3]interface{}{{1, 2, "x"}, {2, 3, "x"}, {3, 2, "x"}},
			},
			wantSize:  4,
			wantCycle: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := newBuilder(seedStore(t, tt.seed))

			tree, err := builder.BuildTree(context.Background(), 1)
			require.NoError(t, err)

			cycles := 0
			tree.Walk(func(n *aggregates.TreeNode, _ int) {
				if n.Cycle {
					cycles++
					assert.Empty(t, n.Children)
				}
			})
			assert.Equal(t, tt.wantSize, tree.Size())
			assert.Equal(t, tt.wantCycle, cycles)
		})
	}
}

func TestBuildTree_Determinism(t *testing.T) {
	store := seedStore(t, graphSeed{
		mechanics: []string{"A", "B", "C", "D", "E"},
		links: [][3]interface{}{
			{1, 3, "b"}, {1, 2, "a"}, {2, 4, "c"}, {3, 4, "d"}, {4, 1, "e"}, {1, 5, "f"},
		},
	})
	builder := newBuilder(store)
	ctx := context.Background()

	first, err := builder.BuildTree(ctx, 1)
	require.NoError(t, err)
	second, err := builder.BuildTree(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))

	// children follow link load order, not target id order
	require.Len(t, first.Children, 3)
	assert.Equal(t, "b", first.Children[0].EdgeType)
	assert.Equal(t, "a", first.Children[1].EdgeType)
	assert.Equal(t, "f", first.Children[2].EdgeType)
}

func TestExpandTree_DanglingLink(t *testing.T) {
	root := fixtures.Mechanic(1)
	mechanics := []*entities.Mechanic{root, fixtures.Mechanic(2)}
	links := []*entities.Link{
		fixtures.Link(1, 1, 2, "kept"),
		fixtures.Link(2, 1, 99, "dangling"),
	}

	tree := ExpandTree(root, mechanics, links)

	require.Len(t, tree.Children, 1)
	assert.Equal(t, "kept", tree.Children[0].EdgeType)
	assert.Equal(t, valueobjects.MechanicID(2), tree.Children[0].Node.ID)
}

func TestExpandTree_RootMissingFromListing(t *testing.T) {
	root := fixtures.Mechanic(1)
	links := []*entities.Link{fixtures.Link(1, 1, 2, "x")}

	tree := ExpandTree(root, []*entities.Mechanic{fixtures.Mechanic(2)}, links)

	assert.Equal(t, valueobjects.MechanicID(1), tree.ID)
	require.Len(t, tree.Children, 1)
}

func TestExpandTree_KeepsDescriptionAndYear(t *testing.T) {
	root := fixtures.NewMechanicBuilder().WithID(1).WithName("Deck building").
		WithDescription("Build a deck during play").WithYear(2008).MustBuild()

	tree := ExpandTree(root, []*entities.Mechanic{root}, nil)

	require.NotNil(t, tree.Description)
	assert.Equal(t, "Build a deck during play", *tree.Description)
	require.NotNil(t, tree.Year)
	assert.Equal(t, 2008, *tree.Year)
}

func TestBuildTree_StorageErrors(t *testing.T) {
	ctx := context.Background()
	storageErr := errors.New("connection reset")

	t.Run("Should wrap root lookup failure", func(t *testing.T) {
		mechanicRepo := new(mocks.MockMechanicRepository)
		linkRepo := new(mocks.MockLinkRepository)
		mechanicRepo.On("GetByID", ctx, valueobjects.MechanicID(1)).Return(nil, storageErr)

		builder := NewTreeBuilder(mechanicRepo, linkRepo, zap.NewNop())
		_, err := builder.BuildTree(ctx, 1)

		assert.ErrorIs(t, err, storageErr)
		assert.False(t, pkgerrors.IsNotFound(err))
		linkRepo.AssertNotCalled(t, "ListAll", mock.Anything)
	})

	t.Run("Should propagate link listing failure", func(t *testing.T) {
		mechanicRepo := new(mocks.MockMechanicRepository)
		linkRepo := new(mocks.MockLinkRepository)
		mechanicRepo.On("GetByID", ctx, valueobjects.MechanicID(1)).Return(fixtures.Mechanic(1), nil)
		mechanicRepo.On("ListAll", mock.Anything).Return([]*entities.Mechanic{fixtures.Mechanic(1)}, nil)
		linkRepo.On("ListAll", mock.Anything).Return(nil, storageErr)

		builder := NewTreeBuilder(mechanicRepo, linkRepo, zap.NewNop())
		tree, err := builder.BuildTree(ctx, 1)

		assert.Nil(t, tree)
		assert.ErrorIs(t, err, storageErr)
	})

	t.Run("Should fail on cancelled context", func(t *testing.T) {
		store := seedStore(t, graphSeed{mechanics: []string{"A"}})
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newBuilder(store).BuildTree(cancelled, 1)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBuildTree_ConcurrentUse(t *testing.T) {
	store := seedStore(t, graphSeed{
		mechanics: []string{"A", "B", "C"},
		links:     [][3]interface{}{{1, 2, "x"}, {2, 3, "y"}, {3, 1, "z"}},
	})
	builder := newBuilder(store)

	var wg sync.WaitGroup
	results := make([]*aggregates.TreeNode, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tree, err := builder.BuildTree(context.Background(), valueobjects.MechanicID(i%3+1))
			assert.NoError(t, err)
			results[i] = tree
		}(i)
	}
	wg.Wait()

	for i, tree := range results {
		require.NotNil(t, tree)
		assert.Equal(t, valueobjects.MechanicID(i%3+1), tree.ID)
		assert.Equal(t, 4, tree.Size())
	}
}
