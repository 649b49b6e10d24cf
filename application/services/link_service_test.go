package services

import (
	"context"
	"testing"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/domain/events"
	"evotree-backend/infrastructure/persistence/memory"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLinkFixture(t *testing.T) (*memory.Store, *LinkService, *mocks.MockEventPublisher, *mocks.MockCache) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, name := range []string{"Dice", "Dice pool", "Push your luck"} {
		m, err := entities.NewMechanic(name, nil, nil)
		require.NoError(t, err)
		_, err = store.Mechanics().Create(ctx, m)
		require.NoError(t, err)
	}

	publisher := new(mocks.MockEventPublisher)
	cache := new(mocks.MockCache)
	svc := NewLinkService(store.Mechanics(), store.Links(), publisher, cache, nil, zap.NewNop())
	return store, svc, publisher, cache
}

func TestLinkService_Create(t *testing.T) {
	ctx := context.Background()
	_, svc, publisher, cache := newLinkFixture(t)
	publisher.On("Publish", ctx, eventOfType(events.TypeLinkCreated)).Return(nil)
	cache.On("Clear", ctx).Return(nil)

	link, err := svc.Create(ctx, 1, 2, "variant")

	require.NoError(t, err)
	assert.Equal(t, valueobjects.LinkID(1), link.ID())
	assert.Equal(t, "variant", link.Type())
	publisher.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestLinkService_CreateValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		from, to  valueobjects.MechanicID
		linkType  string
		check     func(error) bool
		wantInMsg string
	}{
		{name: "self loop", from: 1, to: 1, linkType: "x", check: pkgerrors.IsValidation, wantInMsg: "itself"},
		{name: "empty type", from: 1, to: 2, linkType: "", check: pkgerrors.IsValidation, wantInMsg: "type"},
		{name: "missing source", from: 9, to: 2, linkType: "x", check: pkgerrors.IsNotFound, wantInMsg: "from mechanic 9"},
		{name: "missing target", from: 1, to: 8, linkType: "x", check: pkgerrors.IsNotFound, wantInMsg: "to mechanic 8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc, publisher, cache := newLinkFixture(t)

			_, err := svc.Create(ctx, tt.from, tt.to, tt.linkType)

			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Contains(t, err.Error(), tt.wantInMsg)

			links, _ := store.Links().ListAll(ctx)
			assert.Empty(t, links)
			publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			cache.AssertNotCalled(t, "Clear", mock.Anything)
		})
	}
}

func TestLinkService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	_, svc, publisher, cache := newLinkFixture(t)
	publisher.On("Publish", ctx, mock.Anything).Return(nil)
	cache.On("Clear", ctx).Return(nil)

	first, err := svc.Create(ctx, 1, 2, "variant")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, 3, "inspired_by")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, 3, "inspired_by")
	require.NoError(t, err)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fromOne, err := svc.ListFrom(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fromOne, 2)
	assert.Equal(t, valueobjects.MechanicID(2), fromOne[0].ToID())
	assert.Equal(t, valueobjects.MechanicID(3), fromOne[1].ToID())

	require.NoError(t, svc.Delete(ctx, first.ID()))
	publisher.AssertCalled(t, "Publish", ctx, eventOfType(events.TypeLinkDeleted))

	all, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.True(t, pkgerrors.IsNotFound(svc.Delete(ctx, first.ID())))
}
