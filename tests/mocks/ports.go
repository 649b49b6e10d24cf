// Package mocks holds testify mocks of the application ports
package mocks

import (
	"context"
	"time"

	"evotree-backend/domain/core/aggregates"
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockMechanicRepository is a mock of ports.MechanicRepository
type MockMechanicRepository struct {
	mock.Mock
}

func (m *MockMechanicRepository) Create(ctx context.Context, mechanic *entities.Mechanic) (*entities.Mechanic, error) {
	args := m.Called(ctx, mechanic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Mechanic), args.Error(1)
}

func (m *MockMechanicRepository) GetByID(ctx context.Context, id valueobjects.MechanicID) (*entities.Mechanic, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Mechanic), args.Error(1)
}

func (m *MockMechanicRepository) ListAll(ctx context.Context) ([]*entities.Mechanic, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Mechanic), args.Error(1)
}

func (m *MockMechanicRepository) Update(ctx context.Context, mechanic *entities.Mechanic) (*entities.Mechanic, error) {
	args := m.Called(ctx, mechanic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Mechanic), args.Error(1)
}

func (m *MockMechanicRepository) Delete(ctx context.Context, id valueobjects.MechanicID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockLinkRepository is a mock of ports.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(ctx context.Context, link *entities.Link) (*entities.Link, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Link), args.Error(1)
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id valueobjects.LinkID) (*entities.Link, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Link), args.Error(1)
}

func (m *MockLinkRepository) ListAll(ctx context.Context) ([]*entities.Link, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Link), args.Error(1)
}

func (m *MockLinkRepository) ListByFromID(ctx context.Context, fromID valueobjects.MechanicID) ([]*entities.Link, error) {
	args := m.Called(ctx, fromID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Link), args.Error(1)
}

func (m *MockLinkRepository) Delete(ctx context.Context, id valueobjects.LinkID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventPublisher is a mock of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockCache is a mock of ports.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMailer is a mock of ports.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationEmail(ctx context.Context, to, username, link string) error {
	args := m.Called(ctx, to, username, link)
	return args.Error(0)
}

// MockTreeBuilder is a mock of the tree query's builder dependency
type MockTreeBuilder struct {
	mock.Mock
}

func (m *MockTreeBuilder) BuildTree(ctx context.Context, rootID valueobjects.MechanicID) (*aggregates.TreeNode, error) {
	args := m.Called(ctx, rootID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.TreeNode), args.Error(1)
}
