package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/cache"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
)

type mockCaseRepository struct {
	mock.Mock
}

func (m *mockCaseRepository) Create(ctx context.Context, c *entities.Case) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCaseRepository) GetByID(ctx context.Context, id string) (*entities.Case, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Case), args.Error(1)
}

func (m *mockCaseRepository) List(ctx context.Context) ([]*entities.Case, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Case), args.Error(1)
}

func (m *mockCaseRepository) Replace(ctx context.Context, c *entities.Case) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCaseRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestCachedCaseAdapter_GetByIDReadsThrough(t *testing.T) {
	ctx := context.Background()
	repo := new(mockCaseRepository)
	repo.On("GetByID", ctx, "c1").Return(&entities.Case{ID: "c1", Name: "Ada"}, nil).Once()

	adapter := NewCachedCaseAdapter(repo, cache.NewMemoryAdapter(), nil)

	first, err := adapter.GetByID(ctx, "c1")
	require.NoError(t, err)
	second, err := adapter.GetByID(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, "Ada", first.Name)
	assert.Equal(t, "Ada", second.Name)
	repo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestCachedCaseAdapter_ReplaceInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := new(mockCaseRepository)
	updated := &entities.Case{ID: "c1", Name: "Renamed"}

	repo.On("GetByID", ctx, "c1").Return(&entities.Case{ID: "c1", Name: "Ada"}, nil).Once()
	repo.On("List", ctx).Return([]*entities.Case{{ID: "c1", Name: "Ada"}}, nil).Once()
	repo.On("Replace", ctx, updated).Return(nil)
	repo.On("GetByID", ctx, "c1").Return(updated, nil).Once()
	repo.On("List", ctx).Return([]*entities.Case{updated}, nil).Once()

	adapter := NewCachedCaseAdapter(repo, cache.NewMemoryAdapter(), nil)

	_, err := adapter.GetByID(ctx, "c1")
	require.NoError(t, err)
	_, err = adapter.List(ctx)
	require.NoError(t, err)

	require.NoError(t, adapter.Replace(ctx, updated))

	got, err := adapter.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	list, err := adapter.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", list[0].Name)
	repo.AssertExpectations(t)
}

func TestCachedCaseAdapter_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := new(mockCaseRepository)
	repo.On("List", ctx).Return([]*entities.Case{{ID: "c1"}}, nil).Once()
	repo.On("Delete", ctx, "c1").Return(nil)
	repo.On("List", ctx).Return([]*entities.Case{}, nil).Once()

	adapter := NewCachedCaseAdapter(repo, cache.NewMemoryAdapter(), nil)

	list, _ := adapter.List(ctx)
	require.Len(t, list, 1)
	require.NoError(t, adapter.Delete(ctx, "c1"))

	list, err := adapter.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
