package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListCategories(ctx context.Context) ([]Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Category), args.Error(1)
}

func (m *mockStore) CountProducts(ctx context.Context, f Filter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) FindProducts(ctx context.Context, f Filter, limit, offset int) ([]Product, error) {
	args := m.Called(ctx, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Product), args.Error(1)
}

func (m *mockStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

const testProductID = "6f1c2a43-9d1e-4f4b-9a55-0b8a1f2e7c10"

func products(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		out[i] = Product{Name: "Keyboard", Price: decimal.NewFromInt(250000), Stock: 3, IsActive: true}
	}
	return out
}

func TestService_ListProducts(t *testing.T) {
	tests := []struct {
		name            string
		query           Query
		setupMocks      func(*mockStore)
		expectedPage    Pagination
		expectedCount   int
		expectedErrKind apperr.Kind
	}{
		{
			name:  "second page of twelve with limit five",
			query: Query{Page: 2, Limit: 5},
			setupMocks: func(s *mockStore) {
				s.On("CountProducts", mock.Anything, Filter{}).Return(12, nil)
				s.On("FindProducts", mock.Anything, Filter{}, 5, 5).Return(products(5), nil)
			},
			expectedPage:  Pagination{Page: 2, Limit: 5, Total: 12, TotalPages: 3},
			expectedCount: 5,
		},
		{
			name:  "defaults applied when page and limit absent",
			query: Query{Search: "  key "},
			setupMocks: func(s *mockStore) {
				s.On("CountProducts", mock.Anything, Filter{Search: "key"}).Return(3, nil)
				s.On("FindProducts", mock.Anything, Filter{Search: "key"}, 10, 0).Return(products(3), nil)
			},
			expectedPage:  Pagination{Page: 1, Limit: 10, Total: 3, TotalPages: 1},
			expectedCount: 3,
		},
		{
			// Locks in current behaviour: no cap on limit.
			name:  "limit is not capped",
			query: Query{Page: 1, Limit: 5000},
			setupMocks: func(s *mockStore) {
				s.On("CountProducts", mock.Anything, Filter{}).Return(0, nil)
				s.On("FindProducts", mock.Anything, Filter{}, 5000, 0).Return([]Product{}, nil)
			},
			expectedPage: Pagination{Page: 1, Limit: 5000, Total: 0, TotalPages: 0},
		},
		{
			name:  "huge limit still yields one page",
			query: Query{Page: 1, Limit: math.MaxInt},
			setupMocks: func(s *mockStore) {
				s.On("CountProducts", mock.Anything, Filter{}).Return(12, nil)
				s.On("FindProducts", mock.Anything, Filter{}, math.MaxInt, 0).Return(products(12), nil)
			},
			expectedPage:  Pagination{Page: 1, Limit: math.MaxInt, Total: 12, TotalPages: 1},
			expectedCount: 12,
		},
		{
			name:  "offset saturates instead of wrapping",
			query: Query{Page: 4, Limit: math.MaxInt / 2},
			setupMocks: func(s *mockStore) {
				s.On("CountProducts", mock.Anything, Filter{}).Return(12, nil)
				s.On("FindProducts", mock.Anything, Filter{}, math.MaxInt/2, math.MaxInt).Return([]Product{}, nil)
			},
			expectedPage: Pagination{Page: 4, Limit: math.MaxInt / 2, Total: 12, TotalPages: 1},
		},
		{
			name:            "invalid category id",
			query:           Query{Category: "electronics"},
			setupMocks:      func(s *mockStore) {},
			expectedErrKind: apperr.KindValidation,
		},
		{
			name:  "store failure",
			query: Query{},
			setupMocks: func(s *mockStore) {
				s.On("CountProducts", mock.Anything, Filter{}).Return(0, errors.New("connection refused"))
			},
			expectedErrKind: apperr.KindStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			tt.setupMocks(store)
			svc := NewService(store, zap.NewNop())

			page, err := svc.ListProducts(context.Background(), tt.query)

			if tt.expectedErrKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedErrKind, apperr.KindOf(err))
				assert.Nil(t, page)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedPage, page.Pagination)
				assert.Len(t, page.Products, tt.expectedCount)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestService_GetProduct(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetProduct", mock.Anything, testProductID).Return(&Product{ID: testProductID, Name: "Mouse"}, nil)

		p, err := NewService(store, zap.NewNop()).GetProduct(context.Background(), testProductID)
		require.NoError(t, err)
		assert.Equal(t, "Mouse", p.Name)
	})

	t.Run("absent or inactive", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetProduct", mock.Anything, testProductID).Return(nil, nil)

		_, err := NewService(store, zap.NewNop()).GetProduct(context.Background(), testProductID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("malformed id never reaches the store", func(t *testing.T) {
		store := new(mockStore)

		_, err := NewService(store, zap.NewNop()).GetProduct(context.Background(), "42")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		store.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
	})
}

func TestService_ListCategories_StoreUnavailable(t *testing.T) {
	store := new(mockStore)
	store.On("ListCategories", mock.Anything).Return(nil, errors.New("timeout"))

	_, err := NewService(store, zap.NewNop()).ListCategories(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}
