package catalog

import (
	"context"
	"math"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type Store interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CountProducts(ctx context.Context, f Filter) (int, error)
	FindProducts(ctx context.Context, f Filter, limit, offset int) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
}

var _ Store = (*Repo)(nil)

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// ListCategories returns every category ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	cs, err := s.store.ListCategories(ctx)
	if err != nil {
		s.log.Error("list categories", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "Failed to retrieve categories")
	}
	return cs, nil
}

// ListProducts pages through active products. Page and Limit fall back to
// 1 and 10 when unset. Limit has no upper bound (known gap: the cap needs a
// product decision).
func (s *Service) ListProducts(ctx context.Context, q Query) (*ProductPage, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	f := Filter{CategoryID: strings.TrimSpace(q.Category), Search: strings.TrimSpace(q.Search)}
	if f.CategoryID != "" {
		if _, err := uuid.Parse(f.CategoryID); err != nil {
			return nil, apperr.WithDetails(apperr.KindValidation, "Invalid query parameters",
				[]map[string]string{{"field": "category", "message": "Invalid category ID"}})
		}
	}

	total, err := s.store.CountProducts(ctx, f)
	if err != nil {
		s.log.Error("count products", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "Failed to retrieve products")
	}
	products, err := s.store.FindProducts(ctx, f, limit, pageOffset(page, limit))
	if err != nil {
		s.log.Error("find products", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "Failed to retrieve products")
	}

	return &ProductPage{
		Products: products,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages(total, limit),
		},
	}, nil
}

// GetProduct returns an active product or a NotFound error.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.New(apperr.KindNotFound, "Product not found")
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		s.log.Error("get product", zap.String("product_id", id), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "Failed to retrieve product")
	}
	if p == nil {
		return nil, apperr.New(apperr.KindNotFound, "Product not found")
	}
	return p, nil
}

// pageOffset saturates at math.MaxInt; a page past the end yields no rows.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func totalPages(total, limit int) int {
	n := total / limit
	if total%limit != 0 {
		n++
	}
	return n
}
