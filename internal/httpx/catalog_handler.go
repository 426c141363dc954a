package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogService interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	ListProducts(ctx context.Context, q catalog.Query) (*catalog.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

type CatalogHandler struct {
	Service CatalogService
	Log     *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/categories", h.listCategories)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cs, err := h.Service.ListCategories(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, cs)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := catalog.Query{Category: qs.Get("category"), Search: qs.Get("search")}

	var bad []FieldError
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"limit", &q.Limit}} {
		raw := qs.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			bad = append(bad, FieldError{Field: p.name, Message: "Must be a positive integer"})
			continue
		}
		*p.dst = n
	}
	if len(bad) > 0 {
		writeError(w, r, h.Log, apperr.WithDetails(apperr.KindValidation, "Invalid query parameters", bad))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	page, err := h.Service.ListProducts(ctx, q)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Service.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, p)
}
