package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (*orders.CreateOrderResult, error)
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
}

type OrdersHandler struct {
	Service OrderService
	Log     *zap.Logger
}

type customerInfo struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,min=10"`
	Address string `json:"address" validate:"required,min=10"`
}

type orderItemReq struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderReq struct {
	CustomerInfo customerInfo   `json:"customerInfo"`
	Items        []orderItemReq `json:"items" validate:"required,min=1,dive"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{orderId}", h.getOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.Log, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	if err := validateBody(req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	in := orders.CreateOrderInput{
		Customer: orders.Customer(req.CustomerInfo),
		Items:    make([]orders.ItemInput, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := h.Service.CreateOrder(ctx, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Service.GetOrder(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, o)
}
