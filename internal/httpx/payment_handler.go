package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TransactionCreator interface {
	CreateTransaction(ctx context.Context, orderID string) (*payment.Transaction, error)
}

type PaymentEngine interface {
	HandleNotification(ctx context.Context, n payment.Notification) error
	CheckPaymentStatus(ctx context.Context, orderID string) (*payment.StatusResult, error)
}

type PaymentHandler struct {
	Transactions TransactionCreator
	Engine       PaymentEngine
	Log          *zap.Logger
}

type createTransactionReq struct {
	OrderID string `json:"orderId" validate:"required"`
}

type ackBody struct {
	Message string `json:"message"`
}

// RegisterWebhook is kept apart so the gateway callback is not subject to
// the client rate limits.
func (h *PaymentHandler) RegisterWebhook(r chi.Router) {
	r.Post("/payment/notification", h.notification)
}

func (h *PaymentHandler) Register(r chi.Router, createLimit func(http.Handler) http.Handler) {
	r.With(createLimit).Post("/payment/create-transaction", h.createTransaction)
	r.Get("/payment/status/{orderId}", h.status)
}

func (h *PaymentHandler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, h.Log, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	if err := validateBody(req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Transactions.CreateTransaction(ctx, req.OrderID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, tx)
}

// notification always answers 200: a non-2xx makes the gateway redeliver,
// and failures are already logged and queued for reconciliation.
func (h *PaymentHandler) notification(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		h.Log.Warn("undecodable payment notification", zap.Error(err))
		writeData(w, http.StatusOK, ackBody{Message: "Notification received"})
		return
	}
	h.Log.Info("payment notification received", zap.String("order_id", n.OrderID))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Engine.HandleNotification(ctx, n); err != nil {
		writeData(w, http.StatusOK, ackBody{Message: "Notification received"})
		return
	}
	writeData(w, http.StatusOK, ackBody{Message: "Notification processed successfully"})
}

func (h *PaymentHandler) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.CheckPaymentStatus(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeData(w, http.StatusOK, res)
}
