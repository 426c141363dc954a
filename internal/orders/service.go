package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Store interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, orderID string, items []OrderItem) error
	DeleteOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListItems(ctx context.Context, orderID string) ([]OrderItem, error)
	SetPaymentStatus(ctx context.Context, id string, u StatusUpdate) (bool, error)
	ListUnsettled(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

var _ Store = (*Repo)(nil)

// ProductLookup resolves active products; a missing one is an apperr NotFound.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

type EventEmitter interface {
	Emit(ctx context.Context, topic, eventType, orderID string, payload any)
}

type Service struct {
	store    Store
	products ProductLookup
	events   EventEmitter
	log      *zap.Logger
}

func NewService(store Store, products ProductLookup, events EventEmitter, log *zap.Logger) *Service {
	return &Service{store: store, products: products, events: events, log: log}
}

func NewOrderID() string {
	return "ORD-" + strings.ToUpper(uuid.NewString())
}

// CreateOrder prices the cart from the current catalog and persists the order
// with its items. Stock is only checked here, never reserved; the debit
// happens once the payment succeeds. Between the two the same units can be
// sold twice (known gap).
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if len(in.Items) == 0 {
		return nil, apperr.New(apperr.KindValidation, "At least one item is required")
	}

	o := &Order{
		ID:              NewOrderID(),
		CustomerName:    in.Customer.Name,
		CustomerEmail:   in.Customer.Email,
		CustomerPhone:   in.Customer.Phone,
		CustomerAddress: in.Customer.Address,
		PaymentStatus:   StatusPending,
		TotalAmount:     decimal.Zero,
	}

	items := make([]OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, apperr.New(apperr.KindValidation, "Quantity must be at least 1")
		}
		p, err := s.products.GetProduct(ctx, it.ProductID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Product not found: "+it.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if p.Stock < it.Quantity {
			return nil, apperr.WithDetails(apperr.KindInsufficientStock,
				fmt.Sprintf("Insufficient stock for %s. Available: %d", p.Name, p.Stock),
				map[string]any{"productId": p.ID, "requested": it.Quantity, "available": p.Stock})
		}

		subtotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		o.TotalAmount = o.TotalAmount.Add(subtotal)
		items = append(items, OrderItem{
			OrderID:      o.ID,
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     it.Quantity,
			Subtotal:     subtotal,
		})
	}

	if err := s.store.InsertOrder(ctx, o); err != nil {
		s.log.Error("insert order", zap.String("order_id", o.ID), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to create order")
	}
	if err := s.store.InsertItems(ctx, o.ID, items); err != nil {
		// The order row must not outlive its items, even if the caller is gone.
		if derr := s.store.DeleteOrder(context.WithoutCancel(ctx), o.ID); derr != nil {
			s.log.Error("compensating delete failed", zap.String("order_id", o.ID), zap.Error(derr))
		}
		s.log.Error("insert order items", zap.String("order_id", o.ID), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to create order")
	}

	s.log.Info("order created", zap.String("order_id", o.ID), zap.String("total", o.TotalAmount.String()), zap.Int("items", len(items)))

	qty := make([]ItemQty, 0, len(items))
	for _, it := range items {
		qty = append(qty, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	s.events.Emit(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		Items:       qty,
		TotalAmount: o.TotalAmount,
	})

	return &CreateOrderResult{OrderID: o.ID, TotalAmount: o.TotalAmount, CreatedAt: o.CreatedAt}, nil
}

// GetOrder loads an order with its items. An order without items comes back
// with an empty list.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		s.log.Error("get order", zap.String("order_id", id), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to retrieve order")
	}
	if o == nil {
		return nil, apperr.New(apperr.KindNotFound, "Order not found")
	}
	items, err := s.store.ListItems(ctx, id)
	if err != nil {
		s.log.Error("list order items", zap.String("order_id", id), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to retrieve order")
	}
	if items == nil {
		items = []OrderItem{}
	}
	o.Items = items
	return o, nil
}

// UpdatePaymentStatus overwrites the status without looking at the current
// one. Transition policy belongs to the caller. An unknown id is NotFound.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus, transactionID string) error {
	ok, err := s.store.SetPaymentStatus(ctx, id, StatusUpdate{Status: status, TransactionID: transactionID})
	if err != nil {
		s.log.Error("update payment status", zap.String("order_id", id), zap.Error(err))
		return apperr.Wrap(apperr.KindPersistence, err, "Failed to update payment status")
	}
	if !ok {
		return apperr.New(apperr.KindNotFound, "Order not found")
	}
	s.log.Info("payment status updated", zap.String("order_id", id), zap.String("status", string(status)))
	return nil
}

// TransitionPaymentStatus writes to only if the order still holds from. It
// returns false when another writer got there first.
func (s *Service) TransitionPaymentStatus(ctx context.Context, id string, from, to PaymentStatus, transactionID string) (bool, error) {
	ok, err := s.store.SetPaymentStatus(ctx, id, StatusUpdate{Status: to, TransactionID: transactionID, ExpectedPrior: from})
	if err != nil {
		s.log.Error("transition payment status", zap.String("order_id", id), zap.Error(err))
		return false, apperr.Wrap(apperr.KindPersistence, err, "Failed to update payment status")
	}
	return ok, nil
}

// ListUnsettled returns orders older than age that are still pending or are
// paid but not yet debited.
func (s *Service) ListUnsettled(ctx context.Context, age time.Duration, limit int) ([]string, error) {
	ids, err := s.store.ListUnsettled(ctx, time.Now().Add(-age), limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to list pending orders")
	}
	return ids, nil
}
