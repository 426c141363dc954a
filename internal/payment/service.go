package payment

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"go.uber.org/zap"
)

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
}

type Service struct {
	gateway Gateway
	orders  OrderReader
	log     *zap.Logger
}

func NewService(gateway Gateway, orders OrderReader, log *zap.Logger) *Service {
	return &Service{gateway: gateway, orders: orders, log: log}
}

// CreateTransaction opens a gateway transaction for an unpaid order.
func (s *Service) CreateTransaction(ctx context.Context, orderID string) (*Transaction, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == orders.StatusSuccess {
		return nil, apperr.New(apperr.KindAlreadyPaid, "Order already paid")
	}

	req := TransactionRequest{
		OrderID:     o.ID,
		GrossAmount: o.TotalAmount,
		Customer:    CustomerDetails{Name: o.CustomerName, Email: o.CustomerEmail, Phone: o.CustomerPhone},
		Items:       make([]LineItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, LineItem{ID: it.ProductID, Name: it.ProductName, Price: it.ProductPrice, Quantity: it.Quantity})
	}

	tx, err := s.gateway.CreateTransaction(ctx, req)
	if err != nil {
		s.log.Error("create gateway transaction", zap.String("order_id", o.ID), zap.Error(err))
		if apperr.KindOf(err) != apperr.KindGateway {
			err = apperr.Wrap(apperr.KindGateway, err, "Failed to create payment transaction")
		}
		return nil, err
	}
	s.log.Info("gateway transaction created", zap.String("order_id", o.ID))
	return tx, nil
}
