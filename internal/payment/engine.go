package payment

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"go.uber.org/zap"
)

const (
	sourceNotification = "notification"
	sourcePoll         = "poll"
)

type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	TransitionPaymentStatus(ctx context.Context, id string, from, to orders.PaymentStatus, transactionID string) (bool, error)
}

// StockDebiter debits a paid order's lines and marks the order debited in
// one step. A second call for a marked order changes nothing.
type StockDebiter interface {
	DebitOrder(ctx context.Context, orderID string, lines []inventory.Line) ([]inventory.Shortfall, error)
}

// Engine applies gateway signals to orders. Every signal for one order runs
// under that order's lock, and the status write is conditional on the status
// read under the lock. The debit itself is keyed on the order's debit mark,
// so it happens at most once per order and a failed one is picked up again
// by the next signal or poll for that order.
type Engine struct {
	Gateway Gateway
	Orders  OrderStore
	Stock   StockDebiter
	Locker  Locker
	Events  orders.EventEmitter
	Log     *zap.Logger
}

type transition struct {
	orderID       string
	target        orders.PaymentStatus
	transactionID string
	source        string
}

// HandleNotification verifies and applies a pushed notification. An invalid
// signature changes nothing. Every other failure comes back as
// NotificationProcessingFailed wrapping the cause; retryable causes are also
// queued for the reconciler.
func (e *Engine) HandleNotification(ctx context.Context, n Notification) error {
	log := e.Log.With(zap.String("order_id", n.OrderID), zap.String("transaction_status", n.TransactionStatus))

	if !e.Gateway.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		metrics.RecordNotification("invalid_signature")
		log.Warn("invalid notification signature")
		return apperr.New(apperr.KindInvalidSignature, "Invalid notification signature")
	}

	target := MapNotificationStatus(n.TransactionStatus, n.FraudStatus)
	if _, err := e.apply(ctx, transition{
		orderID:       n.OrderID,
		target:        target,
		transactionID: n.TransactionID,
		source:        sourceNotification,
	}); err != nil {
		metrics.RecordNotification("failed")
		log.Error("notification processing failed", zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
		if apperr.Retryable(err) {
			e.Events.Emit(ctx, orders.TopicPaymentNotificationRetry, orders.EventNotificationRetry, n.OrderID,
				orders.NotificationRetryPayload{OrderID: n.OrderID, Reason: err.Error()})
		}
		return apperr.Wrap(apperr.KindNotificationFailed, err, "Failed to process payment notification")
	}

	metrics.RecordNotification("processed")
	log.Info("notification processed", zap.String("payment_status", string(target)))
	return nil
}

// CheckPaymentStatus polls the gateway and applies the result when it
// differs from the stored status, or when a paid order still owes its stock
// debit. The returned status is the one stored after the call.
func (e *Engine) CheckPaymentStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	o, err := e.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	st, err := e.Gateway.QueryStatus(ctx, orderID)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindGateway {
			err = apperr.Wrap(apperr.KindGateway, err, "Failed to check payment status")
		}
		e.Log.Warn("gateway status query failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}

	effective := o.PaymentStatus
	target := MapPolledStatus(st.TransactionStatus)
	if target != o.PaymentStatus || owesDebit(o) {
		effective, err = e.apply(ctx, transition{
			orderID:       orderID,
			target:        target,
			transactionID: st.TransactionID,
			source:        sourcePoll,
		})
		if err != nil {
			return nil, err
		}
	}

	return &StatusResult{
		OrderID:           orderID,
		PaymentStatus:     string(effective),
		TransactionStatus: st.TransactionStatus,
		PaidAt:            st.SettledAt,
	}, nil
}

// apply runs read-status, conditional write and debit as one unit under the
// order lock and returns the status stored afterwards.
func (e *Engine) apply(ctx context.Context, t transition) (orders.PaymentStatus, error) {
	release, err := e.Locker.Lock(ctx, lockKey(t.orderID))
	if err != nil {
		return "", apperr.Wrap(apperr.KindStoreUnavailable, err, "Failed to lock order")
	}
	defer release()

	o, err := e.Orders.GetOrder(ctx, t.orderID)
	if err != nil {
		return "", err
	}
	prior := o.PaymentStatus
	log := e.Log.With(zap.String("order_id", o.ID), zap.String("source", t.source),
		zap.String("from", string(prior)), zap.String("to", string(t.target)))

	if owesDebit(o) {
		log.Warn("paid order has no stock debit, resuming")
		return prior, e.debit(context.WithoutCancel(ctx), o)
	}

	switch {
	case prior.Terminal():
		if prior != t.target {
			log.Info("order already settled, signal ignored")
		}
		return prior, nil
	case t.source == sourcePoll && prior == t.target:
		return prior, nil
	case !orders.CanTransition(prior, t.target):
		log.Warn("payment status transition not allowed")
		return prior, nil
	}

	ok, err := e.Orders.TransitionPaymentStatus(ctx, o.ID, prior, t.target, t.transactionID)
	if err != nil {
		return "", err
	}
	if !ok {
		log.Info("payment status changed concurrently, write skipped")
		if cur, err := e.Orders.GetOrder(ctx, o.ID); err == nil {
			return cur.PaymentStatus, nil
		}
		return prior, nil
	}

	if prior != t.target {
		metrics.RecordTransition(string(prior), string(t.target), t.source)
		e.Events.Emit(ctx, orders.TopicPaymentStatusChanged, orders.EventPaymentStatusChanged, o.ID,
			orders.PaymentStatusChangedPayload{
				OrderID:       o.ID,
				From:          prior,
				To:            t.target,
				TransactionID: t.transactionID,
				Source:        t.source,
			})
		log.Info("payment status changed")
	}

	if t.target == orders.StatusSuccess {
		// The order is already marked paid; the debit must finish even if the caller goes away.
		if err := e.debit(context.WithoutCancel(ctx), o); err != nil {
			return t.target, err
		}
	}
	return t.target, nil
}

func owesDebit(o *orders.Order) bool {
	return o.PaymentStatus == orders.StatusSuccess && !o.StockDebited
}

func (e *Engine) debit(ctx context.Context, o *orders.Order) error {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	missing, err := e.Stock.DebitOrder(ctx, o.ID, lines)
	if err != nil {
		e.Log.Error("stock debit failed after payment", zap.String("order_id", o.ID), zap.Error(err))
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	shortfalls := make([]orders.StockShortfallDetail, 0, len(missing))
	for _, m := range missing {
		shortfalls = append(shortfalls, orders.StockShortfallDetail{ProductID: m.ProductID, Required: m.Required, Reason: m.Reason})
	}
	e.Events.Emit(ctx, orders.TopicStockShortfall, orders.EventStockShortfall, o.ID,
		orders.StockShortfallPayload{OrderID: o.ID, Details: shortfalls})
	e.Log.Error("stock shortfall after payment", zap.String("order_id", o.ID), zap.Any("details", shortfalls))
	return apperr.WithDetails(apperr.KindStockShortfall, "Stock ran out after payment for order "+o.ID, shortfalls)
}
