package payment

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type StatusChecker interface {
	CheckPaymentStatus(ctx context.Context, orderID string) (*StatusResult, error)
}

type PendingLister interface {
	ListUnsettled(ctx context.Context, age time.Duration, limit int) ([]string, error)
}

// Reconciler catches up orders whose notification failed or never arrived,
// by polling the gateway for them.
type Reconciler struct {
	Checker    StatusChecker
	Pending    PendingLister
	StaleAfter time.Duration
	Batch      int
	Workers    int
	Log        *zap.Logger
}

// HandleRetry consumes payment.notification.retry events. Retryable failures
// are returned so the consumer backs off and runs the event again; anything
// else is logged and dropped, leaving the order to the sweep.
func (r *Reconciler) HandleRetry(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnwrapPayload[orders.Envelope](m.Value)
	if err != nil {
		r.Log.Warn("dropping malformed retry event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.NotificationRetryPayload](env.Payload)
	if err != nil || p.OrderID == "" {
		r.Log.Warn("dropping retry event without order", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	res, err := r.Checker.CheckPaymentStatus(ctx, p.OrderID)
	if err != nil {
		if apperr.Retryable(err) {
			return err
		}
		r.Log.Error("retry reconcile failed", zap.String("order_id", p.OrderID), zap.Error(err))
		return nil
	}
	r.Log.Info("order reconciled from retry", zap.String("order_id", p.OrderID), zap.String("payment_status", res.PaymentStatus))
	return nil
}

// Sweep polls the gateway for every unsettled order older than StaleAfter.
// One order failing does not stop the others; it returns how many were polled.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	ids, err := r.Pending.ListUnsettled(ctx, r.StaleAfter, r.Batch)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))
	for _, id := range ids {
		g.Go(func() error {
			if _, err := r.Checker.CheckPaymentStatus(gctx, id); err != nil {
				r.Log.Warn("sweep reconcile failed", zap.String("order_id", id), zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
			}
			return nil
		})
	}
	return len(ids), g.Wait()
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := r.Sweep(ctx)
		if err != nil {
			r.Log.Error("sweep failed", zap.Error(err))
		} else if n > 0 {
			r.Log.Info("sweep done", zap.Int("orders", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
