package payment

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

const testServerKey = "SB-Mid-server-test"

// memOrders is an in-memory order store with the same conditional-write
// semantics as the SQL repo.
type memOrders struct {
	mu     sync.Mutex
	orders map[string]orders.Order
	writes int
}

func newMemOrders(os ...orders.Order) *memOrders {
	m := &memOrders{orders: map[string]orders.Order{}}
	for _, o := range os {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrders) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Order not found")
	}
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return &o, nil
}

func (m *memOrders) TransitionPaymentStatus(_ context.Context, id string, from, to orders.PaymentStatus, txID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != from {
		return false, nil
	}
	o.PaymentStatus = to
	if txID != "" {
		o.GatewayTransactionID = txID
	}
	m.orders[id] = o
	m.writes++
	return true, nil
}

func (m *memOrders) status(id string) orders.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].PaymentStatus
}

func (m *memOrders) markDebited(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.StockDebited {
		return false
	}
	o.StockDebited = true
	m.orders[id] = o
	return true
}

func (m *memOrders) debited(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].StockDebited
}

// memStock debits lines and stamps the order in memOrders as one step, like
// the SQL ledger. err fails the whole call with nothing applied.
type memStock struct {
	mu     sync.Mutex
	orders *memOrders
	stock  map[string]int
	debits int
	err    error
}

func (s *memStock) DebitOrder(_ context.Context, orderID string, lines []inventory.Line) ([]inventory.Shortfall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.orders.debited(orderID) {
		return nil, nil
	}
	var shortfalls []inventory.Shortfall
	for _, ln := range lines {
		cur, ok := s.stock[ln.ProductID]
		switch {
		case !ok:
			shortfalls = append(shortfalls, inventory.Shortfall{ProductID: ln.ProductID, Required: ln.Quantity, Reason: inventory.ReasonProductNotFound})
		case cur < ln.Quantity:
			shortfalls = append(shortfalls, inventory.Shortfall{ProductID: ln.ProductID, Required: ln.Quantity, Available: cur, Reason: inventory.ReasonInsufficientStock})
		default:
			s.stock[ln.ProductID] = cur - ln.Quantity
		}
	}
	s.orders.markDebited(orderID)
	s.debits++
	return shortfalls, nil
}

func (s *memStock) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *memStock) level(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

type fakeGateway struct {
	status   *GatewayStatus
	queryErr error
	created  []TransactionRequest
	tx       *Transaction
	txErr    error
}

func (g *fakeGateway) CreateTransaction(_ context.Context, req TransactionRequest) (*Transaction, error) {
	g.created = append(g.created, req)
	return g.tx, g.txErr
}

func (g *fakeGateway) QueryStatus(context.Context, string) (*GatewayStatus, error) {
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	s := *g.status
	return &s, nil
}

func (g *fakeGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return VerifySignature(orderID, statusCode, grossAmount, signatureKey, testServerKey)
}

type emitted struct {
	topic   string
	orderID string
	payload any
}

type memEvents struct {
	mu     sync.Mutex
	events []emitted
}

func (e *memEvents) Emit(_ context.Context, topic, _, orderID string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{topic, orderID, payload})
}

func (e *memEvents) topics() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.topic)
	}
	return out
}

// noLock grants every request immediately, leaving the conditional write as
// the only guard.
type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func signedNotification(orderID, txStatus, fraud string) Notification {
	n := Notification{
		OrderID:           orderID,
		TransactionStatus: txStatus,
		FraudStatus:       fraud,
		StatusCode:        "200",
		GrossAmount:       "300000.00",
		TransactionID:     "tx-" + orderID,
	}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}
