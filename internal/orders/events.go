package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventPaymentStatusChanged = "PaymentStatusChanged"
	EventStockShortfall       = "StockShortfall"
	EventNotificationRetry    = "NotificationRetry"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string          `json:"order_id"`
	Items       []ItemQty       `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type PaymentStatusChangedPayload struct {
	OrderID       string        `json:"order_id"`
	From          PaymentStatus `json:"from"`
	To            PaymentStatus `json:"to"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Source        string        `json:"source"` // notification | poll
}

type StockShortfallDetail struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Reason    string `json:"reason"`
}

type StockShortfallPayload struct {
	OrderID string                 `json:"order_id"`
	Details []StockShortfallDetail `json:"details"`
}

type NotificationRetryPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}
