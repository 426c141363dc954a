package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is copied onto the order at creation; later edits elsewhere do
// not reach existing orders.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Order struct {
	ID                   string          `json:"id"`
	CustomerName         string          `json:"customer_name"`
	CustomerEmail        string          `json:"customer_email"`
	CustomerPhone        string          `json:"customer_phone"`
	CustomerAddress      string          `json:"customer_address"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	GatewayTransactionID string          `json:"gateway_transaction_id,omitempty"`
	StockDebited         bool            `json:"-"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	Items                []OrderItem     `json:"items"`
}

// OrderItem snapshots the product at order time. Subtotal is computed once
// and never recomputed from later catalog prices.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderInput struct {
	Customer Customer
	Items    []ItemInput
}

type CreateOrderResult struct {
	OrderID     string          `json:"orderId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// StatusUpdate describes a payment status write. An empty ExpectedPrior
// makes the write unconditional.
type StatusUpdate struct {
	Status        PaymentStatus
	TransactionID string
	ExpectedPrior PaymentStatus
}
