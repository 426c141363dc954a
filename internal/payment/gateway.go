// Package payment drives an order's payment through the external gateway:
// transaction creation, webhook notifications and status polling, and the
// one-time stock debit when an order first reaches success.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error)
	QueryStatus(ctx context.Context, orderID string) (*GatewayStatus, error)
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

type TransactionRequest struct {
	OrderID     string
	GrossAmount decimal.Decimal
	Customer    CustomerDetails
	Items       []LineItem
}

type CustomerDetails struct {
	Name  string
	Email string
	Phone string
}

type LineItem struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

type Transaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
}

// GatewayStatus is the polled view of a transaction. It carries no fraud
// verdict that the mapping relies on.
type GatewayStatus struct {
	TransactionStatus string
	TransactionID     string
	FraudStatus       string
	SettledAt         string
}

// Notification is the webhook body pushed by the gateway.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	SignatureKey      string `json:"signature_key"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type,omitempty"`
	TransactionTime   string `json:"transaction_time,omitempty"`
}

type StatusResult struct {
	OrderID           string `json:"orderId"`
	PaymentStatus     string `json:"paymentStatus"`
	TransactionStatus string `json:"transactionStatus"`
	PaidAt            string `json:"paidAt,omitempty"`
}

// Locker serialises work on one key across callers. The returned release
// func is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

func lockKey(orderID string) string { return "order:" + orderID }
