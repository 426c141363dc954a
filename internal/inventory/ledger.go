// Package inventory debits product stock. Stock is only ever decremented
// here; restocking and returns are handled outside this service.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Ledger struct {
	DB  postgres.DB
	Log *zap.Logger
}

// Debit removes quantity units of productID. The current stock is re-read
// under a row lock right before the write, so concurrent debits never drive
// stock below zero. Debit is not idempotent; callers guard against replays.
func (l *Ledger) Debit(ctx context.Context, productID string, quantity int) error {
	if err := checkQuantity(productID, quantity); err != nil {
		return err
	}

	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	remaining, err := debitLine(ctx, tx, productID, quantity)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}

	metrics.RecordInventoryDebit("ok")
	if l.Log != nil {
		l.Log.Info("stock debited", zap.String("product_id", productID), zap.Int("quantity", quantity), zap.Int("remaining", remaining))
	}
	return nil
}

type Line struct {
	ProductID string
	Quantity  int
}

// Shortfall is a line DebitOrder could not take from stock.
type Shortfall struct {
	ProductID string
	Required  int
	Available int
	Reason    string
}

const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonProductNotFound   = "product_not_found"
)

// DebitOrder debits every line of a paid order and stamps the order's
// stock_debited_at in the same transaction. An order already stamped is left
// alone, so replays are harmless. Lines that cannot be covered are skipped
// and reported as shortfalls; the rest are still debited. Any storage error
// rolls the whole order back and leaves it unstamped.
func (l *Ledger) DebitOrder(ctx context.Context, orderID string, lines []Line) ([]Shortfall, error) {
	for _, ln := range lines {
		if err := checkQuantity(ln.ProductID, ln.Quantity); err != nil {
			return nil, err
		}
	}

	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stamped bool
	err = tx.QueryRow(ctx, `SELECT stock_debited_at IS NOT NULL FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&stamped)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "Order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}
	if stamped {
		return nil, nil
	}

	// Fixed lock order across orders sharing products.
	sorted := slices.SortedFunc(slices.Values(lines), func(a, b Line) int { return strings.Compare(a.ProductID, b.ProductID) })

	var (
		shortfalls []Shortfall
		debited    int
	)
	for _, ln := range sorted {
		_, err := debitLine(ctx, tx, ln.ProductID, ln.Quantity)
		switch {
		case err == nil:
			debited++
		case errors.Is(err, apperr.ErrInsufficientStock):
			sf := Shortfall{ProductID: ln.ProductID, Required: ln.Quantity, Reason: ReasonInsufficientStock}
			var ae *apperr.Error
			if errors.As(err, &ae) {
				if d, ok := ae.Details.(StockDetail); ok {
					sf.Available = d.Available
				}
			}
			shortfalls = append(shortfalls, sf)
		case errors.Is(err, apperr.ErrNotFound):
			shortfalls = append(shortfalls, Shortfall{ProductID: ln.ProductID, Required: ln.Quantity, Reason: ReasonProductNotFound})
		default:
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET stock_debited_at = now(), updated_at = now() WHERE id=$1`, orderID); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}

	for range debited {
		metrics.RecordInventoryDebit("ok")
	}
	if l.Log != nil {
		l.Log.Info("order stock debited", zap.String("order_id", orderID), zap.Int("lines", len(lines)), zap.Int("shortfalls", len(shortfalls)))
	}
	return shortfalls, nil
}

// debitLine locks the product row and decrements it, returning the stock
// left. Rejections are recorded here; successes are recorded by the caller
// once the transaction commits.
func debitLine(ctx context.Context, tx pgx.Tx, productID string, quantity int) (int, error) {
	var (
		name  string
		stock int
	)
	err := tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.RecordInventoryDebit("not_found")
		return 0, apperr.New(apperr.KindNotFound, "Product not found: "+productID)
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}

	if stock < quantity {
		metrics.RecordInventoryDebit("insufficient")
		return 0, apperr.WithDetails(apperr.KindInsufficientStock,
			fmt.Sprintf("Insufficient stock for product %s", name),
			StockDetail{ProductID: productID, Required: quantity, Available: stock})
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`, productID, quantity); err != nil {
		return 0, apperr.Wrap(apperr.KindPersistence, err, "Failed to update product stock")
	}
	return stock - quantity, nil
}

func checkQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("invalid debit quantity %d for product %s", quantity, productID))
	}
	return nil
}

type StockDetail struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}
