package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DB }

const orderColumns = `id, customer_name, customer_email, customer_phone, customer_address,
	total_amount, payment_status, gateway_transaction_id, stock_debited_at IS NOT NULL, created_at, updated_at`

// InsertOrder writes the order row and fills CreatedAt/UpdatedAt.
func (r *Repo) InsertOrder(ctx context.Context, o *Order) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO orders(id, customer_name, customer_email, customer_phone, customer_address, total_amount, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.CustomerAddress, o.TotalAmount, string(o.PaymentStatus),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

// InsertItems writes all items in one statement: either every item lands or none.
func (r *Repo) InsertItems(ctx context.Context, orderID string, items []OrderItem) error {
	if len(items) == 0 {
		return errors.New("order has no items")
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(items)*6)
	)
	sb.WriteString(`INSERT INTO order_items(order_id, product_id, product_name, product_price, quantity, subtotal) VALUES `)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(",")
		}
		n := i * 6
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, orderID, it.ProductID, it.ProductName, it.ProductPrice, it.Quantity, it.Subtotal)
	}
	_, err := r.DB.Exec(ctx, sb.String(), args...)
	return err
}

func (r *Repo) DeleteOrder(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

// GetOrder returns nil, nil when the order does not exist. Items are not loaded.
func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id).Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.CustomerAddress,
		&o.TotalAmount, &status, &o.GatewayTransactionID, &o.StockDebited, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.PaymentStatus = PaymentStatus(status)
	return &o, nil
}

func (r *Repo) ListItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id::text, product_name, product_price, quantity, subtotal, created_at
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductPrice,
			&it.Quantity, &it.Subtotal, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SetPaymentStatus writes status, timestamp and (when non-empty) the gateway
// transaction id. With ExpectedPrior set the row is only written if it still
// holds that status; the bool reports whether a row was written.
func (r *Repo) SetPaymentStatus(ctx context.Context, id string, u StatusUpdate) (bool, error) {
	q := `UPDATE orders
		SET payment_status=$2,
		    gateway_transaction_id = CASE WHEN $3 = '' THEN gateway_transaction_id ELSE $3 END,
		    updated_at=now()
		WHERE id=$1`
	args := []any{id, string(u.Status), u.TransactionID}
	if u.ExpectedPrior != "" {
		q += ` AND payment_status=$4`
		args = append(args, string(u.ExpectedPrior))
	}
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// ListUnsettled returns ids of orders still pending that were created before
// cutoff, and of paid orders whose stock debit has not landed since cutoff,
// oldest first.
func (r *Repo) ListUnsettled(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders
		WHERE (payment_status='pending' AND created_at < $1)
		   OR (payment_status='success' AND stock_debited_at IS NULL AND updated_at < $1)
		ORDER BY created_at LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
