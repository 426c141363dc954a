package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const productID = "1d2e3f40-5a6b-4c7d-8e9f-a0b1c2d3e4f5"

func newLedger(t *testing.T) (*Ledger, pgxmock.PgxPoolIface) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return &Ledger{DB: db, Log: zap.NewNop()}, db
}

func TestLedger_Debit(t *testing.T) {
	tests := []struct {
		name       string
		quantity   int
		setupMocks func(pgxmock.PgxPoolIface)
		expected   *apperr.Error
	}{
		{
			name:     "decrements when stock suffices",
			quantity: 2,
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT name, stock FROM products WHERE id=\\$1 FOR UPDATE").
					WithArgs(productID).
					WillReturnRows(pgxmock.NewRows([]string{"name", "stock"}).AddRow("Mechanical Keyboard", 5))
				db.ExpectExec("UPDATE products SET stock = stock - \\$2").
					WithArgs(productID, 2).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				db.ExpectCommit()
			},
		},
		{
			name:     "insufficient stock leaves row untouched",
			quantity: 6,
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT name, stock FROM products").
					WithArgs(productID).
					WillReturnRows(pgxmock.NewRows([]string{"name", "stock"}).AddRow("Mechanical Keyboard", 5))
				db.ExpectRollback()
			},
			expected: apperr.ErrInsufficientStock,
		},
		{
			name:     "unknown product",
			quantity: 1,
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT name, stock FROM products").
					WithArgs(productID).
					WillReturnError(pgx.ErrNoRows)
				db.ExpectRollback()
			},
			expected: apperr.ErrNotFound,
		},
		{
			name:     "write failure is a persistence error",
			quantity: 1,
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT name, stock FROM products").
					WithArgs(productID).
					WillReturnRows(pgxmock.NewRows([]string{"name", "stock"}).AddRow("Mouse", 5))
				db.ExpectExec("UPDATE products").
					WithArgs(productID, 1).
					WillReturnError(errors.New("deadlock detected"))
				db.ExpectRollback()
			},
			expected: apperr.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, db := newLedger(t)
			tt.setupMocks(db)

			err := ledger.Debit(context.Background(), productID, tt.quantity)

			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, db.ExpectationsWereMet())
		})
	}
}

func TestLedger_Debit_RejectsNonPositiveQuantity(t *testing.T) {
	ledger, db := newLedger(t)

	err := ledger.Debit(context.Background(), productID, 0)

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, db.ExpectationsWereMet())
}

const otherProductID = "0a9b8c7d-6e5f-4a3b-2c1d-0e9f8a7b6c5d"

func expectProduct(db pgxmock.PgxPoolIface, id string, stock int) {
	db.ExpectQuery("SELECT name, stock FROM products WHERE id=\\$1 FOR UPDATE").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"name", "stock"}).AddRow("Headset", stock))
}

func TestLedger_DebitOrder(t *testing.T) {
	lines := []Line{{ProductID: productID, Quantity: 2}, {ProductID: otherProductID, Quantity: 1}}

	tests := []struct {
		name               string
		setupMocks         func(pgxmock.PgxPoolIface)
		expectedShortfalls []Shortfall
		expected           *apperr.Error
	}{
		{
			name: "debits lines in product order and stamps the order",
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT stock_debited_at IS NOT NULL FROM orders WHERE id=\\$1 FOR UPDATE").
					WithArgs("ORD-1").
					WillReturnRows(pgxmock.NewRows([]string{"debited"}).AddRow(false))
				expectProduct(db, otherProductID, 4)
				db.ExpectExec("UPDATE products SET stock = stock - \\$2").
					WithArgs(otherProductID, 1).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				expectProduct(db, productID, 5)
				db.ExpectExec("UPDATE products SET stock = stock - \\$2").
					WithArgs(productID, 2).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				db.ExpectExec("UPDATE orders SET stock_debited_at = now\\(\\)").
					WithArgs("ORD-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				db.ExpectCommit()
			},
		},
		{
			name: "already stamped order is left alone",
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT stock_debited_at IS NOT NULL FROM orders").
					WithArgs("ORD-1").
					WillReturnRows(pgxmock.NewRows([]string{"debited"}).AddRow(true))
				db.ExpectRollback()
			},
		},
		{
			name: "uncovered line is reported and the rest still lands",
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT stock_debited_at IS NOT NULL FROM orders").
					WithArgs("ORD-1").
					WillReturnRows(pgxmock.NewRows([]string{"debited"}).AddRow(false))
				expectProduct(db, otherProductID, 4)
				db.ExpectExec("UPDATE products SET stock = stock - \\$2").
					WithArgs(otherProductID, 1).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				expectProduct(db, productID, 1)
				db.ExpectExec("UPDATE orders SET stock_debited_at").
					WithArgs("ORD-1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				db.ExpectCommit()
			},
			expectedShortfalls: []Shortfall{{ProductID: productID, Required: 2, Available: 1, Reason: ReasonInsufficientStock}},
		},
		{
			name: "storage error rolls back and leaves the order unstamped",
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT stock_debited_at IS NOT NULL FROM orders").
					WithArgs("ORD-1").
					WillReturnRows(pgxmock.NewRows([]string{"debited"}).AddRow(false))
				expectProduct(db, otherProductID, 4)
				db.ExpectExec("UPDATE products SET stock = stock - \\$2").
					WithArgs(otherProductID, 1).
					WillReturnError(errors.New("connection reset by peer"))
				db.ExpectRollback()
			},
			expected: apperr.ErrPersistence,
		},
		{
			name: "unknown order",
			setupMocks: func(db pgxmock.PgxPoolIface) {
				db.ExpectBegin()
				db.ExpectQuery("SELECT stock_debited_at IS NOT NULL FROM orders").
					WithArgs("ORD-1").
					WillReturnError(pgx.ErrNoRows)
				db.ExpectRollback()
			},
			expected: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, db := newLedger(t)
			tt.setupMocks(db)

			shortfalls, err := ledger.DebitOrder(context.Background(), "ORD-1", lines)

			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectedShortfalls, shortfalls)
			assert.NoError(t, db.ExpectationsWereMet())
		})
	}
}
