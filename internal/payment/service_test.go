package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_CreateTransaction(t *testing.T) {
	o := pendingOrder("ORD-1")
	o.CustomerName, o.CustomerEmail, o.CustomerPhone = "Sari", "sari@example.com", "081234567890"
	paid := pendingOrder("ORD-2")
	paid.PaymentStatus = orders.StatusSuccess
	store := newMemOrders(o, paid)

	tests := []struct {
		name            string
		orderID         string
		gateway         *fakeGateway
		expectedErrKind apperr.Kind
	}{
		{
			name:    "returns token and redirect",
			orderID: "ORD-1",
			gateway: &fakeGateway{tx: &Transaction{Token: "snap-token", RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token"}},
		},
		{
			name:            "already paid",
			orderID:         "ORD-2",
			gateway:         &fakeGateway{},
			expectedErrKind: apperr.KindAlreadyPaid,
		},
		{
			name:            "unknown order",
			orderID:         "ORD-404",
			gateway:         &fakeGateway{},
			expectedErrKind: apperr.KindNotFound,
		},
		{
			name:            "gateway rejection",
			orderID:         "ORD-1",
			gateway:         &fakeGateway{txErr: errors.New("401 access denied")},
			expectedErrKind: apperr.KindGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.gateway, store, zap.NewNop())

			tx, err := svc.CreateTransaction(context.Background(), tt.orderID)

			if tt.expectedErrKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedErrKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "snap-token", tx.Token)
			require.Len(t, tt.gateway.created, 1)
			req := tt.gateway.created[0]
			assert.True(t, decimal.NewFromInt(300000).Equal(req.GrossAmount))
			assert.Equal(t, CustomerDetails{Name: "Sari", Email: "sari@example.com", Phone: "081234567890"}, req.Customer)
			assert.Equal(t, []LineItem{{ID: productP, Name: "Headset", Price: decimal.NewFromInt(150000), Quantity: 2}}, req.Items)
		})
	}
}
