package payment

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Midtrans adapts Snap (transaction creation) and the Core API (status) to
// Gateway. The SDK takes no context; ctx is checked before each call.
type Midtrans struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

var _ Gateway = (*Midtrans)(nil)

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{serverKey: serverKey}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func (m *Midtrans) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, err, "Failed to create payment transaction")
	}

	sreq := snapRequest(req)
	res, merr := m.snap.CreateTransaction(sreq)
	if merr != nil {
		return nil, apperr.Wrap(apperr.KindGateway, merr, gatewayMessage(merr, "Failed to create payment transaction"))
	}
	return &Transaction{Token: res.Token, RedirectURL: res.RedirectURL}, nil
}

// snapRequest rounds prices to whole rupiah. Snap rejects a request whose
// item lines do not sum to gross_amount, so with items present the gross is
// rebuilt from the rounded lines.
func snapRequest(req TransactionRequest) *snap.Request {
	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	var gross int64
	for _, it := range req.Items {
		price := it.Price.Round(0).IntPart()
		items = append(items, midtrans.ItemDetails{
			ID:    it.ID,
			Name:  it.Name,
			Price: price,
			Qty:   int32(it.Quantity),
		})
		gross += price * int64(it.Quantity)
	}
	if len(items) == 0 {
		gross = req.GrossAmount.Round(0).IntPart()
	}
	return &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items: &items,
	}
}

func (m *Midtrans) QueryStatus(ctx context.Context, orderID string) (*GatewayStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, err, "Failed to check payment status")
	}
	res, merr := m.core.CheckTransaction(orderID)
	if merr != nil {
		return nil, apperr.Wrap(apperr.KindGateway, merr, gatewayMessage(merr, "Failed to check payment status"))
	}
	return &GatewayStatus{
		TransactionStatus: res.TransactionStatus,
		TransactionID:     res.TransactionID,
		FraudStatus:       res.FraudStatus,
		SettledAt:         res.SettlementTime,
	}, nil
}

func (m *Midtrans) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return VerifySignature(orderID, statusCode, grossAmount, signatureKey, m.serverKey)
}

func gatewayMessage(err *midtrans.Error, fallback string) string {
	if err.Message != "" {
		return err.Message
	}
	return fallback
}
