package payment

import "github.com/ariefcatur/go-storefront/internal/orders"

// MapNotificationStatus maps a pushed transaction status and fraud verdict
// onto an order payment status. Gateway expiry lands in failed; nothing
// produces expired yet.
func MapNotificationStatus(transactionStatus, fraudStatus string) orders.PaymentStatus {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" {
			return orders.StatusSuccess
		}
		return orders.StatusPending
	case "settlement":
		return orders.StatusSuccess
	case "cancel", "deny", "expire":
		return orders.StatusFailed
	default:
		return orders.StatusPending
	}
}

// MapPolledStatus is the poll-side mapping. The polled shape has no fraud
// verdict, so capture counts as success.
func MapPolledStatus(transactionStatus string) orders.PaymentStatus {
	switch transactionStatus {
	case "capture", "settlement":
		return orders.StatusSuccess
	case "cancel", "deny", "expire":
		return orders.StatusFailed
	default:
		return orders.StatusPending
	}
}
