package orders

const (
	TopicOrderCreated             = "order.created"
	TopicPaymentStatusChanged     = "order.payment.status_changed"
	TopicStockShortfall           = "inventory.stock.shortfall"
	TopicPaymentNotificationRetry = "payment.notification.retry"
)

// Partition key = order_id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
