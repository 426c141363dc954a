package orders

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusSuccess    PaymentStatus = "success"
	StatusFailed     PaymentStatus = "failed"
	// StatusExpired is accepted by the store but nothing maps to it yet:
	// gateway expiry lands in StatusFailed.
	StatusExpired PaymentStatus = "expired"
)

// pending -> pending is allowed so a repeated pending signal can record the
// gateway transaction id.
var validNext = map[PaymentStatus]map[PaymentStatus]bool{
	StatusPending:    {StatusPending: true, StatusProcessing: true, StatusSuccess: true, StatusFailed: true, StatusExpired: true},
	StatusProcessing: {StatusSuccess: true, StatusFailed: true, StatusExpired: true},
	StatusSuccess:    {},
	StatusFailed:     {},
	StatusExpired:    {},
}

func CanTransition(from, to PaymentStatus) bool {
	return validNext[from][to]
}

// Terminal statuses accept no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusExpired
}

func (s PaymentStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}
