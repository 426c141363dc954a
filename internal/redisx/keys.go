package redisx

import "time"

const (
	// Per-order lock: lock:order:{order_id} -> random token of the holder
	KeyLock = "lock:%s"

	// Fixed-window counter: ratelimit:{scope}:{client_ip}
	KeyRateLimit = "ratelimit:%s:%s"
)

var (
	TTLOrderLock     = 10 * time.Second
	LockRetryBackoff = 50 * time.Millisecond
)
