package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments the window counter, starting the window on the first
// hit, and returns the count and the window's remaining milliseconds.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}`)

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// RateLimiter counts hits per scope and client in fixed windows.
type RateLimiter struct {
	RDB    *redis.Client
	Scope  string
	Limit  int
	Window time.Duration
}

func (l *RateLimiter) Allow(ctx context.Context, client string) (Decision, error) {
	key := fmt.Sprintf(KeyRateLimit, l.Scope, client)
	res, err := incrScript.Run(ctx, l.RDB, []string{key}, l.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{Allowed: true, Limit: l.Limit, Remaining: l.Limit}, err
	}
	n, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	return Decision{
		Allowed:   n <= l.Limit,
		Limit:     l.Limit,
		Remaining: max(l.Limit-n, 0),
		ResetIn:   ttl,
	}, nil
}
