package redisx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired holder cannot release a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker is a Redis mutex keyed by name. The TTL bounds how long a crashed
// holder can block others.
type Locker struct {
	RDB     *redis.Client
	TTL     time.Duration
	Backoff time.Duration
}

func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = TTLOrderLock
	}
	return &Locker{RDB: rdb, TTL: ttl, Backoff: LockRetryBackoff}
}

// Lock blocks until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	key := fmt.Sprintf(KeyLock, name)
	token := uuid.NewString()

	for {
		ok, err := l.RDB.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire %s: %w", key, ctx.Err())
		case <-time.After(l.Backoff):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			// A failed release is left to the TTL.
			_ = releaseScript.Run(rctx, l.RDB, []string{key}, token).Err()
		})
	}, nil
}
