package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lock that another instance re-acquired is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a Locker shared by every API instance connected to the same Redis.
// Each key is a SET NX PX entry holding a random token; entries expire after
// TTL so a crashed holder cannot block a slot forever.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedis returns a Locker backed by client. ttl bounds how long a key can be
// held; wait bounds how long Acquire keeps retrying a busy key.
func NewRedis(client *redis.Client, ttl, wait time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: "maintenance:lock:",
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
	}
}

// Acquire takes every key or none of them.
func (r *Redis) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := r.acquireOne(ctx, r.prefix+k, token); err != nil {
			r.releaseAll(held, token)
			return nil, fmt.Errorf("lock.Redis.Acquire %q: %w", k, err)
		}
		held = append(held, r.prefix+k)
	}

	return func() { r.releaseAll(held, token) }, nil
}

func (r *Redis) acquireOne(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

// releaseAll runs on a fresh context: the request context may already be
// cancelled, and the keys must still be freed.
func (r *Redis) releaseAll(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, k := range keys {
		_ = releaseScript.Run(ctx, r.client, []string{k}, token).Err()
	}
}
