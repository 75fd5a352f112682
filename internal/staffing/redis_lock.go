package staffing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/good-yellow-bee/staffplan/internal/metrics"
)

// releaseScript deletes the lock only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockTimeout is returned when a lock could not be acquired before the
// context deadline.
var ErrLockTimeout = errors.New("timed out waiting for engineer lock")

// RedisLocker is a Locker shared across processes through Redis.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker creates a Redis-backed locker. ttl bounds how long a lock
// survives a crashed holder.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client: client,
		prefix: "staffplan:lock:engineer:",
		ttl:    ttl,
		retry:  25 * time.Millisecond,
	}
}

// Lock acquires key with SET NX PX, retrying until ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.New().String()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	return l.unlocker(redisKey, token), nil
}

// unlocker returns the release function for a held lock. A failed release
// is logged; the key then lives until its TTL expires.
func (l *RedisLocker) unlocker(redisKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		released, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
		switch {
		case err != nil:
			metrics.CapacityLockErrors.WithLabelValues(l.Backend()).Inc()
			log.Printf("release lock %s error: %v", redisKey, err)
		case released == 0:
			log.Printf("release lock %s: lock expired before release", redisKey)
		}
	}
}

// Backend implements Locker.
func (l *RedisLocker) Backend() string { return "redis" }
