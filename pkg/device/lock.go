package device

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/portfinder/pkg/util"
)

// DefaultLockTTL bounds how long a crashed holder can block a host.
const DefaultLockTTL = 5 * time.Minute

// lockKeyPrefix namespaces change locks in Redis.
const lockKeyPrefix = "PORTFINDER_LOCK|"

// acquireLockScript atomically creates the lock hash.
// Returns 1 on success, 0 if already locked by another holder.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript deletes the lock only if holder still owns it.
// Returns 1 on success, 0 if holder mismatch, -1 if key doesn't exist.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// RedisLocker serializes configuration changes per host across portfinder
// processes sharing one Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker on the Redis at addr.
func NewRedisLocker(addr string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Ping checks that Redis is reachable.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// Lock acquires the change lock for host. The returned release function
// removes it if holder still owns it. Contention wraps util.ErrLocked.
func (l *RedisLocker) Lock(ctx context.Context, host, holder string) (func(), error) {
	key := lockKeyPrefix + host
	now := time.Now().UTC().Format(time.RFC3339)
	ttl := int(l.ttl / time.Second)
	if ttl < 1 {
		ttl = 1
	}

	result, err := acquireLockScript.Run(ctx, l.client, []string{key},
		holder, now, fmt.Sprintf("%d", ttl)).Int()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock for %s: %w", host, err)
	}
	if result == 0 {
		current, _, _ := l.Holder(ctx, host)
		return nil, fmt.Errorf("%s held by %q: %w", host, current, util.ErrLocked)
	}

	release := func() {
		// Release must run even if the request context was cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.release(rctx, key, holder); err != nil {
			util.WithHost(host).Warnf("Releasing change lock: %v", err)
		}
	}
	return release, nil
}

func (l *RedisLocker) release(ctx context.Context, key, holder string) error {
	result, err := releaseLockScript.Run(ctx, l.client, []string{key}, holder).Int()
	if err != nil {
		return err
	}
	if result == 0 {
		return fmt.Errorf("lock holder mismatch for %s", key)
	}
	return nil
}

// Holder returns the current lock holder and acquisition time for host.
// Returns ("", zero, nil) if no lock is held.
func (l *RedisLocker) Holder(ctx context.Context, host string) (string, time.Time, error) {
	vals, err := l.client.HGetAll(ctx, lockKeyPrefix+host).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("getting lock holder for %s: %w", host, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}
	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}
