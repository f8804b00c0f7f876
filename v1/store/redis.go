package store

import (
	"context"
	stdErrors "errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	latcherrors "github.com/mirkobrombin/go-latch/v1/errors"
)

const defaultRedisOpTimeout = 5 * time.Second

// delScript removes a key only while it still holds the expected value. GET
// and DEL run as one server-side step, so a concurrent expiry plus
// re-acquisition can never be deleted by a stale owner.
var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

// RedisStore implements Store using a Redis backend.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisStoreOptions)

type redisStoreOptions struct {
	timeout time.Duration
}

// WithTimeout sets the operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(o *redisStoreOptions) {
		o.timeout = d
	}
}

// NewRedisStore returns a new RedisStore using the provided Redis client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	o := redisStoreOptions{timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, timeout: o.timeout}
}

// SetIfAbsent implements Store.SetIfAbsent via SET NX PX.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, mapErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.client.SetNX(cctx, key, value, ttl).Result()
	if err != nil {
		return false, mapErr(err)
	}
	return ok, nil
}

// CompareAndDelete implements Store.CompareAndDelete via a Lua script.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, mapErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := delScript.Run(cctx, s.client, []string{key}, expected).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	n, _ := res.(int64)
	return n == 1, nil
}

// Get implements Store.Get. Value and remaining TTL are read in one pipeline
// round trip.
func (s *RedisStore) Get(ctx context.Context, key string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, mapErr(err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(cctx, key)
	ttlCmd := pipe.PTTL(cctx, key)
	if _, err := pipe.Exec(cctx); err != nil && err != redis.Nil {
		return Record{}, false, mapErr(err)
	}
	val, err := getCmd.Result()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, mapErr(err)
	}
	ttl, err := ttlCmd.Result()
	if err != nil && err != redis.Nil {
		return Record{}, false, mapErr(err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return Record{Value: val, TTL: ttl}, true, nil
}

func mapErr(err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return latcherrors.ErrTimeout
	}
	if stdErrors.Is(err, redis.ErrClosed) {
		return latcherrors.ErrConnectionClosed
	}
	return err
}
