package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps bucket counters in Redis so every instance of the
// service sees the same counts.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Lua script: atomic INCR plus EXPIRE on first touch, so a bucket's
// lifetime starts with its first send.
const incrScript = `
	local key = KEYS[1]
	local ttl = tonumber(ARGV[1])

	local current = redis.call("INCR", key)
	if current == 1 then
		redis.call("EXPIRE", key, ttl)
	end
	return current
`

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int, error) {
	result, err := s.rdb.Eval(ctx, incrScript, []string{"msglimit:" + key}, int(ttl.Seconds())).Int()
	if err != nil {
		return 0, err
	}
	return result, nil
}

func (s *RedisStore) Count(ctx context.Context, key string) (int, error) {
	result, err := s.rdb.Get(ctx, "msglimit:"+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return result, nil
}
