package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter implements a fixed-window rate limiter shared by every
// instance pointing at the same Redis.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	limit  int
	size   time.Duration
}

func NewRedisLimiter(client redis.Scripter, prefix string, limit int, size time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		limit:  limit,
		size:   size,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, now time.Time) (Result, error) {
	if l.limit <= 0 || l.size <= 0 || key == "" || l.client == nil {
		return Result{Allowed: true}, nil
	}
	idx, reset := window(now, l.size)

	// The key outlives its window slightly so clock skew between instances
	// cannot reset a counter early.
	ttl := l.size + time.Second
	res, err := redisIncrScript.Run(ctx, l.client, []string{l.buildKey(key, idx)}, ttl.Milliseconds()).Result()
	if err != nil {
		return Result{}, err
	}
	count, ok := res.(int64)
	if !ok {
		return Result{}, errors.New("rate limit redis: unexpected response type")
	}
	if count > int64(l.limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - int(count), Reset: reset}, nil
}

func (l *RedisLimiter) buildKey(key string, idx int64) string {
	suffix := key + ":" + strconv.FormatInt(idx, 10)
	if l.prefix == "" {
		return suffix
	}
	return l.prefix + ":" + suffix
}
