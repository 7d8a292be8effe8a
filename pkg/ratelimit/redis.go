package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"walrusweb/pkg/utils"
)

const redisKeyPrefix = "walrus:ratelimit:"

// slidingLogScript keeps one sorted set member per request, scored by its
// time in milliseconds. It returns {allowed, remaining, retryAfterMs}.
var slidingLogScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, limit - count - 1, 0}
end
local retry = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)

// RedisLimiter is a sliding log limiter shared by every process using the
// same redis server
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows at most limit requests per key within any window
func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, opts ...OptionFunc) *RedisLimiter {
	o := buildOptions(opts)
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    o.now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	// Client addresses are hashed before they reach redis
	redisKey := redisKeyPrefix + utils.HashString(key)
	vals, err := slidingLogScript.Run(
		ctx,
		l.client,
		[]string{redisKey},
		l.now().UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("error running rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("unexpected rate limit script result: %v", vals)
	}
	return Result{
		Allowed:    vals[0] == 1,
		Limit:      l.limit,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}
