package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitScript увеличивает счетчик и ставит срок жизни при первом обращении в окне.
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

const redisTimeout = 2 * time.Second

// RedisLimiter хранит счетчики в Redis и делит лимит между всеми экземплярами сервера.
// При недоступности Redis используется лимитер в памяти.
type RedisLimiter struct {
	client   redis.Scripter
	window   time.Duration
	prefix   string
	fallback *InMemoryLimiter
}

// NewRedis создает лимитер поверх Redis.
func NewRedis(client redis.Scripter, w time.Duration) *RedisLimiter {
	if w <= 0 {
		w = time.Minute
	}
	return &RedisLimiter{
		client:   client,
		window:   w,
		prefix:   "vmv:rl:",
		fallback: NewInMemory(w),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	if l.client == nil {
		return l.fallback.Allow(ctx, key, limit)
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := rateLimitScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Slice()
	if err != nil || len(res) < 2 {
		log.Printf("[RateLimit] Redis недоступен, используем счетчик в памяти: %v", err)
		return l.fallback.Allow(ctx, key, limit)
	}

	count, _ := res[0].(int64)
	ttlMs, _ := res[1].(int64)
	if ttlMs < 0 {
		ttlMs = l.window.Milliseconds()
	}
	return decide(int(count), limit, time.Now().UTC().Add(time.Duration(ttlMs)*time.Millisecond))
}
