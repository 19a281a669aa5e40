package infra

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"identity-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// INCR + PEXPIRE na primeira requisição da janela: a chave some sozinha quando
// a janela acaba, o que equivale à troca da janela no limiter em memória.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter compartilha a janela fixa entre várias instâncias do gateway.
//
// Quando o Redis falha, a decisão cai para um FixedWindowLimiter local com os
// mesmos parâmetros (cada instância passa a limitar sozinha).
type RedisLimiter struct {
	rdb           *redis.Client
	limit         int
	windowSeconds int
	window        time.Duration
	prefix        string
	timeout       time.Duration
	logger        *slog.Logger

	fallback *FixedWindowLimiter
}

type RedisLimiterOption func(*RedisLimiter)

func WithRedisPrefix(prefix string) RedisLimiterOption {
	return func(l *RedisLimiter) {
		p := strings.Trim(prefix, ":")
		if p != "" {
			l.prefix = p + ":"
		}
	}
}

func WithRedisTimeout(d time.Duration) RedisLimiterOption {
	return func(l *RedisLimiter) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func WithRedisLogger(logger *slog.Logger) RedisLimiterOption {
	return func(l *RedisLimiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRedisFallback troca o limiter local usado quando o Redis está fora.
func WithRedisFallback(fb *FixedWindowLimiter) RedisLimiterOption {
	return func(l *RedisLimiter) {
		if fb != nil {
			l.fallback = fb
		}
	}
}

func NewRedisLimiter(rdb *redis.Client, limit, windowSeconds int, opts ...RedisLimiterOption) (*RedisLimiter, error) {
	fb, err := NewFixedWindow(limit, windowSeconds)
	if err != nil {
		return nil, err
	}
	l := &RedisLimiter{
		rdb:           rdb,
		limit:         limit,
		windowSeconds: windowSeconds,
		window:        time.Duration(windowSeconds) * time.Second,
		prefix:        "ratelimit:window:",
		timeout:       2 * time.Second,
		logger:        slog.Default(),
		fallback:      fb,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *RedisLimiter) Limit() int { return l.limit }

// Fallback expõe o limiter local para o ciclo de vida (Start/Shutdown).
func (l *RedisLimiter) Fallback() *FixedWindowLimiter { return l.fallback }

func (l *RedisLimiter) Allow(key domain.Key) bool {
	if l.rdb == nil {
		return l.fallback.Allow(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	vals, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.redisKey(key)}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(vals) < 1 {
		l.logger.Warn("redis rate limiter unavailable, using local window", "key", string(key), "err", err)
		return l.fallback.Allow(key)
	}
	return vals[0] <= int64(l.limit)
}

func (l *RedisLimiter) Remaining(key domain.Key) int {
	if l.rdb == nil {
		return l.fallback.Remaining(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	count, err := l.rdb.Get(ctx, l.redisKey(key)).Int()
	if err == redis.Nil {
		return l.limit
	}
	if err != nil {
		return l.fallback.Remaining(key)
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (l *RedisLimiter) ResetSeconds(key domain.Key) int {
	if l.rdb == nil {
		return l.fallback.ResetSeconds(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	ttl, err := l.rdb.PTTL(ctx, l.redisKey(key)).Result()
	if err != nil {
		return l.fallback.ResetSeconds(key)
	}
	// -2: chave inexistente, -1: sem expiração (não deveria acontecer)
	if ttl < 0 {
		return l.windowSeconds
	}
	return int(ttl / time.Second)
}

func (l *RedisLimiter) redisKey(key domain.Key) string {
	return l.prefix + string(key)
}
