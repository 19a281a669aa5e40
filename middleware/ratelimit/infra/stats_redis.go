package infra

import (
	"context"
	"strings"
	"time"

	"identity-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega decisões do gate em hashes do Redis:
//
//	<prefix>:total            allowed/denied acumulados (sem TTL)
//	<prefix>:minute:<bucket>  allowed/denied por minuto (com TTL)
//	<prefix>:path             "<path>:allowed" / "<path>:denied"
//	<prefix>:denied:<key>     negações por cliente (opcional, com TTL)
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration

	trackDeniedKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

// WithStatsTrackDeniedKeys conta negações por cliente; útil para achar quem
// está martelando /login, mas cuidado com a cardinalidade.
func WithStatsTrackDeniedKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackDeniedKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "authgate:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	minuteKey := s.prefix + ":minute:" + at.UTC().Format("200601021504")
	pipe.HIncrBy(ctx, minuteKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, minuteKey, s.ttl)
	}

	if p := strings.TrimSpace(ev.Path); p != "" {
		pipe.HIncrBy(ctx, s.prefix+":path", p+":"+field, 1)
	}

	if s.trackDeniedKeys && !ev.Allowed {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			deniedKey := s.prefix + ":denied:" + k
			pipe.Incr(ctx, deniedKey)
			if s.ttl > 0 {
				pipe.Expire(ctx, deniedKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
