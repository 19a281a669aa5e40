package infra

import (
	"context"
	"testing"
	"time"

	"identity-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMemoryStatsStore_CountsByPathAndKey(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "10.0.0.1", Allowed: true, Path: "/login"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "10.0.0.1", Allowed: false, Path: "/login"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "10.0.0.2", Allowed: true, Path: "/oauth/token"})

	if got := s.Total(); got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("unexpected total: %+v", got)
	}
	if got := s.ByPath()["/login"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected /login counters: %+v", got)
	}
	if got := s.ByKey()["10.0.0.1"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected key counters: %+v", got)
	}
}

func TestMemoryStatsStore_DoesNotTrackKeysByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "k", Allowed: true, Path: "/login"})
	if len(s.ByKey()) != 0 {
		t.Fatalf("expected no per-key counters")
	}
}

func TestRedisStatsStore_WritesHashes(t *testing.T) {
	mr, client := newMiniredisClient(t)
	s := NewRedisStatsStore(client, WithStatsPrefix("gw:stats:"), WithStatsTTL(time.Hour), WithStatsTrackDeniedKeys(true))
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	if err := s.Record(ctx, domain.StatsEvent{Key: "10.0.0.1", Allowed: true, Path: "/login", At: at}); err != nil {
		t.Fatalf("record allowed: %v", err)
	}
	if err := s.Record(ctx, domain.StatsEvent{Key: "10.0.0.1", Allowed: false, Path: "/login", At: at}); err != nil {
		t.Fatalf("record denied: %v", err)
	}

	if got := mr.HGet("gw:stats:total", "allowed"); got != "1" {
		t.Fatalf("expected total allowed=1, got %q", got)
	}
	if got := mr.HGet("gw:stats:minute:202603011230", "denied"); got != "1" {
		t.Fatalf("expected minute bucket denied=1, got %q", got)
	}
	if got := mr.HGet("gw:stats:path", "/login:denied"); got != "1" {
		t.Fatalf("expected path denied=1, got %q", got)
	}
	if got, _ := mr.Get("gw:stats:denied:10.0.0.1"); got != "1" {
		t.Fatalf("expected denied counter for client, got %q", got)
	}
	if ttl := mr.TTL("gw:stats:minute:202603011230"); ttl != time.Hour {
		t.Fatalf("expected minute bucket ttl=1h, got %s", ttl)
	}
}

func TestRedisStatsStore_NilClientIsNoop(t *testing.T) {
	s := NewRedisStatsStore(nil)
	if err := s.Record(context.Background(), domain.StatsEvent{Allowed: true}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestPrometheusStatsStore_CountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusStatsStore(reg)
	if err != nil {
		t.Fatalf("NewPrometheusStatsStore: %v", err)
	}
	ctx := context.Background()
	_ = s.Record(ctx, domain.StatsEvent{Allowed: true, Remaining: 4, Path: "/login"})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: false, Path: "/login"})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: false, Path: "/login"})

	if got := testutil.ToFloat64(s.decisions.WithLabelValues("/login", "allowed")); got != 1 {
		t.Fatalf("expected 1 allowed, got %v", got)
	}
	if got := testutil.ToFloat64(s.decisions.WithLabelValues("/login", "denied")); got != 2 {
		t.Fatalf("expected 2 denied, got %v", got)
	}

	if _, err := NewPrometheusStatsStore(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
