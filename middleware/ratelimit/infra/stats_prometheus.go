package infra

import (
	"context"

	"identity-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore exporta as decisões do gate como métricas.
// Labels ficam em path/decision; a chave do cliente nunca vira label.
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
	remaining prometheus.Histogram
}

func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	s := &PrometheusStatsStore{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_ratelimit_decisions_total",
				Help: "Rate limit decisions taken on authentication endpoints",
			},
			[]string{"path", "decision"},
		),
		remaining: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "authgate_ratelimit_remaining",
				Help:    "Remaining quota observed after each allowed request",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{s.decisions, s.remaining} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	decision := "denied"
	if ev.Allowed {
		decision = "allowed"
		s.remaining.Observe(float64(ev.Remaining))
	}
	s.decisions.WithLabelValues(ev.Path, decision).Inc()
	return nil
}
