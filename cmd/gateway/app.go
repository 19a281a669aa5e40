package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	auditapp "identity-gateway/middleware/audit/application"
	auditdomain "identity-gateway/middleware/audit/domain"
	auditinfra "identity-gateway/middleware/audit/infra"
	"identity-gateway/middleware/authz"
	authzdomain "identity-gateway/middleware/authz/domain"
	authzinfra "identity-gateway/middleware/authz/infra"
	"identity-gateway/middleware/ratelimit"
	"identity-gateway/middleware/ratelimit/domain"
	"identity-gateway/middleware/ratelimit/infra"
)

// Headers repassados ao upstream com a identidade autenticada.
const (
	headerUser        = "X-Authenticated-User"
	headerAuthorities = "X-Authenticated-Authorities"
)

// app junta os componentes montados a partir da config.
type app struct {
	handler  http.Handler
	janitor  *infra.FixedWindowLimiter
	recorder *auditapp.Recorder
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg config, logger *slog.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	var rdb *redis.Client
	if cfg.usesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	store, err := openAuditStore(ctx, cfg, a)
	if err != nil {
		return nil, err
	}
	a.recorder, err = auditapp.NewRecorder(store,
		auditapp.WithLogger(logger.With("component", "audit")),
		auditapp.WithWriteTimeout(cfg.auditWriteTimeout),
		auditapp.WithWritePool(auditinfra.NewChanPool(cfg.auditMaxInflight)),
	)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	limiter, err := newLimiter(cfg, rdb, logger, a)
	if err != nil {
		return nil, err
	}
	stats, err := newStatsStore(cfg, rdb, reg)
	if err != nil {
		return nil, err
	}

	var verifier authz.TokenVerifier
	if cfg.authMode == "hs256" {
		verifier, err = authzinfra.NewHS256Verifier([]byte(cfg.jwtSecret),
			authzinfra.WithIssuer(cfg.jwtIssuer),
			authzinfra.WithAudience(cfg.jwtAudience),
		)
		if err != nil {
			return nil, err
		}
	}

	a.handler = newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		upstream: newProxy(target, logger),
		limiter:  limiter,
		stats:    stats,
		verifier: verifier,
		recorder: a.recorder,
		metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	ok = true
	return a, nil
}

func openAuditStore(ctx context.Context, cfg config, a *app) (auditdomain.Store, error) {
	switch cfg.auditStore {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.databaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		store := auditinfra.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite":
		store, err := auditinfra.OpenSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return auditinfra.NewMemoryStore(), nil
	}
}

func newLimiter(cfg config, rdb *redis.Client, logger *slog.Logger, a *app) (domain.Limiter, error) {
	local, err := infra.NewFixedWindow(cfg.rateLimit, cfg.rateWindowSeconds, infra.WithCleanupEvery(cfg.rateCleanupEvery))
	if err != nil {
		return nil, err
	}
	// o limiter local também é o fallback do Redis, então o janitor roda nos dois casos
	a.janitor = local

	if cfg.rateBackend != "redis" {
		return local, nil
	}
	return infra.NewRedisLimiter(rdb, cfg.rateLimit, cfg.rateWindowSeconds,
		infra.WithRedisLogger(logger.With("component", "ratelimit")),
		infra.WithRedisFallback(local),
	)
}

func newStatsStore(cfg config, rdb *redis.Client, reg prometheus.Registerer) (domain.StatsStore, error) {
	switch cfg.rateStats {
	case "memory":
		return infra.NewMemoryStatsStore(), nil
	case "redis":
		return infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
		), nil
	case "prometheus":
		return infra.NewPrometheusStatsStore(reg)
	default:
		return nil, nil
	}
}

func newProxy(target *url.URL, logger *slog.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			// nunca confiar em identidade vinda do cliente
			pr.Out.Header.Del(headerUser)
			pr.Out.Header.Del(headerAuthorities)
			if p, ok := authz.PrincipalFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(headerUser, p.Name)
				pr.Out.Header.Set(headerAuthorities, strings.Join(p.Authorities.Strings(), ","))
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("proxy error", "path", r.URL.Path, "err", err)
			http.Error(w, "bad gateway", http.StatusBadGateway)
		},
	}
}

type routerDeps struct {
	cfg      config
	logger   *slog.Logger
	upstream http.Handler
	limiter  domain.Limiter
	stats    domain.StatsStore
	verifier authz.TokenVerifier
	recorder *auditapp.Recorder
	metrics  http.Handler
}

// newRouter: health e métricas ficam fora do gate; o gate roda antes da
// autenticação para que endpoints de credencial sejam limitados mesmo sem token.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/actuator/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})
	r.Handle("/metrics", d.metrics)

	// origem do evento é sempre endereço de rede, nunca o valor de RATE_KEY_HEADER
	clientAddr := ratelimit.DefaultKeyFunc("", d.cfg.trustXFF)

	r.Group(func(r chi.Router) {
		if d.cfg.rateEnabled {
			r.Use(ratelimit.Middleware(ratelimit.Options{
				Limiter:             d.limiter,
				Stats:               d.stats,
				Paths:               d.cfg.ratePaths,
				KeyHeader:           d.cfg.rateKeyHeader,
				TrustXForwardedFor:  d.cfg.trustXFF,
				AddRateLimitHeaders: d.cfg.addHeaders,
				OnReject: func(req *http.Request, _ string) {
					d.recorder.LogRateLimitExceeded(req.Context(), clientAddr(req), req.URL.Path)
				},
			}))
		}

		if d.verifier != nil {
			r.Use(authz.Middleware(authz.Options{
				Verifier: d.verifier,
				Auditor:  d.recorder,
				Logger:   d.logger,
				Skip:     authz.ExactPaths(d.cfg.authPublicPaths...),
			}))
			r.Route("/admin", func(r chi.Router) {
				r.Use(authz.RequireAuthority(d.recorder, authzdomain.Authority(d.cfg.adminAuthority)))
				adminAPI{events: d.recorder, log: d.logger}.routes(r)
			})
		}

		r.Handle("/*", d.upstream)
	})

	return r
}
