package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer a.close()

	a.janitor.Start()
	defer func() {
		if err := a.janitor.Shutdown(); err != nil {
			logger.Warn("rate limiter janitor did not stop in time", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, cfg.upstreamURL)
	log.Printf("rate: enabled=%v backend=%s limit=%d window=%ds paths=%v keyHeader=%q trustXFF=%v", cfg.rateEnabled, cfg.rateBackend, cfg.rateLimit, cfg.rateWindowSeconds, cfg.ratePaths, cfg.rateKeyHeader, cfg.trustXFF)
	log.Printf("rate-stats: mode=%s prefix=%q ttl=%s", cfg.rateStats, cfg.rateStatsPrefix, cfg.rateStatsTTL)
	log.Printf("auth: mode=%s issuer=%q audience=%q admin=%s", cfg.authMode, cfg.jwtIssuer, cfg.jwtAudience, cfg.adminAuthority)
	log.Printf("audit: store=%s writeTimeout=%s maxInflight=%d", cfg.auditStore, cfg.auditWriteTimeout, cfg.auditMaxInflight)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}
