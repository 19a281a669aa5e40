package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "identity-gateway/middleware/audit/application"
	auditinfra "identity-gateway/middleware/audit/infra"
	"identity-gateway/middleware/authz"
	authzdomain "identity-gateway/middleware/authz/domain"
	authzinfra "identity-gateway/middleware/authz/infra"
	"identity-gateway/middleware/ratelimit"
	"identity-gateway/middleware/ratelimit/infra"
)

func main() {
	// Exemplo: injetando os middlewares diretamente no seu webserver (sem proxy)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		secret = []byte("example-server-dev-secret-change-me")
	}

	limiter, err := infra.NewFixedWindow(5, 60)
	if err != nil {
		log.Fatalf("limiter: %v", err)
	}
	limiter.Start()
	defer func() { _ = limiter.Shutdown() }()

	recorder, err := auditapp.NewRecorder(auditinfra.NewMemoryStore(),
		auditapp.WithLogger(logger),
		auditapp.WithWritePool(auditinfra.NewChanPool(8)),
	)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}

	verifier, err := authzinfra.NewHS256Verifier(secret)
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		p, _ := authz.PrincipalFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":        p.Name,
			"authorities": p.Authorities.Strings(),
		})
	})
	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		p, _ := authz.PrincipalFromContext(r.Context())
		recorder.LogLogout(r.Context(), p)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("/api/admin/events", authz.RequireAuthority(recorder, "ROLE_ADMIN")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, err := recorder.RecentEvents(r.Context(), 0, 50)
			if err != nil {
				http.Error(w, "query failed", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(page)
		}),
	))

	h := http.Handler(mux)
	h = authz.Middleware(authz.Options{
		Verifier: verifier,
		Auditor:  recorder,
		Logger:   logger,
		Skip:     ratelimit.ContainsAny("/login"),
	})(h)
	h = ratelimit.Middleware(ratelimit.Options{
		Limiter:             limiter,
		KeyHeader:           "X-Api-Key", // ou vazio para usar IP
		TrustXForwardedFor:  true,
		AddRateLimitHeaders: true,
		OnReject: func(r *http.Request, key string) {
			recorder.LogRateLimitExceeded(r.Context(), key, r.URL.Path)
		},
	})(h)

	// token de desenvolvimento para testar /api/*
	demo, err := authzinfra.Sign(secret, authzdomain.ClaimSet{
		"sub":         "demo",
		"custom:role": "admin",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	if err == nil {
		log.Printf("demo token (1h): %s", demo)
	}

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server error: %v", err)
	}
}
