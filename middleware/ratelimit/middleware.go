package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"identity-gateway/middleware/ratelimit/application"
	"identity-gateway/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

// PathMatcher decide se um path passa pelo limiter.
type PathMatcher func(path string) bool

// DefaultPaths são os trechos de path de endpoints de obtenção de credencial.
var DefaultPaths = []string{"/oauth/token", "/login", "/authenticate"}

type Options struct {
	Limiter domain.Limiter
	Stats   domain.StatsStore

	// Match tem precedência sobre Paths. Sem nenhum dos dois, DefaultPaths.
	Match PathMatcher
	Paths []string

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	AddRateLimitHeaders bool

	// OnReject é chamado depois de responder 429 (ex: auditoria).
	OnReject func(r *http.Request, key string)
}

type rejectBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var rejectPayload, _ = json.Marshal(rejectBody{Error: "Too many requests", Message: "Rate limit exceeded"})

// ContainsAny casa paths que contêm qualquer um dos trechos.
func ContainsAny(fragments ...string) PathMatcher {
	cleaned := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			cleaned = append(cleaned, f)
		}
	}
	return func(path string) bool {
		for _, f := range cleaned {
			if strings.Contains(path, f) {
				return true
			}
		}
		return false
	}
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For é o cliente original
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
			if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
				return realIP
			}
		}

		return RemoteHost(r)
	}
}

// RemoteHost devolve o host de RemoteAddr, ou "unknown".
func RemoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	match := opts.Match
	if match == nil {
		paths := opts.Paths
		if len(paths) == 0 {
			paths = DefaultPaths
		}
		match = ContainsAny(paths...)
	}

	svc := application.Service{Limiter: opts.Limiter}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			dec := svc.Decide(domain.Key(key))

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:       domain.Key(key),
					Allowed:   dec.Allowed,
					Remaining: dec.Remaining,
					Method:    r.Method,
					Path:      r.URL.Path,
					At:        time.Now(),
				})
			}

			if opts.AddRateLimitHeaders && opts.Limiter != nil {
				w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
			}

			if !dec.Allowed {
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter.Seconds()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write(rejectPayload)
				if opts.OnReject != nil {
					opts.OnReject(r, key)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
