package authz

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"identity-gateway/middleware/authz/application"
	"identity-gateway/middleware/authz/domain"
)

// TokenVerifier valida assinatura e expiração e devolve os claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (domain.ClaimSet, error)
}

// Auditor recebe os resultados de autenticação e autorização.
// Implementações não devem falhar a requisição.
type Auditor interface {
	LogSuccessfulAuthentication(ctx context.Context, p *domain.Principal)
	LogFailedAuthentication(ctx context.Context, p *domain.Principal, reason error)
	LogAuthorizationFailure(ctx context.Context, p *domain.Principal, resource, required string)
}

type Options struct {
	Verifier TokenVerifier
	Auditor  Auditor
	Logger   *slog.Logger

	// Skip libera paths públicos (ex: health check) sem exigir token.
	Skip func(path string) bool

	// RemoteAddr extrai o endereço de origem; padrão é o host de RemoteAddr.
	RemoteAddr func(r *http.Request) string

	Now func() time.Time
}

const (
	msgExpired   = "JWT token has expired"
	msgInvalid   = "Invalid JWT token"
	msgFullAuth  = "Full authentication is required to access this resource"
	msgForbidden = "Insufficient privileges to access this resource"
)

type errorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

type principalKey struct{}

// WithPrincipal devolve um contexto carregando o principal.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return p, ok && p != nil
}

// Middleware exige um bearer token válido e coloca o Principal no contexto.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	opts = withDefaults(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Skip != nil && opts.Skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			origin := opts.RemoteAddr(r)
			p, err := authenticate(r, opts.Verifier)
			if err != nil {
				if opts.Auditor != nil {
					opts.Auditor.LogFailedAuthentication(r.Context(), &domain.Principal{RemoteAddr: origin}, err)
				}
				opts.Logger.Debug("authentication rejected", "path", r.URL.Path, "remote", origin, "err", err)
				writeError(w, r, opts.Now(), http.StatusUnauthorized, "Unauthorized", unauthorizedMessage(err))
				return
			}
			p.RemoteAddr = origin

			if opts.Auditor != nil {
				opts.Auditor.LogSuccessfulAuthentication(r.Context(), p)
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuthority libera a requisição quando o principal tem pelo menos
// uma das authorities exigidas; caso contrário responde 403.
// Deve rodar depois de Middleware.
func RequireAuthority(auditor Auditor, required ...domain.Authority) func(next http.Handler) http.Handler {
	names := make([]string, len(required))
	for i, a := range required {
		names[i] = string(a)
	}
	requiredLabel := strings.Join(names, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, time.Now(), http.StatusUnauthorized, "Unauthorized", msgFullAuth)
				return
			}
			if !p.Authorities.HasAny(required...) {
				if auditor != nil {
					auditor.LogAuthorizationFailure(r.Context(), p, r.URL.Path, requiredLabel)
				}
				writeError(w, r, time.Now(), http.StatusForbidden, "Forbidden", msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RemoteAddr == nil {
		opts.RemoteAddr = remoteHost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

func authenticate(r *http.Request, v TokenVerifier) (*domain.Principal, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, domain.ErrMissingToken
	}
	if v == nil {
		return nil, domain.ErrInvalidToken
	}

	claims, err := v.Verify(r.Context(), raw)
	if err != nil {
		return nil, err
	}
	authorities, err := application.Extract(claims)
	if err != nil {
		return nil, err
	}

	name, _ := claims.String("sub")
	return &domain.Principal{Name: name, Claims: claims, Authorities: authorities}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return msgExpired
	case errors.Is(err, domain.ErrInvalidToken):
		return msgInvalid
	default:
		return msgFullAuth
	}
}

func writeError(w http.ResponseWriter, r *http.Request, now time.Time, status int, title, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     title,
		Message:   msg,
		Path:      r.URL.Path,
	})
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
