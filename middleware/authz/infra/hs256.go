package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"identity-gateway/middleware/authz/domain"
)

// HS256Verifier valida tokens HMAC-SHA256 e devolve os claims verificados.
type HS256Verifier struct {
	secret []byte
	parser *jwt.Parser
}

type HS256Option func(*hs256Config)

type hs256Config struct {
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

func WithIssuer(iss string) HS256Option {
	return func(c *hs256Config) { c.issuer = iss }
}

func WithAudience(aud string) HS256Option {
	return func(c *hs256Config) { c.audience = aud }
}

func WithLeeway(d time.Duration) HS256Option {
	return func(c *hs256Config) { c.leeway = d }
}

// WithTimeFunc troca o relógio usado na validação de exp/nbf (testes).
func WithTimeFunc(now func() time.Time) HS256Option {
	return func(c *hs256Config) { c.now = now }
}

func NewHS256Verifier(secret []byte, opts ...HS256Option) (*HS256Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("hs256 verifier: secret is required")
	}

	var cfg hs256Config
	for _, opt := range opts {
		opt(&cfg)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.issuer))
	}
	if cfg.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.audience))
	}
	if cfg.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(cfg.leeway))
	}
	if cfg.now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(cfg.now))
	}

	return &HS256Verifier{secret: secret, parser: jwt.NewParser(parserOpts...)}, nil
}

// Verify devolve os claims do token, ErrTokenExpired para tokens vencidos
// e ErrInvalidToken para qualquer outra falha.
func (v *HS256Verifier) Verify(_ context.Context, raw string) (domain.ClaimSet, error) {
	if raw == "" {
		return nil, domain.ErrMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case err == nil:
		return domain.ClaimSet(claims), nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
}

// Sign emite um token HS256 com os claims informados. Usado por testes e
// pelo servidor de exemplo.
func Sign(secret []byte, claims domain.ClaimSet) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString(secret)
}
