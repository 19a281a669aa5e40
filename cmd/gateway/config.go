package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	listenAddr  string
	upstreamURL string
	logLevel    slog.Level

	rateEnabled       bool
	rateLimit         int
	rateWindowSeconds int
	rateCleanupEvery  time.Duration
	ratePaths         []string
	rateKeyHeader     string
	trustXFF          bool
	addHeaders        bool
	rateBackend       string

	redisAddr     string
	redisPassword string
	redisDB       int

	rateStats       string
	rateStatsPrefix string
	rateStatsTTL    time.Duration

	authMode        string
	jwtSecret       string
	jwtIssuer       string
	jwtAudience     string
	authPublicPaths []string
	adminAuthority  string

	auditStore        string
	databaseURL       string
	sqlitePath        string
	auditWriteTimeout time.Duration
	auditMaxInflight  int
}

// loadConfig lê o .env (se existir) e depois o ambiente.
func loadConfig() (config, error) {
	_ = godotenv.Load()
	return readConfig()
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	if err := cfg.logLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	// Padrão: 5 requisições por janela de 60s nos endpoints de credencial.
	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateLimit = getenvIntDefault("RATE_LIMIT", 5)
	cfg.rateWindowSeconds = getenvIntDefault("RATE_WINDOW_SECONDS", 60)
	cfg.rateCleanupEvery = getenvDurationDefault("RATE_CLEANUP_EVERY", time.Minute)
	cfg.ratePaths = getenvListDefault("RATE_PATHS", nil)
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.rateBackend = strings.ToLower(getenvDefault("RATE_BACKEND", "memory"))

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.rateStats = strings.ToLower(getenvDefault("RATE_STATS", "none"))
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "authgate:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)

	cfg.authMode = strings.ToLower(getenvDefault("AUTH_MODE", "off"))
	cfg.jwtSecret = os.Getenv("JWT_SECRET")
	cfg.jwtIssuer = os.Getenv("JWT_ISSUER")
	cfg.jwtAudience = os.Getenv("JWT_AUDIENCE")
	cfg.authPublicPaths = getenvListDefault("AUTH_PUBLIC_PATHS", []string{"/actuator/health", "/oauth/token", "/login", "/authenticate"})
	cfg.adminAuthority = getenvDefault("ADMIN_AUTHORITY", "ROLE_ADMIN")

	cfg.auditStore = strings.ToLower(getenvDefault("AUDIT_STORE", "memory"))
	cfg.databaseURL = os.Getenv("DATABASE_URL")
	cfg.sqlitePath = getenvDefault("SQLITE_PATH", "security_events.db")
	cfg.auditWriteTimeout = getenvDurationDefault("AUDIT_WRITE_TIMEOUT", 2*time.Second)
	cfg.auditMaxInflight = getenvIntDefault("AUDIT_MAX_INFLIGHT", 16)

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (cfg config) validate() error {
	if cfg.upstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	if cfg.rateLimit <= 0 {
		return errors.New("RATE_LIMIT must be > 0")
	}
	if cfg.rateWindowSeconds <= 0 {
		return errors.New("RATE_WINDOW_SECONDS must be > 0")
	}
	switch cfg.rateBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.redisAddr) == "" {
			return errors.New("REDIS_ADDR is required when RATE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("RATE_BACKEND must be memory or redis, got %q", cfg.rateBackend)
	}
	switch cfg.rateStats {
	case "none", "memory", "prometheus":
	case "redis":
		if strings.TrimSpace(cfg.redisAddr) == "" {
			return errors.New("REDIS_ADDR is required when RATE_STATS=redis")
		}
	default:
		return fmt.Errorf("RATE_STATS must be none, memory, redis or prometheus, got %q", cfg.rateStats)
	}
	switch cfg.authMode {
	case "off":
	case "hs256":
		if cfg.jwtSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_MODE=hs256")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be off or hs256, got %q", cfg.authMode)
	}
	switch cfg.auditStore {
	case "memory", "sqlite":
	case "postgres":
		if cfg.databaseURL == "" {
			return errors.New("DATABASE_URL is required when AUDIT_STORE=postgres")
		}
	default:
		return fmt.Errorf("AUDIT_STORE must be memory, sqlite or postgres, got %q", cfg.auditStore)
	}
	if cfg.auditMaxInflight <= 0 {
		return errors.New("AUDIT_MAX_INFLIGHT must be > 0")
	}
	return nil
}

// usesRedis informa se algum componente precisa do cliente Redis.
func (cfg config) usesRedis() bool {
	return cfg.rateBackend == "redis" || cfg.rateStats == "redis"
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// getenvListDefault lê uma lista separada por vírgulas.
func getenvListDefault(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
