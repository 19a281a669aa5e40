package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"identity-gateway/middleware/audit/domain"
	authzdomain "identity-gateway/middleware/authz/domain"
)

const (
	DefaultWriteTimeout = 2 * time.Second

	defaultErrorLogEvery = time.Second
	defaultErrorLogBurst = 5
)

// Recorder transforma resultados de autenticação/autorização em eventos de
// segurança e os entrega ao store.
//
// Os métodos Log* nunca devolvem erro nem entram em pânico: falhas de
// persistência viram ErrPersistence, vão para o log e são descartadas.
// A gravação é síncrona, mas limitada por WriteTimeout e pelo pool de vagas.
type Recorder struct {
	store  domain.Store
	log    *slog.Logger
	now    func() time.Time
	ids    IDGenerator
	slots  SlotService
	writeT time.Duration

	errLog     *rate.Limiter
	suppressed atomic.Int64
}

type Option func(*Recorder)

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.log = ResolveLogger(l) }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(r *Recorder) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithWriteTimeout limita o tempo de cada gravação (vaga + Save).
// Valores <= 0 desligam o limite.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.writeT = d }
}

// WithWritePool limita quantas gravações rodam ao mesmo tempo.
func WithWritePool(p domain.SlotPool) Option {
	return func(r *Recorder) { r.slots.Pool = p }
}

// WithErrorLogRate limita os logs de falha de persistência para não inundar
// o log quando o store cai. Os descartados são contados em "suppressed".
func WithErrorLogRate(every time.Duration, burst int) Option {
	return func(r *Recorder) { r.errLog = rate.NewLimiter(rate.Every(every), burst) }
}

func NewRecorder(store domain.Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit recorder: store is required")
	}
	r := &Recorder{
		store:  store,
		log:    slog.Default(),
		now:    time.Now,
		ids:    UUIDGenerator{},
		writeT: DefaultWriteTimeout,
		errLog: rate.NewLimiter(rate.Every(defaultErrorLogEvery), defaultErrorLogBurst),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.slots.AcquireTimeout = r.writeT
	return r, nil
}

func (r *Recorder) LogSuccessfulAuthentication(ctx context.Context, p *authzdomain.Principal) {
	if p == nil {
		r.log.Error("cannot record authentication success without principal")
		return
	}
	ev := domain.SecurityEvent{
		Type:    domain.AuthenticationSuccess,
		Subject: subjectOf(p),
		Origin:  originOf(p),
		Details: successDetails(p),
	}
	if r.record(ctx, ev) {
		r.log.Info("authentication success", "subject", ev.Subject)
	}
}

func (r *Recorder) LogFailedAuthentication(ctx context.Context, p *authzdomain.Principal, reason error) {
	msg := "unknown"
	if reason != nil {
		msg = reason.Error()
	}
	ev := domain.SecurityEvent{
		Type:    domain.AuthenticationFailure,
		Subject: subjectOf(p),
		Origin:  originOf(p),
		Details: "Failure reason: " + msg,
	}
	if r.record(ctx, ev) {
		r.log.Warn("authentication failure", "subject", ev.Subject, "reason", msg)
	}
}

func (r *Recorder) LogAuthorizationFailure(ctx context.Context, p *authzdomain.Principal, resource, required string) {
	has := ""
	if p != nil {
		has = p.Authorities.String()
	}
	ev := domain.SecurityEvent{
		Type:    domain.AuthorizationFailure,
		Subject: subjectOf(p),
		Origin:  originOf(p),
		Details: fmt.Sprintf("Resource: %s, Required: %s, User has: %s", resource, required, has),
	}
	if r.record(ctx, ev) {
		r.log.Warn("authorization failure", "subject", ev.Subject, "resource", resource)
	}
}

func (r *Recorder) LogTokenRefresh(ctx context.Context, subject, oldTokenID, newTokenID string) {
	ev := domain.SecurityEvent{
		Type:    domain.TokenRefresh,
		Subject: subject,
		Details: fmt.Sprintf("Old token: %s, New token: %s", oldTokenID, newTokenID),
	}
	if r.record(ctx, ev) {
		r.log.Info("token refresh", "subject", subject)
	}
}

func (r *Recorder) LogRateLimitExceeded(ctx context.Context, clientIP, endpoint string) {
	ev := domain.SecurityEvent{
		Type:    domain.RateLimitExceeded,
		Origin:  clientIP,
		Details: "Endpoint: " + endpoint,
	}
	if r.record(ctx, ev) {
		r.log.Warn("rate limit exceeded", "client", clientIP, "endpoint", endpoint)
	}
}

func (r *Recorder) LogConfigurationChange(ctx context.Context, admin, changeType, details string) {
	ev := domain.SecurityEvent{
		Type:    domain.ConfigurationChange,
		Subject: admin,
		Details: fmt.Sprintf("Change type: %s, Details: %s", changeType, details),
	}
	if r.record(ctx, ev) {
		r.log.Info("security configuration change", "admin", admin, "change_type", changeType)
	}
}

func (r *Recorder) LogSuspiciousActivity(ctx context.Context, clientIP, activityType, details string) {
	ev := domain.SecurityEvent{
		Type:    domain.SuspiciousActivity,
		Origin:  clientIP,
		Details: fmt.Sprintf("Activity: %s, Details: %s", activityType, details),
	}
	if r.record(ctx, ev) {
		r.log.Warn("suspicious activity", "client", clientIP, "activity", activityType)
	}
}

func (r *Recorder) LogLogout(ctx context.Context, p *authzdomain.Principal) {
	ev := domain.SecurityEvent{
		Type:    domain.Logout,
		Subject: subjectOf(p),
		Origin:  originOf(p),
	}
	if r.record(ctx, ev) {
		r.log.Info("logout", "subject", ev.Subject)
	}
}

func (r *Recorder) LogPasswordChange(ctx context.Context, subject, origin string) {
	ev := domain.SecurityEvent{
		Type:    domain.PasswordChange,
		Subject: subject,
		Origin:  origin,
	}
	if r.record(ctx, ev) {
		r.log.Info("password change", "subject", subject)
	}
}

func (r *Recorder) LogAccountLocked(ctx context.Context, subject, reason string) {
	ev := domain.SecurityEvent{
		Type:    domain.AccountLocked,
		Subject: subject,
		Details: "Reason: " + reason,
	}
	if r.record(ctx, ev) {
		r.log.Warn("account locked", "subject", subject, "reason", reason)
	}
}

func (r *Recorder) LogAccountUnlocked(ctx context.Context, subject, unlockedBy string) {
	ev := domain.SecurityEvent{
		Type:    domain.AccountUnlocked,
		Subject: subject,
		Details: "Unlocked by: " + unlockedBy,
	}
	if r.record(ctx, ev) {
		r.log.Info("account unlocked", "subject", subject, "by", unlockedBy)
	}
}

// record completa o evento e grava. Devolve false quando a gravação falhou
// (a falha já foi registrada em log).
func (r *Recorder) record(ctx context.Context, ev domain.SecurityEvent) bool {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}
	if ev.Subject == "" {
		ev.Subject = domain.UnknownSubject
	}
	if ev.Origin == "" {
		ev.Origin = domain.UnknownOrigin
	}
	ev.Details = domain.TruncateDetails(ev.Details)

	if err := r.persist(ctx, ev); err != nil {
		r.logFailure(ev, err)
		return false
	}
	return true
}

func (r *Recorder) persist(ctx context.Context, ev domain.SecurityEvent) (err error) {
	// a requisição pode terminar antes da gravação; o prazo vem de writeT
	ctx = context.WithoutCancel(ctx)
	if r.writeT > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.writeT)
		defer cancel()
	}

	if ev.ID == "" {
		id, idErr := r.ids.NewID(ctx)
		if idErr != nil {
			return fmt.Errorf("%w: generate id: %w", domain.ErrPersistence, idErr)
		}
		ev.ID = id
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	release, ok := r.slots.Acquire(ctx)
	if !ok {
		return fmt.Errorf("%w: no write slot available", domain.ErrPersistence)
	}
	defer release()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: store panic: %v", domain.ErrPersistence, p)
		}
	}()

	if err := r.store.Save(ctx, ev); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *Recorder) logFailure(ev domain.SecurityEvent, err error) {
	if !r.errLog.Allow() {
		r.suppressed.Add(1)
		return
	}
	r.log.Error("failed to save security event",
		"event_type", string(ev.Type),
		"subject", ev.Subject,
		"err", err,
		"suppressed", r.suppressed.Swap(0),
	)
}

// subjectOf: claim username, depois email, depois o nome do principal.
func subjectOf(p *authzdomain.Principal) string {
	if p == nil {
		return domain.UnknownSubject
	}
	for _, claim := range []string{"username", "email"} {
		if v, ok := claimText(p.Claims, claim); ok {
			return v
		}
	}
	if p.Name != "" {
		return p.Name
	}
	return domain.UnknownSubject
}

func originOf(p *authzdomain.Principal) string {
	if p == nil || p.RemoteAddr == "" {
		return domain.UnknownOrigin
	}
	return p.RemoteAddr
}

func successDetails(p *authzdomain.Principal) string {
	var b strings.Builder
	if email, ok := claimText(p.Claims, "email"); ok {
		b.WriteString("email: ")
		b.WriteString(email)
		b.WriteString(", ")
	}
	b.WriteString("authorities: ")
	b.WriteString(p.Authorities.String())
	return b.String()
}

func claimText(c authzdomain.ClaimSet, name string) (string, bool) {
	v, ok := c[name]
	if !ok || v == nil {
		return "", false
	}
	if s, isString := v.(string); isString {
		return s, s != ""
	}
	return fmt.Sprint(v), true
}
