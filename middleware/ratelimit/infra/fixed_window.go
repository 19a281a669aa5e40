package infra

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"identity-gateway/middleware/ratelimit/domain"
)

// FixedWindowLimiter conta requisições por cliente em janelas fixas.
//
// Cada cliente tem uma clientWindow imutável no início da janela e um contador
// atômico. Na virada da janela a clientWindow inteira é trocada via
// CompareAndSwap no sync.Map, nunca zerada no lugar; assim o caminho quente
// não segura lock do mapa e o contador de uma janela nunca "volta".
//
// Janela fixa permite rajada de até 2×limit na fronteira entre janelas.
type FixedWindowLimiter struct {
	limit         int
	windowSeconds int
	window        time.Duration

	clock           domain.Clock
	cleanupEvery    time.Duration
	shutdownTimeout time.Duration

	windows sync.Map // domain.Key -> *clientWindow

	mu      sync.Mutex
	janitor *janitorHandle
}

type clientWindow struct {
	start time.Time
	count atomic.Int64
}

func newClientWindow(now time.Time) *clientWindow {
	return &clientWindow{start: now}
}

func (w *clientWindow) expired(now time.Time, window time.Duration) bool {
	return now.Sub(w.start) > window
}

type janitorHandle struct {
	stop  chan struct{}
	force context.CancelFunc
	done  chan struct{}
}

type FixedWindowOption func(*FixedWindowLimiter)

func WithClock(c domain.Clock) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithCleanupEvery define o intervalo da varredura de janelas ociosas.
// Valor <= 0 desliga o janitor (Start vira no-op).
func WithCleanupEvery(d time.Duration) FixedWindowOption {
	return func(l *FixedWindowLimiter) { l.cleanupEvery = d }
}

func WithShutdownTimeout(d time.Duration) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		if d > 0 {
			l.shutdownTimeout = d
		}
	}
}

func NewFixedWindow(limit, windowSeconds int, opts ...FixedWindowOption) (*FixedWindowLimiter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidConfig, limit)
	}
	if windowSeconds <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidConfig, windowSeconds)
	}

	l := &FixedWindowLimiter{
		limit:           limit,
		windowSeconds:   windowSeconds,
		window:          time.Duration(windowSeconds) * time.Second,
		clock:           domain.SystemClock{},
		cleanupEvery:    time.Minute,
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *FixedWindowLimiter) Limit() int { return l.limit }

// Allow implementa domain.Limiter.
//
// Requisições negadas também incrementam o contador.
func (l *FixedWindowLimiter) Allow(key domain.Key) bool {
	return l.current(key).count.Add(1) <= int64(l.limit)
}

// current devolve a janela vigente do cliente, criando ou trocando atomicamente
// quando não existe ou já expirou.
func (l *FixedWindowLimiter) current(key domain.Key) *clientWindow {
	for {
		now := l.clock.Now()

		v, ok := l.windows.Load(key)
		if !ok {
			fresh := newClientWindow(now)
			actual, loaded := l.windows.LoadOrStore(key, fresh)
			if !loaded {
				return fresh
			}
			v = actual
		}

		w := v.(*clientWindow)
		if !w.expired(now, l.window) {
			return w
		}

		fresh := newClientWindow(now)
		if l.windows.CompareAndSwap(key, w, fresh) {
			return fresh
		}
		// perdeu a corrida para outra goroutine (ou para o janitor): recarrega
	}
}

func (l *FixedWindowLimiter) Remaining(key domain.Key) int {
	v, ok := l.windows.Load(key)
	if !ok {
		return l.limit
	}
	w := v.(*clientWindow)
	if w.expired(l.clock.Now(), l.window) {
		return l.limit
	}
	remaining := l.limit - int(w.count.Load())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (l *FixedWindowLimiter) ResetSeconds(key domain.Key) int {
	v, ok := l.windows.Load(key)
	if !ok {
		return l.windowSeconds
	}
	w := v.(*clientWindow)
	left := w.start.Add(l.window).Sub(l.clock.Now())
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

// ActiveClients conta as janelas ainda em memória.
func (l *FixedWindowLimiter) ActiveClients() int {
	n := 0
	l.windows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Cleanup remove janelas com idade acima de 2×window. A folga evita despejar
// um cliente que acabou de virar a janela.
func (l *FixedWindowLimiter) Cleanup() {
	l.sweep(context.Background())
}

func (l *FixedWindowLimiter) sweep(ctx context.Context) {
	now := l.clock.Now()
	grace := 2 * l.window

	l.windows.Range(func(k, v any) bool {
		if ctx.Err() != nil {
			return false
		}
		w := v.(*clientWindow)
		if w.expired(now, grace) {
			// CompareAndDelete: se a janela foi trocada nesse meio tempo, fica.
			l.windows.CompareAndDelete(k, w)
		}
		return true
	})
}

// Start inicia a goroutine de limpeza periódica. Chamadas repetidas são no-op.
func (l *FixedWindowLimiter) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.janitor != nil || l.cleanupEvery <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &janitorHandle{
		stop:  make(chan struct{}),
		force: cancel,
		done:  make(chan struct{}),
	}
	l.janitor = h

	t := time.NewTicker(l.cleanupEvery)
	go func() {
		defer close(h.done)
		defer t.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-t.C:
				l.sweep(ctx)
			}
		}
	}()
}

// Shutdown para de agendar limpezas e espera a varredura em andamento até
// shutdownTimeout. Estourado o prazo, a varredura é cancelada entre uma chave
// e outra e ErrShutdownTimeout é devolvido.
func (l *FixedWindowLimiter) Shutdown() error {
	l.mu.Lock()
	h := l.janitor
	l.janitor = nil
	l.mu.Unlock()

	if h == nil {
		return nil
	}
	close(h.stop)

	timer := time.NewTimer(l.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		h.force()
		return nil
	case <-timer.C:
		h.force()
		return domain.ErrShutdownTimeout
	}
}
