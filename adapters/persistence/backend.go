package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/pkg/apperror"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

type State string

const (
	StateDisabled   State = "disabled"
	StateConnecting State = "connecting"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

const reconnectInterval = 5 * time.Second

// Backend owns a lazily established connection handle. It starts disabled
// when no connect function is given, otherwise it connects on the first Get
// and retries a failed connection at most once per reconnectInterval.
type Backend[T any] struct {
	name    string
	connect func(ctx context.Context) (T, error)
	closer  func(T)
	logger  logger.Logger

	mu          sync.Mutex
	state       atomic.Value
	handle      T
	lastAttempt time.Time
}

func NewBackend[T any](name string, connect func(ctx context.Context) (T, error), closer func(T), log logger.Logger) *Backend[T] {
	b := &Backend[T]{name: name, connect: connect, closer: closer, logger: log}
	if connect == nil {
		b.state.Store(StateDisabled)
	} else {
		b.state.Store(StateConnecting)
	}
	return b
}

// ReadyBackend wraps an already connected handle.
func ReadyBackend[T any](name string, handle T, log logger.Logger) *Backend[T] {
	b := &Backend[T]{name: name, handle: handle, logger: log}
	b.state.Store(StateReady)
	return b
}

func (b *Backend[T]) Name() string {
	return b.name
}

func (b *Backend[T]) State() State {
	return b.state.Load().(State)
}

func (b *Backend[T]) Get(ctx context.Context) (T, error) {
	var zero T

	switch b.State() {
	case StateReady:
		return b.handle, nil
	case StateDisabled:
		return zero, apperror.NewUnavailable(b.name+" is not configured", nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.State() == StateReady {
		return b.handle, nil
	}
	if b.State() == StateFailed && time.Since(b.lastAttempt) < reconnectInterval {
		return zero, apperror.NewUnavailable(b.name+" connection failed recently", nil)
	}

	b.state.Store(StateConnecting)
	b.lastAttempt = time.Now()
	h, err := b.connect(ctx)
	if err != nil {
		b.state.Store(StateFailed)
		b.logger.Warn("Storage backend connection failed", zap.String("backend", b.name), zap.Error(err))
		return zero, apperror.NewUnavailable(b.name+" connection failed", err)
	}

	b.handle = h
	b.state.Store(StateReady)
	b.logger.Info("Storage backend ready", zap.String("backend", b.name))
	return h, nil
}

func (b *Backend[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() == StateReady && b.closer != nil {
		b.closer(b.handle)
	}
	if b.connect == nil {
		b.state.Store(StateDisabled)
	} else {
		b.state.Store(StateConnecting)
	}
}

// Check attempts a connection when one is due and reports the resulting state.
func (b *Backend[T]) Check(ctx context.Context) State {
	_, _ = b.Get(ctx)
	return b.State()
}
