package lock

import (
	"context"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	latcherrors "github.com/mirkobrombin/go-latch/v1/errors"
	"github.com/mirkobrombin/go-latch/v1/metrics"
	"github.com/mirkobrombin/go-latch/v1/notify"
	"github.com/mirkobrombin/go-latch/v1/store"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-latch/v1/lock")

// Manager coordinates lock acquisition and release against a Store. It holds
// no mutable per-lock state; a single Manager can be shared by any number of
// goroutines.
type Manager struct {
	store store.Store
	bus   notify.Bus
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus attaches an advisory notification bus. The manager publishes
// "lock:"+key after each acquisition and "unlock:"+key after each release that
// removed a record; AcquireWait uses the same events to wake waiters early.
func WithBus(bus notify.Bus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// New returns a Manager backed by st.
func New(st store.Store, opts ...Option) *Manager {
	m := &Manager{store: st}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire attempts to take the lock for key with the given TTL. On success it
// returns a single-use Handle carrying the ownership token. When the key is
// already held it fails fast with ErrNotAcquired; waiting and backoff are the
// caller's policy (or AcquireWait's). Store errors pass through unmodified:
// the lock state is then unknown, which is not the same as held.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Handle, error) {
	if key == "" {
		return nil, latcherrors.ErrEmptyKey
	}
	if ttl <= 0 {
		return nil, latcherrors.ErrInvalidTTL
	}
	ctx, span := tracer.Start(ctx, "lock.Acquire",
		trace.WithAttributes(attribute.String("lock.key", key)))
	defer span.End()

	token, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}
	ok, err := m.store.SetIfAbsent(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.ContentionCounter.Inc()
		span.SetAttributes(attribute.Bool("lock.acquired", false))
		return nil, latcherrors.ErrNotAcquired
	}
	metrics.AcquireCounter.Inc()
	metrics.HeldGauge.Inc()
	span.SetAttributes(attribute.Bool("lock.acquired", true))
	if m.bus != nil {
		_ = m.bus.Publish(ctx, "lock:"+key)
	}
	return &Handle{manager: m, key: key, token: token}, nil
}

// Release deletes the record for key iff it still holds token. It returns
// true only when a record owned by token was removed. Expired, foreign or
// already-released records yield (false, nil): the lock is simply no longer
// this caller's to release. Store errors pass through unmodified.
func (m *Manager) Release(ctx context.Context, key, token string) (bool, error) {
	if key == "" {
		return false, latcherrors.ErrEmptyKey
	}
	if token == "" {
		// No record ever carries an empty token, so there is nothing
		// this caller could own.
		return false, nil
	}
	ctx, span := tracer.Start(ctx, "lock.Release",
		trace.WithAttributes(attribute.String("lock.key", key)))
	defer span.End()

	ok, err := m.store.CompareAndDelete(ctx, key, token)
	if err != nil {
		return false, err
	}
	span.SetAttributes(attribute.Bool("lock.released", ok))
	if !ok {
		metrics.StaleReleaseCounter.Inc()
		return false, nil
	}
	metrics.ReleaseCounter.Inc()
	metrics.HeldGauge.Dec()
	if m.bus != nil {
		_ = m.bus.Publish(ctx, "unlock:"+key)
	}
	return true, nil
}

// Inspect returns the current record for key, if any. Diagnostic only; the
// result is stale the moment it is read and must never drive a release.
func (m *Manager) Inspect(ctx context.Context, key string) (store.Record, bool, error) {
	if key == "" {
		return store.Record{}, false, latcherrors.ErrEmptyKey
	}
	return m.store.Get(ctx, key)
}

// Do acquires the lock for key, runs fn, and releases on every exit path,
// including a panic in fn. The deferred release is best effort: fn's result
// wins, and the TTL remains the backstop if the release round trip fails.
func (m *Manager) Do(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	h, err := m.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		// Release even when ctx was cancelled on the way out.
		_, _ = h.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
