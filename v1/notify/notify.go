// Package notify provides the advisory pub/sub channel the lock manager uses
// to wake blocked acquirers when a key is released. Delivery is best effort:
// waiters always re-attempt the conditional write against the store, so a lost
// event costs latency, never correctness.
package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

// Bus fans out lock lifecycle events to subscribers by topic.
type Bus interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (chan struct{}, error)
	Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error
}

// subscriber pairs the delivery channel with a done signal so the goroutine
// watching the subscription context exits on Unsubscribe too, not only on
// context cancellation.
type subscriber struct {
	ch   chan struct{}
	done chan struct{}
}

// InMemoryBus is a local implementation of Bus for single-process use and
// tests.
type InMemoryBus struct {
	mu        sync.Mutex
	subs      map[string][]subscriber
	published uint64
	delivered uint64
}

// NewInMemoryBus returns a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]subscriber)}
}

// Publish implements Bus.Publish.
func (b *InMemoryBus) Publish(ctx context.Context, topic string) error {
	b.mu.Lock()
	subs := append([]subscriber(nil), b.subs[topic]...)
	b.mu.Unlock()
	atomic.AddUint64(&b.published, 1)
	for _, s := range subs {
		select {
		case s.ch <- struct{}{}:
			atomic.AddUint64(&b.delivered, 1)
		default:
		}
	}
	return nil
}

// Subscribe implements Bus.Subscribe. The returned channel has capacity one;
// coalesced events are fine because receivers treat any signal as "go look at
// the store again".
func (b *InMemoryBus) Subscribe(ctx context.Context, topic string) (chan struct{}, error) {
	sub := subscriber{ch: make(chan struct{}, 1), done: make(chan struct{})}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			_ = b.Unsubscribe(context.Background(), topic, sub.ch)
		case <-sub.done:
		}
	}()
	return sub.ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *InMemoryBus) Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error {
	b.mu.Lock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.ch == ch {
			subs[i] = subs[len(subs)-1]
			subs = subs[:len(subs)-1]
			b.subs[topic] = subs
			close(s.done)
			close(s.ch)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
	return nil
}

// Metrics reports publish and delivery counts.
type Metrics struct {
	Published uint64
	Delivered uint64
}

// Metrics returns the counts observed so far.
func (b *InMemoryBus) Metrics() Metrics {
	return Metrics{
		Published: atomic.LoadUint64(&b.published),
		Delivered: atomic.LoadUint64(&b.delivered),
	}
}
