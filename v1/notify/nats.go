package notify

import (
	"context"
	"sync"
	"sync/atomic"

	nats "github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "latch."

type natsSubscription struct {
	sub  *nats.Subscription
	subs []subscriber
}

// NATSBus implements Bus using a NATS backend.
type NATSBus struct {
	conn *nats.Conn

	mu        sync.Mutex
	topics    map[string]*natsSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewNATSBus returns a new NATSBus using the provided connection.
func NewNATSBus(conn *nats.Conn) *NATSBus {
	return &NATSBus{conn: conn, topics: make(map[string]*natsSubscription)}
}

// Publish implements Bus.Publish.
func (b *NATSBus) Publish(ctx context.Context, topic string) error {
	if err := b.conn.Publish(natsSubjectPrefix+topic, []byte("1")); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe.
func (b *NATSBus) Subscribe(ctx context.Context, topic string) (chan struct{}, error) {
	sub := subscriber{ch: make(chan struct{}, 1), done: make(chan struct{})}
	b.mu.Lock()
	ns := b.topics[topic]
	if ns == nil {
		inner, err := b.conn.Subscribe(natsSubjectPrefix+topic, func(_ *nats.Msg) {
			b.mu.Lock()
			cur := b.topics[topic]
			if cur == nil {
				b.mu.Unlock()
				return
			}
			subs := append([]subscriber(nil), cur.subs...)
			b.mu.Unlock()
			for _, s := range subs {
				select {
				case s.ch <- struct{}{}:
					b.delivered.Add(1)
				default:
				}
			}
		})
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		ns = &natsSubscription{sub: inner}
		b.topics[topic] = ns
	}
	ns.subs = append(ns.subs, sub)
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
func (b *NATSBus) Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error {
	b.mu.Lock()
	ns := b.topics[topic]
	if ns == nil {
		b.mu.Unlock()
		return nil
	}
	for i, s := range ns.subs {
		if s.ch == ch {
			ns.subs[i] = ns.subs[len(ns.subs)-1]
			ns.subs = ns.subs[:len(ns.subs)-1]
			close(s.done)
			close(s.ch)
			break
		}
	}
	if len(ns.subs) == 0 {
		delete(b.topics, topic)
		b.mu.Unlock()
		return ns.sub.Unsubscribe()
	}
	b.mu.Unlock()
	return nil
}

// Metrics returns the published and delivered counts.
func (b *NATSBus) Metrics() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}
