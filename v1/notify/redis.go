package notify

import (
	"context"
	"sync"
	"sync/atomic"

	redis "github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "latch:"

type redisSubscription struct {
	pubsub *redis.PubSub
	subs   []subscriber
}

// RedisBus implements Bus over Redis pub/sub. Events are delivered to every
// subscriber, including those in the publishing process: local subscribers
// are waiters that need the wakeup just as much as remote ones.
type RedisBus struct {
	client *redis.Client

	mu        sync.Mutex
	topics    map[string]*redisSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewRedisBus returns a new RedisBus using the provided client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{
		client: client,
		topics: make(map[string]*redisSubscription),
	}
}

// Publish implements Bus.Publish.
func (b *RedisBus) Publish(ctx context.Context, topic string) error {
	if err := b.client.Publish(ctx, redisChannelPrefix+topic, "1").Err(); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (chan struct{}, error) {
	sub := subscriber{ch: make(chan struct{}, 1), done: make(chan struct{})}
	b.mu.Lock()
	rs := b.topics[topic]
	if rs == nil {
		pubsub := b.client.Subscribe(context.Background(), redisChannelPrefix+topic)
		rs = &redisSubscription{pubsub: pubsub}
		b.topics[topic] = rs
		go b.dispatch(rs, topic)
	}
	rs.subs = append(rs.subs, sub)
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

func (b *RedisBus) dispatch(rs *redisSubscription, topic string) {
	for range rs.pubsub.Channel() {
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
	}
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *RedisBus) Unsubscribe(ctx context.Context, topic string, ch chan struct{}) error {
	b.mu.Lock()
	rs := b.topics[topic]
	if rs == nil {
		b.mu.Unlock()
		return nil
	}
	for i, s := range rs.subs {
		if s.ch == ch {
			rs.subs[i] = rs.subs[len(rs.subs)-1]
			rs.subs = rs.subs[:len(rs.subs)-1]
			close(s.done)
			close(s.ch)
			break
		}
	}
	if len(rs.subs) == 0 {
		delete(b.topics, topic)
		b.mu.Unlock()
		return rs.pubsub.Close()
	}
	b.mu.Unlock()
	return nil
}

// Metrics returns the published and delivered counts.
func (b *RedisBus) Metrics() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}
