package notify

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func TestInMemoryBusPublishSubscribe(t *testing.T) {
	b := NewInMemoryBus()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "unlock:k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Publish(ctx, "unlock:k"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	m := b.Metrics()
	if m.Published != 1 || m.Delivered != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestInMemoryBusUnsubscribe(t *testing.T) {
	b := NewInMemoryBus()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "unlock:k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Unsubscribe(ctx, "unlock:k", ch); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if _, open := <-ch; open {
		t.Fatal("channel not closed on unsubscribe")
	}
	if err := b.Publish(ctx, "unlock:k"); err != nil {
		t.Fatalf("publish after unsubscribe: %v", err)
	}
}

func TestInMemoryBusSubscribeContextCancel(t *testing.T) {
	b := NewInMemoryBus()
	cctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(cctx, "unlock:k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancel")
		}
	}
}

func TestInMemoryBusUnsubscribeStopsWatcher(t *testing.T) {
	b := NewInMemoryBus()
	time.Sleep(10 * time.Millisecond)
	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		ch, err := b.Subscribe(context.Background(), "unlock:k")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		if err := b.Unsubscribe(context.Background(), "unlock:k", ch); err != nil {
			t.Fatalf("unsubscribe: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("watcher goroutines leaked: before %d now %d", before, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
