package store

import (
	"context"
	"testing"
	"time"
)

func TestInMemorySetIfAbsent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "k", "t1", time.Second)
	if err != nil || !ok {
		t.Fatalf("first set: ok %v err %v", ok, err)
	}
	if ok, err := s.SetIfAbsent(ctx, "k", "t2", time.Second); err != nil || ok {
		t.Fatalf("expected key held, ok %v err %v", ok, err)
	}
	rec, found, err := s.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("get: found %v err %v", found, err)
	}
	if rec.Value != "t1" {
		t.Fatalf("second set must not overwrite, got value %q", rec.Value)
	}
}

func TestInMemoryCompareAndDelete(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if _, err := s.SetIfAbsent(ctx, "k", "t1", time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, err := s.CompareAndDelete(ctx, "k", "other"); err != nil || ok {
		t.Fatalf("mismatched token must not delete, ok %v err %v", ok, err)
	}
	if _, found, _ := s.Get(ctx, "k"); !found {
		t.Fatal("record removed by mismatched delete")
	}
	if ok, err := s.CompareAndDelete(ctx, "k", "t1"); err != nil || !ok {
		t.Fatalf("matching delete: ok %v err %v", ok, err)
	}
	if ok, err := s.CompareAndDelete(ctx, "k", "t1"); err != nil || ok {
		t.Fatalf("second delete must report false, ok %v err %v", ok, err)
	}
}

func TestInMemoryTTLExpires(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if ok, err := s.SetIfAbsent(ctx, "k", "t1", 10*time.Millisecond); err != nil || !ok {
		t.Fatalf("set: ok %v err %v", ok, err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, found, err := s.Get(ctx, "k"); err != nil || found {
		t.Fatalf("record should have expired, found %v err %v", found, err)
	}
	if ok, err := s.SetIfAbsent(ctx, "k", "t2", time.Second); err != nil || !ok {
		t.Fatalf("expired key should be reusable, ok %v err %v", ok, err)
	}
	if ok, err := s.CompareAndDelete(ctx, "k", "t1"); err != nil || ok {
		t.Fatalf("expired token must not delete successor, ok %v err %v", ok, err)
	}
}

func TestInMemoryGetReportsTTL(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if _, err := s.SetIfAbsent(ctx, "k", "t1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, found, err := s.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("get: found %v err %v", found, err)
	}
	if rec.TTL <= 0 || rec.TTL > time.Minute {
		t.Fatalf("unexpected ttl %v", rec.TTL)
	}
}

func TestInMemoryContextCancelled(t *testing.T) {
	s := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SetIfAbsent(ctx, "k", "t1", time.Second); err == nil {
		t.Fatal("expected context error")
	}
	if _, err := s.CompareAndDelete(ctx, "k", "t1"); err == nil {
		t.Fatal("expected context error")
	}
}
