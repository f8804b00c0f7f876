// Package store defines the key-value capabilities the lock manager needs
// from its backend and provides Redis and in-memory implementations. The
// backend is the single source of truth for ownership: every record lives
// there with a server-enforced TTL, never in process memory.
package store

import (
	"context"
	"time"
)

// Record is a diagnostic view of a lock record.
type Record struct {
	Value string
	TTL   time.Duration
}

// Store exposes the atomic primitives the lock protocol is built on. All
// three operations must be indivisible on the backend; a get-then-delete
// emulation of CompareAndDelete races with TTL expiry and re-acquisition.
type Store interface {
	// SetIfAbsent atomically creates key→value with expiry ttl iff no live
	// record exists for key. It returns true when the record was created.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete atomically deletes the record for key iff its current
	// value equals expected. It returns true when a record was removed.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	// Get returns the current record for key. The boolean return indicates
	// whether a live record was found. Diagnostic only: delete decisions must
	// go through CompareAndDelete.
	Get(ctx context.Context, key string) (Record, bool, error)
}
