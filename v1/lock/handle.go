package lock

import (
	"context"
	"sync/atomic"

	"github.com/mirkobrombin/go-latch/v1/metrics"
)

// Handle is a single-use token for one successful acquisition. It never
// touches the store itself; release goes through the Manager that minted it.
type Handle struct {
	manager *Manager
	key     string
	token   string

	released atomic.Bool
}

// Key returns the resource key this handle was acquired for.
func (h *Handle) Key() string {
	return h.key
}

// Token returns the ownership token presented at acquisition time.
func (h *Handle) Token() string {
	return h.token
}

// Release frees the lock. It returns true only the first time, and only when
// the store still held this handle's record. Later calls are no-ops returning
// false. A store error leaves the handle usable so the caller can retry; the
// lock's true state is unknown until a call completes.
func (h *Handle) Release(ctx context.Context) (bool, error) {
	if !h.released.CompareAndSwap(false, true) {
		return false, nil
	}
	ok, err := h.manager.Release(ctx, h.key, h.token)
	if err != nil {
		h.released.Store(false)
		return false, err
	}
	if !ok {
		// The record was already gone (expired or taken over), so the
		// manager's success path never decremented for this handle.
		metrics.HeldGauge.Dec()
	}
	return ok, nil
}
