package lock

import (
	"context"
	stdErrors "errors"
	"time"

	latcherrors "github.com/mirkobrombin/go-latch/v1/errors"
)

const (
	waitBackoffMin = 25 * time.Millisecond
	waitBackoffMax = 500 * time.Millisecond
)

// AcquireWait blocks until the lock is obtained, the context is cancelled, or
// the store fails. It layers a retry loop over Acquire: capped exponential
// backoff, shortened by bus wakeups when a notify bus is attached. The
// subscription is taken once for the whole wait and the timer always runs
// alongside it, because TTL expiry at the store produces no unlock event.
func (m *Manager) AcquireWait(ctx context.Context, key string, ttl time.Duration) (*Handle, error) {
	var ch chan struct{}
	if m.bus != nil {
		var err error
		ch, err = m.bus.Subscribe(ctx, "unlock:"+key)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = m.bus.Unsubscribe(context.Background(), "unlock:"+key, ch)
		}()
	}

	backoff := waitBackoffMin
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := m.Acquire(ctx, key, ttl)
		if err == nil {
			return h, nil
		}
		if !stdErrors.Is(err, latcherrors.ErrNotAcquired) {
			return nil, err
		}

		timer := time.NewTimer(backoff)
		if ch != nil {
			select {
			case <-ch:
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		} else {
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
		timer.Stop()

		if backoff < waitBackoffMax {
			backoff *= 2
			if backoff > waitBackoffMax {
				backoff = waitBackoffMax
			}
		}
	}
}
