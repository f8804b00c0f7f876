package errors

import "errors"

var (
	// ErrNotAcquired is returned by Acquire when the key is already held.
	// It signals expected contention, not a fault.
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrEmptyKey is returned when an empty lock key is provided.
	ErrEmptyKey = errors.New("lock key must not be empty")
	// ErrInvalidTTL is returned when a non-positive TTL is provided.
	ErrInvalidTTL = errors.New("lock ttl must be positive")

	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("connection closed")
)
