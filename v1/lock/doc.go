// Package lock implements a distributed mutual-exclusion lock on top of a
// key-value store with native per-key expiry. The store is the single source
// of truth: acquisition is one atomic conditional write, release is one atomic
// compare-and-delete fenced by the ownership token minted at acquisition.
// The manager keeps no per-lock state and is safe for concurrent use.
package lock
