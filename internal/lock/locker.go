// Package lock coordinates concurrent shortening work for the same
// (tenant, URL) pair. The lock is an optimization that avoids duplicate
// work; the store's unique constraint remains the correctness backstop even
// if the lock layer is bypassed entirely.
package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrHeld is returned by AcquireAndRun when another caller owns the lock.
	ErrHeld = errors.New("lock already held")
	// ErrNotHeld is returned by Release when there was no entry to delete.
	ErrNotHeld = errors.New("lock not held")
)

// Default coordination parameters. The TTL caps how long a crashed worker
// can keep a (tenant, URL) pair stuck; the race window is the grace period
// during which a concurrent creator is treated as the legitimate owner.
const (
	DefaultTTL        = 60 * time.Second
	DefaultRaceWindow = 10 * time.Second
)

// keyPrefix namespaces lock entries in the shared store.
const keyPrefix = "lock:shorten:"

// Locker is the mutual-exclusion contract for creation work.
type Locker interface {
	// IsLocked reports whether an entry currently exists for key.
	IsLocked(ctx context.Context, key string) (bool, error)

	// AcquireAndRun atomically creates the lock entry and, on success, runs
	// fn while holding it. Exactly one of N concurrent callers with the same
	// key runs fn; the rest get ErrHeld. The entry is NOT released when fn
	// returns: the caller passes the key along to whoever finishes the work.
	// Returns true iff fn ran.
	AcquireAndRun(ctx context.Context, key string, fn func() error) (bool, error)

	// Release deletes the entry. ErrNotHeld when nothing was there to
	// delete: callers are expected to only release locks they hold.
	Release(ctx context.Context, key string) error
}

// Key derives the deterministic lock key for a (tenant, URL) pair: a stable
// prefix, the tenant id, and a SHA-256 of the URL. Identical pairs always
// collide on the same key; the same URL under different tenants never does.
func Key(tenantID int64, url string) string {
	sum := sha256.Sum256([]byte(url))

	return keyPrefix + strconv.FormatInt(tenantID, 10) + ":" + hex.EncodeToString(sum[:])
}

func releaseError(key string) error {
	return fmt.Errorf("%w: %s", ErrNotHeld, key)
}
