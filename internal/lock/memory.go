package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLocker is an in-process Locker with the same semantics as the Redis
// implementation. Intended for tests and single-node development.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	ttl     time.Duration
}

// NewMemoryLocker creates an in-memory locker. Zero ttl falls back to the
// package default.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryLocker{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
}

func (l *MemoryLocker) IsLocked(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.held(key), nil
}

func (l *MemoryLocker) AcquireAndRun(_ context.Context, key string, fn func() error) (bool, error) {
	l.mu.Lock()

	if l.held(key) {
		l.mu.Unlock()

		return false, fmt.Errorf("%w: %s", ErrHeld, key)
	}

	l.entries[key] = time.Now().Add(l.ttl)
	l.mu.Unlock()

	return true, fn()
}

func (l *MemoryLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held(key) {
		delete(l.entries, key)

		return releaseError(key)
	}

	delete(l.entries, key)

	return nil
}

// held assumes the caller holds mu.
func (l *MemoryLocker) held(key string) bool {
	expiry, ok := l.entries[key]

	return ok && time.Now().Before(expiry)
}

// Compile-time check.
var _ Locker = (*MemoryLocker)(nil)
