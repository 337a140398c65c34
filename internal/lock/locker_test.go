package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linkmint/linkmint/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	t.Run("same pair always yields the same key", func(t *testing.T) {
		assert.Equal(t,
			lock.Key(1, "https://example.com"),
			lock.Key(1, "https://example.com"),
		)
	})

	t.Run("different tenants with the same URL yield different keys", func(t *testing.T) {
		assert.NotEqual(t,
			lock.Key(1, "https://example.com"),
			lock.Key(2, "https://example.com"),
		)
	})

	t.Run("different URLs yield different keys", func(t *testing.T) {
		assert.NotEqual(t,
			lock.Key(1, "https://example.com/a"),
			lock.Key(1, "https://example.com/b"),
		)
	})
}

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	locker := lock.NewMemoryLocker(0)
	ctx := context.Background()
	key := lock.Key(1, "https://example.com")

	var executed atomic.Int32

	var held atomic.Int32

	var wg sync.WaitGroup

	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ran, err := locker.AcquireAndRun(ctx, key, func() error {
				executed.Add(1)

				return nil
			})
			if !ran {
				assert.ErrorIs(t, err, lock.ErrHeld)
				held.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), executed.Load(), "exactly one block must execute")
	assert.Equal(t, int32(4), held.Load(), "the other callers must observe the lock as held")
}

func TestMemoryLocker_ReleaseRoundTrip(t *testing.T) {
	locker := lock.NewMemoryLocker(0)
	ctx := context.Background()
	key := lock.Key(42, "https://example.com/page")

	t.Run("release on a never-acquired key errors", func(t *testing.T) {
		err := locker.Release(ctx, key)

		require.Error(t, err)
		assert.ErrorIs(t, err, lock.ErrNotHeld)
	})

	t.Run("acquire, release, then unlocked", func(t *testing.T) {
		ran, err := locker.AcquireAndRun(ctx, key, func() error { return nil })
		require.NoError(t, err)
		require.True(t, ran)

		locked, err := locker.IsLocked(ctx, key)
		require.NoError(t, err)
		assert.True(t, locked)

		require.NoError(t, locker.Release(ctx, key))

		locked, err = locker.IsLocked(ctx, key)
		require.NoError(t, err)
		assert.False(t, locked)
	})
}

func TestMemoryLocker_BlockErrorStillHoldsLock(t *testing.T) {
	locker := lock.NewMemoryLocker(0)
	ctx := context.Background()
	key := lock.Key(7, "https://example.com")

	ran, err := locker.AcquireAndRun(ctx, key, func() error {
		return assert.AnError
	})

	require.True(t, ran)
	require.ErrorIs(t, err, assert.AnError)

	// The lock stays held so the failed work's owner (or the TTL) decides
	// when the pair becomes available again.
	locked, err := locker.IsLocked(ctx, key)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestMemoryLocker_TTLExpiry(t *testing.T) {
	locker := lock.NewMemoryLocker(20 * time.Millisecond)
	ctx := context.Background()
	key := lock.Key(9, "https://example.com")

	ran, err := locker.AcquireAndRun(ctx, key, func() error { return nil })
	require.NoError(t, err)
	require.True(t, ran)

	time.Sleep(30 * time.Millisecond)

	locked, err := locker.IsLocked(ctx, key)
	require.NoError(t, err)
	assert.False(t, locked, "entry must expire so abandoned work does not stick")

	ran, err = locker.AcquireAndRun(ctx, key, func() error { return nil })
	require.NoError(t, err)
	assert.True(t, ran, "a fresh acquisition must succeed after expiry")
}
