//go:build integration

package lock_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/linkmint/linkmint/internal/lock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisLockerIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: getRedisAddr()})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	locker := lock.NewRedisLocker(client, 0, 0, zap.NewNop())

	t.Run("mutual exclusion across concurrent acquirers", func(t *testing.T) {
		key := lock.Key(100, "https://example.com/integration")
		defer client.Del(ctx, key)

		var executed atomic.Int32

		var wg sync.WaitGroup

		for range 5 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				ran, _ := locker.AcquireAndRun(ctx, key, func() error {
					executed.Add(1)

					return nil
				})
				_ = ran
			}()
		}

		wg.Wait()

		assert.Equal(t, int32(1), executed.Load())
	})

	t.Run("release round trip", func(t *testing.T) {
		key := lock.Key(101, "https://example.com/release")

		err := locker.Release(ctx, key)
		assert.ErrorIs(t, err, lock.ErrNotHeld)

		ran, err := locker.AcquireAndRun(ctx, key, func() error { return nil })
		require.NoError(t, err)
		require.True(t, ran)

		require.NoError(t, locker.Release(ctx, key))

		locked, err := locker.IsLocked(ctx, key)
		require.NoError(t, err)
		assert.False(t, locked)
	})
}
