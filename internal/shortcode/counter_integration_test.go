//go:build integration

package shortcode_test

import (
	"context"
	"os"
	"testing"

	"github.com/linkmint/linkmint/internal/shortcode"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisCounterIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: getRedisAddr()})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	gen := shortcode.NewRedisCounter(client, shortcode.Config{MinLength: 12})

	t.Run("every call yields a fresh code for the same URL", func(t *testing.T) {
		seen := make(map[string]bool)

		for range 50 {
			code, err := gen.Generate(ctx, "https://example.com")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(code), 12)
			assert.False(t, seen[code], "duplicate code %q", code)
			seen[code] = true
		}
	})

	t.Run("declared always growing", func(t *testing.T) {
		assert.True(t, gen.AlwaysGrowing())
	})
}
