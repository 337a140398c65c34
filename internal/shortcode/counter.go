package shortcode

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/big"

	"github.com/redis/go-redis/v9"
)

// counterKey is the shared sequence all processes increment.
const counterKey = "linkmint:shortcode:counter"

// redisCounterGenerator derives codes from a shared monotonic counter
// combined with a hash of the URL. Redis INCR guarantees no two callers
// observe the same counter value, so the strategy is always-growing.
type redisCounterGenerator struct {
	client *redis.Client
	cfg    Config
}

// NewRedisCounter returns the counter-based always-growing strategy.
func NewRedisCounter(client *redis.Client, cfg Config) Generator {
	return &redisCounterGenerator{client: client, cfg: cfg}
}

func (g *redisCounterGenerator) Generate(ctx context.Context, url string) (string, error) {
	counter, err := g.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return "", fmt.Errorf("increment shortcode counter: %w", err)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(url))

	// Concatenate counter digits with URL-hash digits, then base62-encode
	// the whole number. The counter prefix is what makes the output unique
	// per call.
	n, ok := new(big.Int).SetString(fmt.Sprintf("%d%d", counter, h.Sum64()), 10)
	if !ok {
		panic("shortcode: non-decimal counter input")
	}

	return g.cfg.fit(encodeBase62(n)), nil
}

func (g *redisCounterGenerator) AlwaysGrowing() bool { return true }

func (g *redisCounterGenerator) Name() string { return StrategyRedisCounter }
