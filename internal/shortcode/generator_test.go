package shortcode_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/linkmint/linkmint/internal/shortcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deterministicStrategies(t *testing.T) map[string]shortcode.Generator {
	t.Helper()

	cfg := shortcode.DefaultConfig()

	return map[string]shortcode.Generator{
		shortcode.StrategyMD5:    shortcode.NewMD5(cfg),
		shortcode.StrategySHA256: shortcode.NewSHA256(cfg),
		shortcode.StrategyCRC32:  shortcode.NewCRC32(cfg),
	}
}

func TestDeterministicStrategies(t *testing.T) {
	ctx := context.Background()

	for name, gen := range deterministicStrategies(t) {
		t.Run(name+" yields the same code for the same URL", func(t *testing.T) {
			first, err := gen.Generate(ctx, "https://example.com")
			require.NoError(t, err)

			second, err := gen.Generate(ctx, "https://example.com")
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.False(t, gen.AlwaysGrowing())
		})

		t.Run(name+" yields different codes for different URLs", func(t *testing.T) {
			first, err := gen.Generate(ctx, "https://example.com/one")
			require.NoError(t, err)

			second, err := gen.Generate(ctx, "https://example.com/two")
			require.NoError(t, err)

			assert.NotEqual(t, first, second)
		})
	}
}

func TestMinimumLength(t *testing.T) {
	ctx := context.Background()
	cfg := shortcode.Config{MinLength: 7, MaxLength: 10}

	nano, err := shortcode.NewNanoID(cfg)
	require.NoError(t, err)

	generators := []shortcode.Generator{
		shortcode.NewMD5(cfg),
		shortcode.NewSHA256(cfg),
		shortcode.NewCRC32(cfg),
		nano,
	}

	inputs := []string{
		"https://example.com",
		"https://example.com/a",
		"a", // tiny input still produces a padded code
	}

	for _, gen := range generators {
		for _, input := range inputs {
			code, err := gen.Generate(ctx, input)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(code), 7,
				"%s(%q) produced %q", gen.Name(), input, code)
			assert.LessOrEqual(t, len(code), 10,
				"%s(%q) produced %q", gen.Name(), input, code)
		}
	}
}

func TestNanoIDAlwaysGrowing(t *testing.T) {
	gen, err := shortcode.NewNanoID(shortcode.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, gen.AlwaysGrowing())

	seen := make(map[string]bool)

	for range 100 {
		code, err := gen.Generate(context.Background(), "https://example.com")
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}
}

func TestCRC32CollisionRate(t *testing.T) {
	// The checksum strategy trades collision resistance for speed. This
	// quantifies the trade on a fixed corpus: with 32 bits of checksum a
	// 10k-URL corpus should see at most a handful of collisions.
	gen := shortcode.NewCRC32(shortcode.Config{MinLength: 5})
	ctx := context.Background()

	const corpusSize = 10000

	codes := make(map[string]int)
	collisions := 0

	for i := range corpusSize {
		code, err := gen.Generate(ctx, fmt.Sprintf("https://example.com/page/%d", i))
		require.NoError(t, err)

		if codes[code] > 0 {
			collisions++
		}

		codes[code]++
	}

	assert.LessOrEqual(t, collisions, 5,
		"crc32 collision rate unexpectedly high: %d/%d", collisions, corpusSize)
}

func TestMockStrategy(t *testing.T) {
	gen := shortcode.NewMock()

	code, err := gen.Generate(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", code)
	assert.False(t, gen.AlwaysGrowing())
}

func TestNew(t *testing.T) {
	t.Run("builds every known non-redis strategy", func(t *testing.T) {
		for _, name := range []string{
			shortcode.StrategyMD5,
			shortcode.StrategySHA256,
			shortcode.StrategyCRC32,
			shortcode.StrategyNanoID,
			shortcode.StrategyMock,
		} {
			gen, err := shortcode.New(name, shortcode.DefaultConfig(), nil)
			require.NoError(t, err, name)
			assert.Equal(t, name, gen.Name())
		}
	})

	t.Run("rejects unknown strategy names", func(t *testing.T) {
		_, err := shortcode.New("rot13", shortcode.DefaultConfig(), nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, shortcode.ErrUnknownStrategy)
	})

	t.Run("redis_counter requires a client", func(t *testing.T) {
		_, err := shortcode.New(shortcode.StrategyRedisCounter, shortcode.DefaultConfig(), nil)

		assert.Error(t, err)
	})
}

func TestValid(t *testing.T) {
	assert.True(t, shortcode.Valid(shortcode.StrategyMD5))
	assert.True(t, shortcode.Valid(shortcode.StrategyRedisCounter))
	assert.False(t, shortcode.Valid(""))
	assert.False(t, shortcode.Valid("base64"))
}
