package shortcode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Strategy names accepted by New.
const (
	StrategyMD5          = "md5"
	StrategySHA256       = "sha256"
	StrategyCRC32        = "crc32"
	StrategyNanoID       = "nanoid"
	StrategyRedisCounter = "redis_counter"
	StrategyMock         = "mock"
)

// ErrUnknownStrategy is returned by New for names outside the known set.
var ErrUnknownStrategy = errors.New("unknown shortening strategy")

// filler pads codes that come out shorter than the configured minimum.
const filler = '0'

// Generator produces a candidate short code for a long URL.
type Generator interface {
	Generate(ctx context.Context, url string) (string, error)

	// AlwaysGrowing reports whether repeated calls with the same URL yield a
	// fresh code every time. Callers must not attempt find-or-create
	// semantics for always-growing generators.
	AlwaysGrowing() bool

	Name() string
}

// Config bounds the length of generated codes.
type Config struct {
	// MinLength is enforced by right-padding with '0'.
	MinLength int
	// MaxLength truncates longer codes; 0 disables the cap. Truncation never
	// undercuts MinLength when MinLength <= MaxLength.
	MaxLength int
}

// DefaultConfig matches the historical bounds: codes of 5 to 10 characters.
func DefaultConfig() Config {
	return Config{MinLength: 5, MaxLength: 10}
}

// fit applies the min/max length bounds to a raw code.
func (c Config) fit(code string) string {
	if len(code) < c.MinLength {
		code += strings.Repeat(string(filler), c.MinLength-len(code))
	}

	if c.MaxLength > 0 && len(code) > c.MaxLength && c.MaxLength >= c.MinLength {
		code = code[:c.MaxLength]
	}

	return code
}

// Valid reports whether name is a known strategy.
func Valid(name string) bool {
	switch name {
	case StrategyMD5, StrategySHA256, StrategyCRC32, StrategyNanoID, StrategyRedisCounter, StrategyMock:
		return true
	default:
		return false
	}
}

// New maps a configured strategy name to a generator. Unknown names fail
// here, at wiring time, not at first use. The redis client is only required
// by the redis_counter strategy.
func New(name string, cfg Config, client *redis.Client) (Generator, error) {
	switch name {
	case StrategyMD5:
		return NewMD5(cfg), nil
	case StrategySHA256:
		return NewSHA256(cfg), nil
	case StrategyCRC32:
		return NewCRC32(cfg), nil
	case StrategyNanoID:
		return NewNanoID(cfg)
	case StrategyRedisCounter:
		if client == nil {
			return nil, fmt.Errorf("strategy %q requires a redis client", name)
		}

		return NewRedisCounter(client, cfg), nil
	case StrategyMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
