package shortcode

import (
	"context"
	"crypto/md5" //nolint:gosec // not used for security, only code derivation
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// digestPrefixLen is the number of hex digits of the digest that feed the
// code: 10 hex digits = 40 bits, so two distinct URLs collide with
// probability ~N^2/2^41, negligible for corpora well into the millions.
// Collisions that do occur are absorbed by find-or-create plus the
// per-tenant unique constraint.
const digestPrefixLen = 10

type digestFunc func(url string) string

// digestGenerator derives a deterministic code from a digest of the URL:
// same URL, same code, enabling idempotent find-or-create.
type digestGenerator struct {
	name   string
	digest digestFunc
	cfg    Config
}

// NewMD5 returns the default deterministic strategy (MD5 digest, base62).
func NewMD5(cfg Config) Generator {
	return &digestGenerator{
		name: StrategyMD5,
		digest: func(url string) string {
			sum := md5.Sum([]byte(url)) //nolint:gosec

			return hex.EncodeToString(sum[:])
		},
		cfg: cfg,
	}
}

// NewSHA256 returns the SHA-256 deterministic strategy.
func NewSHA256(cfg Config) Generator {
	return &digestGenerator{
		name: StrategySHA256,
		digest: func(url string) string {
			sum := sha256.Sum256([]byte(url))

			return hex.EncodeToString(sum[:])
		},
		cfg: cfg,
	}
}

func (g *digestGenerator) Generate(_ context.Context, url string) (string, error) {
	digest := g.digest(url)

	n, ok := new(big.Int).SetString(digest[:digestPrefixLen], 16)
	if !ok {
		// Digest output is always valid hex; this is unreachable.
		panic("shortcode: non-hex digest output")
	}

	return g.cfg.fit(encodeBase62(n)), nil
}

func (g *digestGenerator) AlwaysGrowing() bool { return false }

func (g *digestGenerator) Name() string { return g.name }
