package shortcode

import (
	"context"
	"hash/crc32"
)

// crc32Generator is the fast checksum-based variant. With only 32 bits of
// input its collision rate is materially higher than the digest strategies,
// so it only suits small corpora where speed matters more.
type crc32Generator struct {
	cfg Config
}

// NewCRC32 returns the checksum-based strategy.
func NewCRC32(cfg Config) Generator {
	return &crc32Generator{cfg: cfg}
}

func (g *crc32Generator) Generate(_ context.Context, url string) (string, error) {
	sum := crc32.ChecksumIEEE([]byte(url))

	return g.cfg.fit(encodeBase62Uint(uint64(sum))), nil
}

func (g *crc32Generator) AlwaysGrowing() bool { return false }

func (g *crc32Generator) Name() string { return StrategyCRC32 }
