package shortcode

import (
	"context"

	"github.com/jaevor/go-nanoid"
)

// nanoIDGenerator returns a fresh random code on every call. Callers must
// use unconditional create semantics: the same URL never maps back to a
// previously issued code.
type nanoIDGenerator struct {
	cfg      Config
	generate func() string
}

// NewNanoID returns the random always-growing strategy.
func NewNanoID(cfg Config) (Generator, error) {
	size := cfg.MinLength
	if size < 2 {
		// nanoid requires at least 2 characters.
		size = 2
	}

	generate, err := nanoid.Standard(size)
	if err != nil {
		return nil, err
	}

	return &nanoIDGenerator{cfg: cfg, generate: generate}, nil
}

func (g *nanoIDGenerator) Generate(_ context.Context, _ string) (string, error) {
	return g.cfg.fit(g.generate()), nil
}

func (g *nanoIDGenerator) AlwaysGrowing() bool { return true }

func (g *nanoIDGenerator) Name() string { return StrategyNanoID }
