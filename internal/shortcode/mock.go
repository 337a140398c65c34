package shortcode

import "context"

// mockGenerator returns the input URL unchanged. Test use only.
type mockGenerator struct{}

// NewMock returns the identity strategy.
func NewMock() Generator {
	return mockGenerator{}
}

func (mockGenerator) Generate(_ context.Context, url string) (string, error) {
	return url, nil
}

func (mockGenerator) AlwaysGrowing() bool { return false }

func (mockGenerator) Name() string { return StrategyMock }
