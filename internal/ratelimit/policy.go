package ratelimit

import "time"

// LimitConfig is one window/max pair. A request is denied when the count of
// requests inside the window exceeds Max.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps scopes to the limits enforced for them. Scopes without an
// entry are unlimited.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// PolicyBuilder assembles a Policy incrementally.
type PolicyBuilder struct {
	limits map[Scope][]LimitConfig
}

// NewPolicyBuilder creates an empty policy builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{
		limits: make(map[Scope][]LimitConfig),
	}
}

// AddLimit appends a limit for a scope. Multiple limits per scope are all
// enforced.
func (b *PolicyBuilder) AddLimit(scope Scope, max int64, window time.Duration) *PolicyBuilder {
	b.limits[scope] = append(b.limits[scope], LimitConfig{Window: window, Max: max})

	return b
}

// Build returns the assembled policy.
func (b *PolicyBuilder) Build() *Policy {
	return &Policy{Limits: b.limits}
}

// DefaultPolicy returns the engine-wide default limits: a broad global
// ceiling, relaxed reads, tighter writes.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {
				{Window: time.Minute, Max: 3000},
			},
			ScopeRead: {
				{Window: time.Minute, Max: 2000},
			},
			ScopeWrite: {
				{Window: time.Minute, Max: 100},
				{Window: time.Hour, Max: 2000},
			},
		},
	}
}
