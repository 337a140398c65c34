package tenant

import (
	"context"
	"strings"
	"sync"
)

// MemoryDirectory is an in-memory Directory for tests and development.
type MemoryDirectory struct {
	mu     sync.RWMutex
	byKey  map[string]*Tenant
	byHost map[string]*Tenant
}

// NewMemoryDirectory creates an empty in-memory tenant directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byKey:  make(map[string]*Tenant),
		byHost: make(map[string]*Tenant),
	}
}

// Add registers a tenant. Hostnames are stored lowercase.
func (d *MemoryDirectory) Add(t *Tenant) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.byKey[t.APIKey] = t
	d.byHost[strings.ToLower(t.Hostname)] = t
}

func (d *MemoryDirectory) ByAPIKey(_ context.Context, apiKey string) (*Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.byKey[apiKey]
	if !ok {
		return nil, ErrNotFound
	}

	return t, nil
}

func (d *MemoryDirectory) ByHostname(_ context.Context, hostname string) (*Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.byHost[strings.ToLower(hostname)]
	if !ok {
		return nil, ErrNotFound
	}

	return t, nil
}

// Compile-time check.
var _ Directory = (*MemoryDirectory)(nil)
