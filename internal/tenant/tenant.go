// Package tenant resolves API keys and inbound hostnames to the account
// that owns a namespace of short codes.
package tenant

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Directory lookups that miss.
var ErrNotFound = errors.New("tenant not found")

// Valid redirect schemes for a tenant's short-link host.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// Tenant is an account owning a namespace of short codes. Hostname is
// immutable after creation: changing it would silently break every short
// link already issued under it.
type Tenant struct {
	ID        int64
	Name      string
	APIKey    string
	Scheme    string
	Hostname  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShortLink builds the externally visible link for a code using the
// tenant's own scheme and hostname.
func (t *Tenant) ShortLink(code string) string {
	u := url.URL{Scheme: t.Scheme, Host: t.Hostname, Path: "/" + code}

	return u.String()
}

// ValidScheme reports whether s is an accepted redirect scheme.
func ValidScheme(s string) bool {
	return s == SchemeHTTP || s == SchemeHTTPS
}

// NewAPIKey generates a fresh, underived API key. Rotation replaces the key
// wholesale; nothing about the old key survives in the new one.
func NewAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Directory resolves an API key or inbound hostname to a tenant.
type Directory interface {
	ByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)
	ByHostname(ctx context.Context, hostname string) (*Tenant, error)
}
