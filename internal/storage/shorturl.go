// Package storage is the durable mapping of (tenant, code) to original URL.
// The per-tenant unique constraint here is the single source of truth for
// uniqueness; the lock layer above it only reduces duplicate work.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("short url not found")
	// ErrCodeTaken is returned by Create when the (tenant, code) pair
	// already exists. Always-growing strategies treat this as a real error.
	ErrCodeTaken = errors.New("short code already taken")
	// ErrInvalid is wrapped by write-time validation failures.
	ErrInvalid = errors.New("invalid short url")
)

// MaxURLLength bounds stored URLs, matching the practical URL length cap.
const MaxURLLength = 2083

// ShortenedURL is a durable (tenant, code) -> URL mapping. Records are never
// updated after creation except as the find side of a find-or-create race,
// and never deleted by the engine.
type ShortenedURL struct {
	ID          int64
	TenantID    int64
	Code        string
	OriginalURL string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the record is inert: an expiry is set and has
// passed. Records without an expiry never expire.
func (s *ShortenedURL) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Repository is the shortened-URL store contract.
type Repository interface {
	// FindOrCreate is idempotent and race-safe: if (tenantID, code) exists
	// the stored record is returned unchanged even when url differs (first
	// writer wins); otherwise the record is inserted atomically.
	FindOrCreate(ctx context.Context, tenantID int64, code, url string) (*ShortenedURL, error)

	// Create inserts unconditionally and returns ErrCodeTaken on a
	// uniqueness violation. Only for always-growing strategies, where a
	// collision means something is wrong.
	Create(ctx context.Context, tenantID int64, code, url string) (*ShortenedURL, error)

	// ByCode returns the record for (tenantID, code) or ErrNotFound. Expiry
	// is the caller's concern: expired records are still returned.
	ByCode(ctx context.Context, tenantID int64, code string) (*ShortenedURL, error)

	// ByOriginalURL returns an existing mapping for a long URL, if any.
	ByOriginalURL(ctx context.Context, tenantID int64, url string) (*ShortenedURL, error)
}

// validateWrite enforces the write-time invariants shared by all
// implementations.
func validateWrite(code, url string, maxCodeLength int) error {
	if url == "" {
		return fmt.Errorf("%w: blank url", ErrInvalid)
	}

	if code == "" {
		return fmt.Errorf("%w: blank short code", ErrInvalid)
	}

	if len(url) > MaxURLLength {
		return fmt.Errorf("%w: url exceeds %d characters", ErrInvalid, MaxURLLength)
	}

	if maxCodeLength > 0 && len(code) > maxCodeLength {
		return fmt.Errorf("%w: short code exceeds %d characters", ErrInvalid, maxCodeLength)
	}

	return nil
}
