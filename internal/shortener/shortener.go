// Package shortener orchestrates code generation, locking and persistence
// into the shorten and resolve operations the HTTP layer exposes.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/linkmint/linkmint/internal/events"
	"github.com/linkmint/linkmint/internal/lock"
	"github.com/linkmint/linkmint/internal/messaging"
	"github.com/linkmint/linkmint/internal/shortcode"
	"github.com/linkmint/linkmint/internal/storage"
	"github.com/linkmint/linkmint/internal/tenant"
)

var (
	// ErrNotFound is returned by Resolve and FindExisting when no live
	// mapping exists.
	ErrNotFound = errors.New("short link not found")

	// ErrLockHeld is returned by ShortenAsync when a request for the same
	// (tenant, URL) pair is already in flight. Callers treat it as "already
	// scheduled", never as a reason to enqueue again.
	ErrLockHeld = errors.New("shorten request already in flight")
)

// Shortener composes a code generator, the creation lock and the durable
// store. One instance serves all tenants.
type Shortener struct {
	generator shortcode.Generator
	locker    lock.Locker
	repo      storage.Repository
	enqueue   messaging.Publish[events.ShortenRequestedJob]
	logger    *zap.Logger

	// scheme, when set, replaces the tenant's scheme on every link built.
	scheme string
}

// New creates a Shortener. enqueue may be messaging.NoopPublish when the
// deployment has no async pipeline.
func New(
	generator shortcode.Generator,
	locker lock.Locker,
	repo storage.Repository,
	enqueue messaging.Publish[events.ShortenRequestedJob],
	logger *zap.Logger,
) *Shortener {
	return &Shortener{
		generator: generator,
		locker:    locker,
		repo:      repo,
		enqueue:   enqueue,
		logger:    logger,
	}
}

// WithSchemeOverride forces generated links onto scheme regardless of the
// tenant record, for deployments where TLS terminates in front of the
// engine. Returns the receiver for chaining at construction.
func (s *Shortener) WithSchemeOverride(scheme string) *Shortener {
	s.scheme = scheme

	return s
}

// Shorten creates (or finds) the mapping for url synchronously and returns
// the tenant-branded short link.
func (s *Shortener) Shorten(ctx context.Context, t *tenant.Tenant, url string) (string, error) {
	code, err := s.generator.Generate(ctx, url)
	if err != nil {
		s.logger.Error("code generation failed",
			zap.Int64("tenant_id", t.ID),
			zap.String("strategy", s.generator.Name()),
			zap.Error(err),
		)

		return "", fmt.Errorf("generate code: %w", err)
	}

	record, err := s.persist(ctx, t.ID, code, url)
	if err != nil {
		s.logger.Error("shorten failed",
			zap.Int64("tenant_id", t.ID),
			zap.String("code", code),
			zap.Error(err),
		)

		return "", err
	}

	return s.shortLink(t, record.Code), nil
}

// ShortenAsync schedules creation of the mapping on the background worker.
// At most one job per (tenant, URL) pair is in flight at a time: concurrent
// callers get ErrLockHeld, and the lock is only released once the worker has
// made the mapping durable.
func (s *Shortener) ShortenAsync(ctx context.Context, t *tenant.Tenant, url string) error {
	code, err := s.generator.Generate(ctx, url)
	if err != nil {
		s.logger.Error("code generation failed",
			zap.Int64("tenant_id", t.ID),
			zap.String("strategy", s.generator.Name()),
			zap.Error(err),
		)

		return fmt.Errorf("generate code: %w", err)
	}

	key := lock.Key(t.ID, url)

	ran, err := s.locker.AcquireAndRun(ctx, key, func() error {
		return s.enqueue(&events.ShortenRequestedJob{
			TenantID:    t.ID,
			URL:         url,
			Code:        code,
			LockKey:     key,
			RequestedAt: time.Now().UTC(),
		})
	})
	if errors.Is(err, lock.ErrHeld) {
		return ErrLockHeld
	}

	if err != nil {
		if ran {
			// The job never made it onto the bus, so nothing will release
			// the lock. Free it now so a retry is not stuck until the TTL.
			s.releaseLock(ctx, key)
		}

		s.logger.Error("async shorten failed",
			zap.Int64("tenant_id", t.ID),
			zap.String("code", code),
			zap.Error(err),
		)

		return fmt.Errorf("schedule shorten: %w", err)
	}

	return nil
}

// PersistShortened is the worker half of the async path: make the job's
// mapping durable, then release the creation lock. The lock is released in
// all outcomes so a failed job can be retried immediately; persistence
// errors are returned so the bus can redeliver.
func (s *Shortener) PersistShortened(ctx context.Context, job *events.ShortenRequestedJob) error {
	defer s.releaseLock(ctx, job.LockKey)

	record, err := s.persist(ctx, job.TenantID, job.Code, job.URL)
	if err != nil {
		s.logger.Error("deferred shorten failed",
			zap.Int64("tenant_id", job.TenantID),
			zap.String("code", job.Code),
			zap.Error(err),
		)

		return err
	}

	s.logger.Info("short link created",
		zap.Int64("tenant_id", record.TenantID),
		zap.String("code", record.Code),
	)

	return nil
}

// Resolve returns the stored destination for code, verbatim. Expired
// mappings resolve exactly like missing ones.
func (s *Shortener) Resolve(ctx context.Context, t *tenant.Tenant, code string) (string, error) {
	record, err := s.repo.ByCode(ctx, t.ID, code)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}

	if err != nil {
		s.logger.Error("resolve failed",
			zap.Int64("tenant_id", t.ID),
			zap.String("code", code),
			zap.Error(err),
		)

		return "", fmt.Errorf("resolve %s: %w", code, err)
	}

	if record.Expired(time.Now()) {
		return "", ErrNotFound
	}

	return record.OriginalURL, nil
}

// FindExisting returns the tenant-branded short link already issued for url,
// or ErrNotFound when the URL has never been shortened.
func (s *Shortener) FindExisting(ctx context.Context, t *tenant.Tenant, url string) (string, error) {
	record, err := s.repo.ByOriginalURL(ctx, t.ID, url)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("find existing: %w", err)
	}

	return s.shortLink(t, record.Code), nil
}

func (s *Shortener) shortLink(t *tenant.Tenant, code string) string {
	if s.scheme == "" {
		return t.ShortLink(code)
	}

	u := url.URL{Scheme: s.scheme, Host: t.Hostname, Path: "/" + code}

	return u.String()
}

// persist applies the strategy rule: always-growing generators mint a fresh
// code per call, so an existing (tenant, code) row is a genuine conflict;
// deterministic generators reuse whatever the first writer stored.
func (s *Shortener) persist(ctx context.Context, tenantID int64, code, url string) (*storage.ShortenedURL, error) {
	if s.generator.AlwaysGrowing() {
		return s.repo.Create(ctx, tenantID, code, url)
	}

	return s.repo.FindOrCreate(ctx, tenantID, code, url)
}

func (s *Shortener) releaseLock(ctx context.Context, key string) {
	if err := s.locker.Release(ctx, key); err != nil && !errors.Is(err, lock.ErrNotHeld) {
		// The TTL will reap the entry eventually; the pair is just stuck
		// until then.
		s.logger.Warn("lock release failed", zap.String("lock_key", key), zap.Error(err))
	}
}
