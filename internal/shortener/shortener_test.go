package shortener_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkmint/linkmint/internal/events"
	"github.com/linkmint/linkmint/internal/lock"
	"github.com/linkmint/linkmint/internal/messaging"
	"github.com/linkmint/linkmint/internal/shortcode"
	"github.com/linkmint/linkmint/internal/shortener"
	"github.com/linkmint/linkmint/internal/storage"
	"github.com/linkmint/linkmint/internal/tenant"
)

var testTenant = &tenant.Tenant{
	ID:       1,
	Name:     "acme",
	Scheme:   "https",
	Hostname: "short.test",
}

type growingGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *growingGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++

	return []string{"aaaaa", "bbbbb", "ccccc", "ddddd"}[(g.next-1)%4], nil
}

func (g *growingGenerator) AlwaysGrowing() bool { return true }

func (g *growingGenerator) Name() string { return "growing-test" }

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string) (string, error) {
	return "", errors.New("generator down")
}

func (failingGenerator) AlwaysGrowing() bool { return false }

func (failingGenerator) Name() string { return "failing-test" }

func captureJobs() (messaging.Publish[events.ShortenRequestedJob], *[]events.ShortenRequestedJob) {
	var (
		mu   sync.Mutex
		jobs []events.ShortenRequestedJob
	)

	return func(job *events.ShortenRequestedJob) error {
		mu.Lock()
		defer mu.Unlock()
		jobs = append(jobs, *job)

		return nil
	}, &jobs
}

func newShortener(gen shortcode.Generator, repo storage.Repository) (*shortener.Shortener, lock.Locker) {
	locker := lock.NewMemoryLocker(time.Minute)

	return shortener.New(gen, locker, repo, messaging.NoopPublish[events.ShortenRequestedJob](), zap.NewNop()), locker
}

func TestShortener_Shorten(t *testing.T) {
	ctx := context.Background()

	t.Run("deterministic strategy returns the same link for the same url", func(t *testing.T) {
		repo := storage.NewMemoryRepository(0)
		s, _ := newShortener(shortcode.NewMock(), repo)

		first, err := s.Shorten(ctx, testTenant, "example-code")
		require.NoError(t, err)

		second, err := s.Shorten(ctx, testTenant, "example-code")
		require.NoError(t, err)

		assert.Equal(t, "https://short.test/example-code", first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("always-growing strategy mints a fresh link per call", func(t *testing.T) {
		repo := storage.NewMemoryRepository(0)
		s, _ := newShortener(&growingGenerator{}, repo)

		first, err := s.Shorten(ctx, testTenant, "https://example.com/a")
		require.NoError(t, err)

		second, err := s.Shorten(ctx, testTenant, "https://example.com/a")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Equal(t, 2, repo.Len())
	})

	t.Run("scheme override replaces the tenant scheme", func(t *testing.T) {
		repo := storage.NewMemoryRepository(0)
		s, _ := newShortener(shortcode.NewMock(), repo)
		s = s.WithSchemeOverride("http")

		link, err := s.Shorten(ctx, testTenant, "example-code")
		require.NoError(t, err)

		assert.Equal(t, "http://short.test/example-code", link)
	})

	t.Run("propagates generator failure", func(t *testing.T) {
		s, _ := newShortener(failingGenerator{}, storage.NewMemoryRepository(0))

		_, err := s.Shorten(ctx, testTenant, "https://example.com")

		assert.ErrorContains(t, err, "generate code")
	})

	t.Run("propagates persistence failure", func(t *testing.T) {
		s, _ := newShortener(shortcode.NewMock(), storage.NewMemoryRepository(0))

		_, err := s.Shorten(ctx, testTenant, "")

		assert.ErrorIs(t, err, storage.ErrInvalid)
	})
}

func TestShortener_ShortenAsync(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes exactly one job with the lock key", func(t *testing.T) {
		publish, jobs := captureJobs()
		locker := lock.NewMemoryLocker(time.Minute)
		s := shortener.New(shortcode.NewMock(), locker, storage.NewMemoryRepository(0), publish, zap.NewNop())

		err := s.ShortenAsync(ctx, testTenant, "some-url")
		require.NoError(t, err)

		require.Len(t, *jobs, 1)
		job := (*jobs)[0]
		assert.Equal(t, testTenant.ID, job.TenantID)
		assert.Equal(t, "some-url", job.URL)
		assert.Equal(t, "some-url", job.Code)
		assert.Equal(t, lock.Key(testTenant.ID, "some-url"), job.LockKey)
		assert.False(t, job.RequestedAt.IsZero())

		held, err := locker.IsLocked(ctx, job.LockKey)
		require.NoError(t, err)
		assert.True(t, held, "lock must stay held until the worker persists")
	})

	t.Run("second request while in flight is not enqueued again", func(t *testing.T) {
		publish, jobs := captureJobs()
		locker := lock.NewMemoryLocker(time.Minute)
		s := shortener.New(shortcode.NewMock(), locker, storage.NewMemoryRepository(0), publish, zap.NewNop())

		require.NoError(t, s.ShortenAsync(ctx, testTenant, "some-url"))

		err := s.ShortenAsync(ctx, testTenant, "some-url")

		assert.ErrorIs(t, err, shortener.ErrLockHeld)
		assert.Len(t, *jobs, 1)
	})

	t.Run("releases the lock when publishing fails", func(t *testing.T) {
		locker := lock.NewMemoryLocker(time.Minute)
		publish := func(*events.ShortenRequestedJob) error { return errors.New("bus down") }
		s := shortener.New(shortcode.NewMock(), locker, storage.NewMemoryRepository(0), publish, zap.NewNop())

		err := s.ShortenAsync(ctx, testTenant, "some-url")
		require.Error(t, err)

		held, err := locker.IsLocked(ctx, lock.Key(testTenant.ID, "some-url"))
		require.NoError(t, err)
		assert.False(t, held, "failed enqueue must not leave the pair stuck")
	})
}

func TestShortener_PersistShortened(t *testing.T) {
	ctx := context.Background()

	job := func(code string) *events.ShortenRequestedJob {
		return &events.ShortenRequestedJob{
			TenantID:    testTenant.ID,
			URL:         "https://example.com/page",
			Code:        code,
			LockKey:     lock.Key(testTenant.ID, "https://example.com/page"),
			RequestedAt: time.Now(),
		}
	}

	t.Run("persists the mapping and releases the lock", func(t *testing.T) {
		repo := storage.NewMemoryRepository(0)
		locker := lock.NewMemoryLocker(time.Minute)
		s := shortener.New(shortcode.NewMock(), locker, repo, messaging.NoopPublish[events.ShortenRequestedJob](), zap.NewNop())

		j := job("abc12")
		_, acquireErr := locker.AcquireAndRun(ctx, j.LockKey, func() error { return nil })
		require.NoError(t, acquireErr)

		err := s.PersistShortened(ctx, j)
		require.NoError(t, err)

		record, err := repo.ByCode(ctx, testTenant.ID, "abc12")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/page", record.OriginalURL)

		held, err := locker.IsLocked(ctx, j.LockKey)
		require.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("releases the lock even when persistence fails", func(t *testing.T) {
		locker := lock.NewMemoryLocker(time.Minute)
		s := shortener.New(shortcode.NewMock(), locker, storage.NewMemoryRepository(0), messaging.NoopPublish[events.ShortenRequestedJob](), zap.NewNop())

		j := job("") // blank code fails write validation
		_, acquireErr := locker.AcquireAndRun(ctx, j.LockKey, func() error { return nil })
		require.NoError(t, acquireErr)

		err := s.PersistShortened(ctx, j)
		assert.ErrorIs(t, err, storage.ErrInvalid)

		held, err := locker.IsLocked(ctx, j.LockKey)
		require.NoError(t, err)
		assert.False(t, held, "retry must be possible immediately")
	})
}

func TestShortener_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored url verbatim", func(t *testing.T) {
		repo := storage.NewMemoryRepository(0)
		s, _ := newShortener(shortcode.NewMock(), repo)

		_, err := repo.Create(ctx, testTenant.ID, "abc12", "https://example.com/page?q=1&x=%20y")
		require.NoError(t, err)

		got, err := s.Resolve(ctx, testTenant, "abc12")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/page?q=1&x=%20y", got)
	})

	t.Run("unknown code", func(t *testing.T) {
		s, _ := newShortener(shortcode.NewMock(), storage.NewMemoryRepository(0))

		_, err := s.Resolve(ctx, testTenant, "nope")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("expired mapping resolves like a missing one", func(t *testing.T) {
		repo := storage.NewMemoryRepository(0)
		s, _ := newShortener(shortcode.NewMock(), repo)

		_, err := repo.Create(ctx, testTenant.ID, "abc12", "https://example.com")
		require.NoError(t, err)
		require.True(t, repo.SetExpiry(testTenant.ID, "abc12", time.Now().Add(-time.Hour)))

		_, err = s.Resolve(ctx, testTenant, "abc12")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestShortener_FindExisting(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the link already issued for a url", func(t *testing.T) {
		repo := storage.NewMemoryRepository(0)
		s, _ := newShortener(shortcode.NewMock(), repo)

		_, err := repo.Create(ctx, testTenant.ID, "abc12", "https://example.com/page")
		require.NoError(t, err)

		got, err := s.FindExisting(ctx, testTenant, "https://example.com/page")

		require.NoError(t, err)
		assert.Equal(t, "https://short.test/abc12", got)
	})

	t.Run("never shortened", func(t *testing.T) {
		s, _ := newShortener(shortcode.NewMock(), storage.NewMemoryRepository(0))

		_, err := s.FindExisting(ctx, testTenant, "https://example.com/other")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}
