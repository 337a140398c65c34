package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheRepository decorates a Repository with read-through caching on
// the redirect hot path (ByCode). Writes go through to the underlying store
// first; the cache is best-effort and never the source of truth.
type RedisCacheRepository struct {
	store  Repository
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCacheRepository creates a Redis-cached repository decorator.
func NewRedisCacheRepository(store Repository, client *redis.Client, ttl time.Duration) *RedisCacheRepository {
	return &RedisCacheRepository{store: store, client: client, ttl: ttl}
}

func cacheKey(tenantID int64, code string) string {
	return fmt.Sprintf("shorturl:%d:%s", tenantID, code)
}

func (r *RedisCacheRepository) FindOrCreate(ctx context.Context, tenantID int64, code, url string) (*ShortenedURL, error) {
	record, err := r.store.FindOrCreate(ctx, tenantID, code, url)
	if err != nil {
		return nil, err
	}

	r.cache(ctx, record)

	return record, nil
}

func (r *RedisCacheRepository) Create(ctx context.Context, tenantID int64, code, url string) (*ShortenedURL, error) {
	record, err := r.store.Create(ctx, tenantID, code, url)
	if err != nil {
		return nil, err
	}

	r.cache(ctx, record)

	return record, nil
}

func (r *RedisCacheRepository) ByCode(ctx context.Context, tenantID int64, code string) (*ShortenedURL, error) {
	if record, err := r.fromCache(ctx, tenantID, code); err == nil {
		return record, nil
	}

	record, err := r.store.ByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	r.cache(ctx, record)

	return record, nil
}

// ByOriginalURL is a creation-path lookup, not a hot path; it always goes
// to the store.
func (r *RedisCacheRepository) ByOriginalURL(ctx context.Context, tenantID int64, url string) (*ShortenedURL, error) {
	return r.store.ByOriginalURL(ctx, tenantID, url)
}

func (r *RedisCacheRepository) fromCache(ctx context.Context, tenantID int64, code string) (*ShortenedURL, error) {
	fields, err := r.client.HGetAll(ctx, cacheKey(tenantID, code)).Result()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	record := &ShortenedURL{
		TenantID:    tenantID,
		Code:        fields["code"],
		OriginalURL: fields["original_url"],
	}

	if raw, ok := fields["expires_at"]; ok && raw != "" {
		if nanos, err := strconv.ParseInt(raw, 10, 64); err == nil {
			t := time.Unix(0, nanos)
			record.ExpiresAt = &t
		}
	}

	return record, nil
}

func (r *RedisCacheRepository) cache(ctx context.Context, record *ShortenedURL) {
	key := cacheKey(record.TenantID, record.Code)

	expiresAt := ""
	if record.ExpiresAt != nil {
		expiresAt = strconv.FormatInt(record.ExpiresAt.UnixNano(), 10)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"code":         record.Code,
		"original_url": record.OriginalURL,
		"expires_at":   expiresAt,
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

// Compile-time check.
var _ Repository = (*RedisCacheRepository)(nil)
