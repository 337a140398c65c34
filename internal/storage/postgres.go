package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// PostgresRepository is the durable Repository implementation.
type PostgresRepository struct {
	pool          *pgxpool.Pool
	maxCodeLength int
}

// NewPostgresRepository creates a PostgreSQL-backed short-URL store.
// maxCodeLength of 0 disables the code length check.
func NewPostgresRepository(pool *pgxpool.Pool, maxCodeLength int) *PostgresRepository {
	return &PostgresRepository{pool: pool, maxCodeLength: maxCodeLength}
}

const shortURLColumns = `id, tenant_id, code, original_url, expires_at, created_at, updated_at`

// FindOrCreate takes the optimistic route: insert with ON CONFLICT DO
// NOTHING, and when no row comes back the winner's row is refetched. Under
// concurrent callers exactly one insert succeeds and everyone observes the
// same record.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, tenantID int64, code, url string) (*ShortenedURL, error) {
	if err := validateWrite(code, url, r.maxCodeLength); err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO short_urls (tenant_id, code, original_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, code) DO NOTHING
		RETURNING `+shortURLColumns,
		tenantID, code, url)

	record, err := scanShortURL(row)
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Lost the race: return the first writer's row unchanged.
	return r.ByCode(ctx, tenantID, code)
}

func (r *PostgresRepository) Create(ctx context.Context, tenantID int64, code, url string) (*ShortenedURL, error) {
	if err := validateWrite(code, url, r.maxCodeLength); err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO short_urls (tenant_id, code, original_url)
		VALUES ($1, $2, $3)
		RETURNING `+shortURLColumns,
		tenantID, code, url)

	record, err := scanShortURL(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrCodeTaken
		}

		return nil, err
	}

	return record, nil
}

func (r *PostgresRepository) ByCode(ctx context.Context, tenantID int64, code string) (*ShortenedURL, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+shortURLColumns+` FROM short_urls WHERE tenant_id = $1 AND code = $2`,
		tenantID, code)

	return scanNotFound(row)
}

func (r *PostgresRepository) ByOriginalURL(ctx context.Context, tenantID int64, url string) (*ShortenedURL, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+shortURLColumns+`
		FROM short_urls
		WHERE tenant_id = $1 AND original_url = $2
		ORDER BY id
		LIMIT 1`,
		tenantID, url)

	return scanNotFound(row)
}

func scanNotFound(row pgx.Row) (*ShortenedURL, error) {
	record, err := scanShortURL(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return record, nil
}

func scanShortURL(row pgx.Row) (*ShortenedURL, error) {
	var s ShortenedURL

	err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.Code,
		&s.OriginalURL,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// Compile-time check.
var _ Repository = (*PostgresRepository)(nil)
