package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory is the durable tenant directory.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a PostgreSQL-backed tenant directory.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

const tenantColumns = `id, name, api_key, scheme, hostname, created_at, updated_at`

func (d *PostgresDirectory) ByAPIKey(ctx context.Context, apiKey string) (*Tenant, error) {
	return d.queryOne(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE api_key = $1`, apiKey)
}

func (d *PostgresDirectory) ByHostname(ctx context.Context, hostname string) (*Tenant, error) {
	return d.queryOne(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE hostname = $1`,
		strings.ToLower(hostname))
}

// RotateAPIKey replaces the tenant's API key with a freshly generated one
// and returns the new key.
func (d *PostgresDirectory) RotateAPIKey(ctx context.Context, tenantID int64) (string, error) {
	key := NewAPIKey()

	tag, err := d.pool.Exec(ctx,
		`UPDATE tenants SET api_key = $1, updated_at = now() WHERE id = $2`,
		key, tenantID)
	if err != nil {
		return "", err
	}

	if tag.RowsAffected() == 0 {
		return "", ErrNotFound
	}

	return key, nil
}

func (d *PostgresDirectory) queryOne(ctx context.Context, query string, arg any) (*Tenant, error) {
	var t Tenant

	err := d.pool.QueryRow(ctx, query, arg).Scan(
		&t.ID,
		&t.Name,
		&t.APIKey,
		&t.Scheme,
		&t.Hostname,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &t, nil
}

// Compile-time check.
var _ Directory = (*PostgresDirectory)(nil)
