package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaPostgres is embedded so the service can self-bootstrap its table.
//
//go:embed schema_postgres.sql
var schemaPostgres string

// PostgresKV backs the KV contract with a single Postgres table.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// NewPostgresKV creates a connection pool and fails fast if the database
// is unreachable.
func NewPostgresKV(dbURL string) (*PostgresKV, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresKV{pool: pool}, nil
}

// EnsureSchema applies the embedded schema. Safe to run multiple times.
func (p *PostgresKV) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaPostgres)
	return err
}

// Ping is used by the readiness endpoint to validate connectivity.
func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresKV) Close() error {
	p.pool.Close()
	return nil
}

// Get returns the live value for key. Expired entries read as absent;
// they are overwritten by the next Put or swept by PurgeExpired.
func (p *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `
		SELECT value
		FROM kv_entries
		WHERE key = $1
		  AND (expires_at IS NULL OR expires_at > now())
	`, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Put upserts key=value, replacing any previous value and expiry.
func (p *PostgresKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expiresAt = &t
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// List returns live keys under prefix in ascending lexical order.
func (p *PostgresKV) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`
		SELECT key
		FROM kv_entries
		WHERE key LIKE $1 ESCAPE '\'
		  AND (expires_at IS NULL OR expires_at > now())
		ORDER BY key ASC
	`)
	args = append(args, likePattern(prefix))

	if limit > 0 {
		sb.WriteString(" LIMIT $2")
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return out, nil
}

// PurgeExpired deletes entries whose expiry has passed. Reads already
// filter them out; this just reclaims space and may be run periodically.
func (p *PostgresKV) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM kv_entries
		WHERE expires_at IS NOT NULL AND expires_at <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
