// Package store provides the key-value persistence layer. The contract
// mirrors the primitives of an eventually consistent KV namespace:
// get, put with optional expiry, and lexically ordered prefix listing.
// There is no atomic increment, no compare-and-swap, and no cross-call
// transaction; each call is independently consistent.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// KV is the storage contract shared by the ingestion and query paths.
type KV interface {
	// Get returns the value for key, or found=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Put writes key=value. A positive ttl sets an expiry; zero means
	// the entry never expires. Put overwrites unconditionally.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// List returns up to limit live keys beginning with prefix, in
	// ascending lexical order. limit <= 0 means no limit.
	List(ctx context.Context, prefix string, limit int) ([]string, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Open selects a backend from the DB_URL scheme:
//
//	postgres:// or postgresql://  → Postgres (pgx pool)
//	memory                        → in-process map (dev/tests only)
//	anything else                 → SQLite database file path
func Open(dbURL string) (KV, error) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return NewPostgresKV(dbURL)
	case dbURL == "memory":
		return NewMemoryKV(clockwork.NewRealClock()), nil
	default:
		return NewSQLiteKV(dbURL)
	}
}

// likePattern escapes LIKE metacharacters in prefix and appends the
// wildcard, so that a prefix containing % or _ matches literally.
// Both SQL backends use ESCAPE '\'.
func likePattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
