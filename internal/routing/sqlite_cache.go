package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteCache is a PersistentCache backed by an embedded SQLite database.
// Keys are produced by the resolver and stored verbatim.
type SQLiteCache struct {
	db *sql.DB
}

var _ PersistentCache = (*SQLiteCache)(nil)

// OpenSQLiteCache opens (or creates) the cache database at path and ensures its schema.
// Use ":memory:" for a process-local cache.
func OpenSQLiteCache(ctx context.Context, path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open road distance cache: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	cache, err := NewSQLiteCache(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// NewSQLiteCache wraps an existing database handle and ensures the schema exists.
func NewSQLiteCache(ctx context.Context, db *sql.DB) (*SQLiteCache, error) {
	if db == nil {
		return nil, errors.New("road distance cache: db is nil")
	}

	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS road_distance_cache (
		leg_key     TEXT PRIMARY KEY,
		distance_km REAL NOT NULL,
		provider    TEXT NOT NULL,
		fetched_at  INTEGER NOT NULL
	);
	`)
	if err != nil {
		return nil, fmt.Errorf("init road distance cache schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Get returns the stored distance for key.
func (c *SQLiteCache) Get(ctx context.Context, key string) (CacheEntry, bool, error) {
	if strings.TrimSpace(key) == "" {
		return CacheEntry{}, false, errors.New("get road distance cache: key must not be empty")
	}

	var (
		entry     CacheEntry
		fetchedAt int64
	)
	err := c.db.QueryRowContext(ctx, `
	SELECT distance_km, provider, fetched_at
	FROM road_distance_cache
	WHERE leg_key = ?
	`, key).Scan(&entry.Km, &entry.Provider, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("get road distance cache: %w", err)
	}

	entry.FetchedAt = time.Unix(fetchedAt, 0)
	return entry, true, nil
}

// Put stores or replaces the distance for key.
func (c *SQLiteCache) Put(ctx context.Context, key string, entry CacheEntry) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("insert road distance cache: key must not be empty")
	}

	_, err := c.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO road_distance_cache (leg_key, distance_km, provider, fetched_at)
	VALUES (?, ?, ?, ?)
	`, key, entry.Km, entry.Provider, entry.FetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert road distance cache key=%q: %w", key, err)
	}
	return nil
}

// Len returns the number of stored distances.
func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM road_distance_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count road distance cache: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
