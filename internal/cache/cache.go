// Package cache stores per-asset triangulation results in a local SQLite
// database keyed by content digest and RDP epsilon, so unchanged sprites are
// not re-processed across builds.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aeliadev/cazan/internal/checksum"
	"github.com/aeliadev/cazan/internal/geometry"

	_ "modernc.org/sqlite"
)

// schemaVersion is bumped whenever the table layout or the geometry output
// changes; a mismatch discards every cached entry.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS asset_cache (
    digest TEXT NOT NULL,
    epsilon REAL NOT NULL,
    triangles TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (digest, epsilon)
);
CREATE INDEX IF NOT EXISTS idx_asset_cache_created ON asset_cache(created_at);
`

// Cache wraps the SQLite connection.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	var version int
	if err := c.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read cache version: %w", err)
	}
	if version != schemaVersion {
		if _, err := c.db.Exec("DROP TABLE IF EXISTS asset_cache"); err != nil {
			return fmt.Errorf("failed to reset cache: %w", err)
		}
	}
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	if _, err := c.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to set cache version: %w", err)
	}
	return nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached triangles for digest at epsilon.
func (c *Cache) Get(ctx context.Context, digest checksum.Digest, epsilon float64) ([]geometry.Triangle, bool, error) {
	query := `SELECT triangles FROM asset_cache WHERE digest = ? AND epsilon = ?`

	var data string
	err := c.db.QueryRowContext(ctx, query, digest.String(), epsilon).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var tris []geometry.Triangle
	if err := json.Unmarshal([]byte(data), &tris); err != nil {
		// A corrupt row is a miss; the next Put overwrites it.
		return nil, false, nil
	}
	return tris, true, nil
}

// Put stores triangles for digest at epsilon, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, digest checksum.Digest, epsilon float64, tris []geometry.Triangle) error {
	if tris == nil {
		tris = []geometry.Triangle{}
	}
	data, err := json.Marshal(tris)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	query := `
		INSERT INTO asset_cache (digest, epsilon, triangles, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(digest, epsilon) DO UPDATE SET
			triangles = excluded.triangles,
			created_at = excluded.created_at
	`
	if _, err := c.db.ExecContext(ctx, query, digest.String(), epsilon, string(data), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM asset_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// PruneOlderThan deletes entries written before cutoff and returns how many
// were removed.
func (c *Cache) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM asset_cache WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return res.RowsAffected()
}
