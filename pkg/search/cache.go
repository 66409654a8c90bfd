package search

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Cache stores search results in SQLite keyed by a hash of the query, with
// a per-entry expiry.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenCache creates (or reuses) the cache database under dir.
func OpenCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, "search_cache.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS search_cache (
			query_hash TEXT PRIMARY KEY,
			query      TEXT,
			results    TEXT,
			created_at INTEGER,
			expires_at INTEGER
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init cache schema: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached results for query, or (nil, false) on a miss or
// expired entry.
func (c *Cache) Get(query string) ([]Result, bool) {
	var raw string
	err := c.db.QueryRow(
		`SELECT results FROM search_cache WHERE query_hash = ? AND expires_at > ?`,
		hashQuery(query), time.Now().Unix(),
	).Scan(&raw)
	if err != nil {
		return nil, false
	}

	var results []Result
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, false
	}
	return results, true
}

// Set stores results for query with the cache's TTL.
func (c *Cache) Set(query string, results []Result) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO search_cache (query_hash, query, results, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		hashQuery(query), query, string(raw), now.Unix(), now.Add(c.ttl).Unix(),
	)
	return err
}

// ClearExpired drops entries past their expiry.
func (c *Cache) ClearExpired() error {
	_, err := c.db.Exec(`DELETE FROM search_cache WHERE expires_at < ?`, time.Now().Unix())
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
