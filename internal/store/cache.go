package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetCache returns the cached value for key, or ErrCacheMiss if the key is
// absent or past its expiry. Expired rows are deleted lazily on read so a
// stale value is never returned even between sweeps.
func (s *Store) GetCache(ctx context.Context, key string) (json.RawMessage, error) {
	var data, expiresAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT data, expires_at FROM cache_entries WHERE key = ?", key,
	).Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("querying cache entry: %w", err)
	}

	expiry, err := parseTime(expiresAt)
	if err != nil {
		return nil, fmt.Errorf("parsing cache expiry: %w", err)
	}
	if !time.Now().Before(expiry) {
		// Lazy expiry; best effort, the sweep will catch it otherwise.
		_, _ = s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key) //nolint:errcheck
		return nil, ErrCacheMiss
	}

	return json.RawMessage(data), nil
}

// SetCache upserts a cache entry, overwriting any prior value and expiry.
func (s *Store) SetCache(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, data, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		key,
		string(data),
		formatTime(now.Add(ttl)),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("upserting cache entry: %w", err)
	}
	return nil
}

// PurgeExpiredCache deletes all expired cache rows and returns the count.
func (s *Store) PurgeExpiredCache(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at <= ?", formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("purging expired cache entries: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return purged, nil
}
