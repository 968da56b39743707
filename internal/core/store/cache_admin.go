package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skystats/skystats/internal/core"
)

// CacheQuery selects upstream cache rows for listing or purging.
// Exactly one selector should be set; All wins over the others.
type CacheQuery struct {
	All     bool
	Key     string
	Prefix  string
	Expired bool
}

func (q CacheQuery) Validate() error {
	if q.All || q.Expired {
		return nil
	}
	if strings.TrimSpace(q.Key) != "" || strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --key, --prefix, or --expired")
}

func (q CacheQuery) whereClause(now time.Time) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	switch {
	case q.All:
		return "", nil, nil
	case q.Expired:
		return "WHERE expires_at <= ?", []any{now.Unix()}, nil
	case strings.TrimSpace(q.Key) != "":
		return "WHERE cache_key = ?", []any{strings.TrimSpace(q.Key)}, nil
	default:
		return "WHERE cache_key LIKE ? ESCAPE '\\'", []any{escapeLike(strings.TrimSpace(q.Prefix)) + "%"}, nil
	}
}

// ListCacheEntries returns metadata for matching cache rows, newest first.
func (s *Store) ListCacheEntries(ctx context.Context, q CacheQuery) ([]core.CacheEntry, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	where, args, err := q.whereClause(s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT cache_key, endpoint, LENGTH(payload), fetched_at, expires_at
		FROM upstream_cache
		%s
		ORDER BY fetched_at DESC, cache_key
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []core.CacheEntry{}
	for rows.Next() {
		var (
			entry     core.CacheEntry
			fetchedAt int64
			expiresAt int64
		)
		if err := rows.Scan(&entry.Key, &entry.Endpoint, &entry.Bytes, &fetchedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan cache entries: %w", err)
		}
		entry.FetchedAt = time.Unix(fetchedAt, 0).UTC()
		entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return entries, nil
}

// CountCacheEntries counts matching rows without deleting them (dry runs).
func (s *Store) CountCacheEntries(ctx context.Context, q CacheQuery) (int, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	where, args, err := q.whereClause(s.now())
	if err != nil {
		return 0, err
	}

	var count int
	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM upstream_cache %s`, where), args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

// PurgeCache deletes matching rows and returns how many were removed.
func (s *Store) PurgeCache(ctx context.Context, q CacheQuery) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	where, args, err := q.whereClause(s.now())
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM upstream_cache %s`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return affected, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
