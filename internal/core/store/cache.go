package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetCachedResponse returns the stored payload for key, or nil when it is
// missing or expired.
func (s *Store) GetCachedResponse(ctx context.Context, key string) (json.RawMessage, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var payload string
	row := s.DB.QueryRowContext(ctx, `
		SELECT payload
		FROM upstream_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, s.now().Unix())
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached response: %w", err)
	}

	return json.RawMessage(payload), nil
}

// SetCachedResponse stores payload under key for ttl. A non-positive ttl is a no-op.
func (s *Store) SetCachedResponse(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if ttl <= 0 || len(payload) == 0 {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	now := s.now()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO upstream_cache (cache_key, endpoint, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			endpoint = excluded.endpoint,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, key, endpointFromKey(key), string(payload), now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}
	return nil
}

// endpointFromKey extracts the endpoint prefix of a cache key ("weather:paris").
func endpointFromKey(key string) string {
	endpoint, _, found := strings.Cut(key, ":")
	if !found {
		return ""
	}
	return endpoint
}
