package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skystats/skystats/internal/core"
)

// DefaultHistoryLimit is how many searches are kept when no limit is configured.
const DefaultHistoryLimit = 5

// AddSearch records a city search at the front of the history. An earlier
// search for the same city and country is replaced, and the history is trimmed
// to maxItems. All three steps run in one transaction.
func (s *Store) AddSearch(ctx context.Context, city, country string, maxItems int) (*core.HistoryItem, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	city = strings.TrimSpace(city)
	country = strings.TrimSpace(country)
	if city == "" {
		return nil, errors.New("city is required")
	}
	if maxItems <= 0 {
		maxItems = DefaultHistoryLimit
	}

	key := core.HistoryKey(city, country)
	now := s.now()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin history update: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_history WHERE search_key = ?`, key); err != nil {
		return nil, fmt.Errorf("dedupe history: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO search_history (city, country, search_key, searched_at)
		VALUES (?, ?, ?, ?)
	`, city, country, key, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM search_history
		WHERE id NOT IN (SELECT id FROM search_history ORDER BY id DESC LIMIT ?)
	`, maxItems); err != nil {
		return nil, fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit history update: %w", err)
	}

	return &core.HistoryItem{ID: id, City: city, Country: country, SearchedAt: now}, nil
}

// ListHistory returns searches most recent first. limit <= 0 returns all.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]core.HistoryItem, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, city, country, searched_at
		FROM search_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	items := []core.HistoryItem{}
	for rows.Next() {
		var (
			item       core.HistoryItem
			searchedAt int64
		)
		if err := rows.Scan(&item.ID, &item.City, &item.Country, &searchedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		item.SearchedAt = time.Unix(searchedAt, 0).UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return items, nil
}

// ClearHistory removes every search and returns how many were deleted.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM search_history`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return result.RowsAffected()
}
