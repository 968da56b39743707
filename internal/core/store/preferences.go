package store

import (
	"context"
	"fmt"

	"github.com/skystats/skystats/internal/core"
)

// GetPreferences returns stored preferences over the defaults.
func (s *Store) GetPreferences(ctx context.Context) (core.Preferences, error) {
	prefs := core.DefaultPreferences()

	ctx, err := s.ready(ctx)
	if err != nil {
		return prefs, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return prefs, fmt.Errorf("scan preferences: %w", err)
		}
		// Rows written by an older or newer binary may not parse; keep the default.
		switch key {
		case core.PrefTemperatureUnit:
			if unit, err := core.ParseTemperatureUnit(value); err == nil {
				prefs.TemperatureUnit = unit
			}
		case core.PrefThemeMode:
			if mode, err := core.ParseThemeMode(value); err == nil {
				prefs.ThemeMode = mode
			}
		}
	}
	if err := rows.Err(); err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}

// SetPreference validates and stores one preference, returning the normalized value.
func (s *Store) SetPreference(ctx context.Context, key, value string) (string, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return "", err
	}

	var normalized string
	switch key {
	case core.PrefTemperatureUnit:
		unit, err := core.ParseTemperatureUnit(value)
		if err != nil {
			return "", err
		}
		normalized = string(unit)
	case core.PrefThemeMode:
		mode, err := core.ParseThemeMode(value)
		if err != nil {
			return "", err
		}
		normalized = string(mode)
	default:
		return "", fmt.Errorf("unknown preference %q (use %s or %s)", key, core.PrefTemperatureUnit, core.PrefThemeMode)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, normalized, s.now().Unix())
	if err != nil {
		return "", fmt.Errorf("store preference: %w", err)
	}
	return normalized, nil
}
