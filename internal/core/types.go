package core

import (
	"fmt"
	"strings"
	"time"
)

// TemperatureUnit is the display unit for temperatures. Upstream data is always Celsius.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "C"
	UnitFahrenheit TemperatureUnit = "F"
)

// ParseTemperatureUnit accepts C/F in any case, and the long names.
func ParseTemperatureUnit(raw string) (TemperatureUnit, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "C", "CELSIUS", "METRIC":
		return UnitCelsius, nil
	case "F", "FAHRENHEIT", "IMPERIAL":
		return UnitFahrenheit, nil
	default:
		return "", fmt.Errorf("invalid temperature unit %q (use C or F)", raw)
	}
}

// ThemeMode is the frontend colour scheme preference.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

func ParseThemeMode(raw string) (ThemeMode, error) {
	switch ThemeMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("invalid theme mode %q (use light or dark)", raw)
	}
}

// Preference keys as stored and as accepted by `prefs set`.
const (
	PrefTemperatureUnit = "temperature_unit"
	PrefThemeMode       = "theme_mode"
)

// Preferences are the user's display settings.
type Preferences struct {
	TemperatureUnit TemperatureUnit `json:"temperature_unit" yaml:"temperature_unit"`
	ThemeMode       ThemeMode       `json:"theme_mode" yaml:"theme_mode"`
}

// DefaultPreferences returns Celsius and the light theme.
func DefaultPreferences() Preferences {
	return Preferences{TemperatureUnit: UnitCelsius, ThemeMode: ThemeLight}
}

// HistoryItem is one remembered city search.
type HistoryItem struct {
	ID         int64     `json:"id" yaml:"id"`
	City       string    `json:"city" yaml:"city"`
	Country    string    `json:"country" yaml:"country"`
	SearchedAt time.Time `json:"searched_at" yaml:"searched_at"`
}

// HistoryKey identifies a search for deduplication: city and country,
// compared case-insensitively.
func HistoryKey(city, country string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToLower(strings.TrimSpace(country))
}

// CacheEntry describes a stored upstream payload.
type CacheEntry struct {
	Key       string    `json:"key" yaml:"key"`
	Endpoint  string    `json:"endpoint" yaml:"endpoint"`
	Bytes     int       `json:"bytes" yaml:"bytes"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// Expired reports whether the entry is past its TTL at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
