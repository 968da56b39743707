//go:build cgo

package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skystats/skystats/internal/config"
	"github.com/skystats/skystats/internal/core"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func openTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{
		Driver: "libsql",
		Path:   filepath.Join(t.TempDir(), "skystats.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrate must be idempotent")

	clock := &testClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	s.Now = clock.Now
	return s, clock
}

func TestOpenLocalStore_ConfiguresSQLite(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	require.Equal(t, "libsql", s.Driver())
	require.Equal(t, 1, s.DB.Stats().MaxOpenConnections)
	require.NoError(t, s.Ping(ctx))

	var journalMode string
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	require.Contains(t, journalMode, "wal")
}

func TestOpenMemoryStore(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestUpstreamCache_RoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := openTestStore(t)

	payload := json.RawMessage(`{"name":"Paris","main":{"temp":18.2}}`)
	require.NoError(t, s.SetCachedResponse(ctx, "weather:paris", payload, 5*time.Minute))

	got, err := s.GetCachedResponse(ctx, "weather:paris")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	miss, err := s.GetCachedResponse(ctx, "weather:oslo")
	require.NoError(t, err)
	assert.Nil(t, miss)

	clock.now = clock.now.Add(5 * time.Minute)
	expired, err := s.GetCachedResponse(ctx, "weather:paris")
	require.NoError(t, err)
	assert.Nil(t, expired)

	require.NoError(t, s.SetCachedResponse(ctx, "weather:paris", json.RawMessage(`{"v":2}`), time.Minute))
	refreshed, err := s.GetCachedResponse(ctx, "weather:paris")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(refreshed))

	require.NoError(t, s.SetCachedResponse(ctx, "weather:rome", payload, 0), "zero ttl is a no-op")
	none, err := s.GetCachedResponse(ctx, "weather:rome")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpstreamCache_AdminQueries(t *testing.T) {
	ctx := context.Background()
	s, clock := openTestStore(t)

	require.NoError(t, s.SetCachedResponse(ctx, "weather:paris", json.RawMessage(`{}`), time.Minute))
	require.NoError(t, s.SetCachedResponse(ctx, "forecast:paris", json.RawMessage(`{}`), time.Hour))
	require.NoError(t, s.SetCachedResponse(ctx, "weather:oslo", json.RawMessage(`{"a":1}`), time.Hour))

	all, err := s.ListCacheEntries(ctx, CacheQuery{All: true})
	require.NoError(t, err)
	require.Len(t, all, 3)

	weather, err := s.ListCacheEntries(ctx, CacheQuery{Prefix: "weather:"})
	require.NoError(t, err)
	require.Len(t, weather, 2)
	for _, entry := range weather {
		assert.Equal(t, "weather", entry.Endpoint)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	count, err := s.CountCacheEntries(ctx, CacheQuery{Expired: true})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err := s.PurgeCache(ctx, CacheQuery{Expired: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	removed, err = s.PurgeCache(ctx, CacheQuery{Key: "forecast:paris"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = s.PurgeCache(ctx, CacheQuery{})
	require.Error(t, err)

	removed, err = s.PurgeCache(ctx, CacheQuery{All: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestSearchHistory(t *testing.T) {
	ctx := context.Background()
	s, clock := openTestStore(t)

	for _, city := range []string{"Paris", "Oslo", "Rome", "Lima", "Cairo", "Tokyo"} {
		clock.now = clock.now.Add(time.Minute)
		_, err := s.AddSearch(ctx, city, "", 5)
		require.NoError(t, err)
	}

	items, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 5, "history is capped")
	assert.Equal(t, "Tokyo", items[0].City)
	assert.Equal(t, "Oslo", items[4].City, "oldest search dropped")

	clock.now = clock.now.Add(time.Minute)
	item, err := s.AddSearch(ctx, " rome ", "", 5)
	require.NoError(t, err)
	assert.Equal(t, "rome", item.City)

	items, err = s.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "rome", items[0].City, "repeat search moves to the front")
	assert.Equal(t, clock.now, items[0].SearchedAt)

	cities := make([]string, 0, len(items))
	for _, it := range items {
		cities = append(cities, it.City)
	}
	assert.NotContains(t, cities, "Rome")

	_, err = s.AddSearch(ctx, "Paris", "FR", 5)
	require.NoError(t, err)
	_, err = s.AddSearch(ctx, "Paris", "US", 5)
	require.NoError(t, err)
	top, err := s.ListHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "US", top[0].Country)
	assert.Equal(t, "FR", top[1].Country)

	_, err = s.AddSearch(ctx, "  ", "FR", 5)
	require.Error(t, err)

	cleared, err := s.ClearHistory(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, cleared)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	prefs, err := s.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultPreferences(), prefs)

	value, err := s.SetPreference(ctx, core.PrefTemperatureUnit, "fahrenheit")
	require.NoError(t, err)
	assert.Equal(t, "F", value)

	_, err = s.SetPreference(ctx, core.PrefThemeMode, "Dark")
	require.NoError(t, err)

	prefs, err = s.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.UnitFahrenheit, prefs.TemperatureUnit)
	assert.Equal(t, core.ThemeDark, prefs.ThemeMode)

	_, err = s.SetPreference(ctx, core.PrefThemeMode, "sepia")
	require.Error(t, err)
	_, err = s.SetPreference(ctx, "language", "en")
	require.Error(t, err)
}
