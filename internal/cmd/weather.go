package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skystats/skystats/internal/config"
	"github.com/skystats/skystats/internal/core"
	"github.com/skystats/skystats/internal/core/store"
	errwrap "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/observability"
	"github.com/skystats/skystats/internal/output"
	"github.com/skystats/skystats/internal/proxy"
	"github.com/skystats/skystats/internal/weather"
)

var (
	weatherAir       bool
	weatherUnit      string
	weatherNoHistory bool
)

var weatherCmd = &cobra.Command{
	Use:   "weather <city>",
	Short: "Show current conditions and forecast for a city",
	Long: `Query the weather provider directly for current conditions and a daily
forecast. With --air the city is geocoded and its air quality index added.

The temperature unit comes from --unit, then the stored preference, then °C.
Successful lookups are recorded in the local search history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		city := strings.Join(args, " ")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		upstream := newProviderClient(cfg)
		if !upstream.Configured() {
			return errwrap.NewConfigInvalidError(proxy.MsgAPIKeyNotConfigured +
				" (set SKYSTATS_PROVIDER_API_KEY or WEATHER_API_KEY)")
		}

		db := openStoreBestEffort(ctx, cfg)
		if db != nil {
			defer db.Close() // nolint:errcheck // best-effort cleanup
		}

		unit, err := resolveUnit(ctx, db, weatherUnit)
		if err != nil {
			return err
		}

		var fetcher weather.Fetcher = upstream
		if cfg.Cache.Enabled && db != nil {
			fetcher = &weather.CachedFetcher{Upstream: upstream, Cache: db, TTL: cfg.Cache.TTL}
		}

		report, err := weather.Lookup(ctx, fetcher, city, weather.LookupOptions{AirQuality: weatherAir})
		if err != nil {
			return err
		}

		if db != nil && !weatherNoHistory {
			name := report.Current.Name
			if name == "" {
				name = city
			}
			if _, err := db.AddSearch(ctx, name, report.Country(), cfg.History.MaxItems); err != nil {
				observability.CLILogger.Warn("Failed to record search history", zap.Error(err))
			}
		}

		return writeDocument(cmd, "weather."+city, output.ReportDocument(report, unit))
	},
}

func newProviderClient(cfg *config.Config) *proxy.Client {
	return &proxy.Client{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.ProviderTimeout(),
	}
}

// openStoreBestEffort returns nil when the database cannot be opened; lookups
// still work without history or preferences.
func openStoreBestEffort(ctx context.Context, cfg *config.Config) *store.Store {
	db, err := openStore(ctx, cfg)
	if err != nil {
		observability.CLILogger.Warn("Local store unavailable; history and preferences disabled", zap.Error(err))
		return nil
	}
	return db
}

// resolveUnit picks the flag value, then the stored preference, then Celsius.
func resolveUnit(ctx context.Context, db *store.Store, flag string) (core.TemperatureUnit, error) {
	if strings.TrimSpace(flag) != "" {
		unit, err := core.ParseTemperatureUnit(flag)
		if err != nil {
			return "", errwrap.NewInvalidInputError(err.Error())
		}
		return unit, nil
	}
	if db != nil {
		prefs, err := db.GetPreferences(ctx)
		if err == nil {
			return prefs.TemperatureUnit, nil
		}
		observability.CLILogger.Debug("Preferences unavailable, using Celsius", zap.Error(err))
	}
	return core.UnitCelsius, nil
}

func init() {
	rootCmd.AddCommand(weatherCmd)
	weatherCmd.Flags().BoolVar(&weatherAir, "air", false, "include air quality (geocodes the city first)")
	weatherCmd.Flags().StringVar(&weatherUnit, "unit", "", "temperature unit: C|F (default: stored preference)")
	weatherCmd.Flags().BoolVar(&weatherNoHistory, "no-history", false, "do not record this search")
	addOutputFlags(weatherCmd)
}
