package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/observability"
)

var healthCheckStore bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Verify that skystats can start: version metadata, configuration and,
with --store, the local database. A missing provider API key is reported as a
warning because the proxy still starts without one.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}
		logger.Info("✅ Configuration valid",
			zap.Int("rate_max_requests", cfg.RateLimit.MaxRequests),
			zap.Duration("rate_window", cfg.RateLimit.Window),
			zap.Strings("allowed_origins", cfg.AllowedOrigins()))

		if cfg.Provider.APIKey == "" {
			logger.Warn("⚠️  Provider API key not configured (set SKYSTATS_PROVIDER_API_KEY or WEATHER_API_KEY)")
		} else {
			logger.Info("✅ Provider API key configured")
		}

		if healthCheckStore {
			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				ExitWithCode(logger, foundry.ExitFailure, "Store unavailable", errwrap.WrapDatabaseError(cmd.Context(), err, "open store"))
				return
			}
			pingErr := db.Ping(cmd.Context())
			_ = db.Close()
			if pingErr != nil {
				ExitWithCode(logger, foundry.ExitFailure, "Store ping failed", errwrap.WrapDatabaseError(cmd.Context(), pingErr, "ping store"))
				return
			}
			logger.Info("✅ Store reachable", zap.String("driver", db.Driver()))
		}

		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthCheckStore, "store", false, "also open and ping the local database")
}
