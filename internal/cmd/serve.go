package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skystats/skystats/internal/config"
	"github.com/skystats/skystats/internal/core/store"
	errwrap "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/metrics"
	"github.com/skystats/skystats/internal/observability"
	"github.com/skystats/skystats/internal/proxy"
	"github.com/skystats/skystats/internal/server"
	"github.com/skystats/skystats/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

const uptimeInterval = 15 * time.Second

// rateTableChecker fails once the client table is full, since every new
// client then evicts an active window.
type rateTableChecker struct {
	limiter *proxy.RateLimiter
	maxKeys int
}

func (c rateTableChecker) CheckHealth(ctx context.Context) error {
	if c.maxKeys > 0 && c.limiter.Len() >= c.maxKeys {
		return fmt.Errorf("rate table at capacity (%d keys): %w", c.maxKeys, handlers.ErrDegraded)
	}
	return nil
}

// providerChecker reports degraded while no API key is configured.
type providerChecker struct {
	client *proxy.Client
}

func (c providerChecker) CheckHealth(ctx context.Context) error {
	if !c.client.Configured() {
		return fmt.Errorf("%s: %w", proxy.MsgAPIKeyNotConfigured, handlers.ErrDegraded)
	}
	return nil
}

type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the weather proxy",
	Long: `Start the weather proxy HTTP server.

Routes:
  GET|OPTIONS /weather-proxy, /api/weather-proxy   weather proxy
  GET /health, /health/{live,ready,startup}         probes
  GET /version, /metrics

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload and validate config; logging changes apply immediately`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid")
		}

		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()
		if namespace == "" {
			namespace = identity.BinaryName
		}

		observability.InitServerLogger(identity.BinaryName, observability.ServerLoggerOptions{
			Level:       cfg.Logging.Level,
			Environment: cfg.Logging.Environment,
			Namespace:   namespace,
		})
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}
		startedAt := time.Now()
		metrics.SetServerStartTime(startedAt.Unix())

		upstream := &proxy.Client{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
			Timeout: cfg.ProviderTimeout(),
		}
		if !upstream.Configured() {
			logger.Warn("Provider API key not configured; proxy requests will fail with 500",
				zap.String("env", "SKYSTATS_PROVIDER_API_KEY or WEATHER_API_KEY"))
		}

		limiter := proxy.NewRateLimiter(
			proxy.WithWindow(cfg.RateLimit.Window),
			proxy.WithMaxRequests(cfg.RateLimit.MaxRequests),
			proxy.WithMaxKeys(cfg.RateLimit.MaxKeys),
			proxy.WithSweepEvery(cfg.RateLimit.SweepInterval),
			proxy.WithSizeObserver(metrics.SetRateLimitKeys),
		)

		origins := proxy.NewAllowedOriginSet(cfg.AllowedOrigins()...)

		gwOpts := proxy.Options{
			Upstream: upstream,
			Origins:  origins,
			Limiter:  limiter,
			CacheTTL: cfg.Cache.TTL,
		}

		var db *store.Store
		if cfg.Cache.Enabled {
			db, err = openStore(cmd.Context(), cfg)
			if err != nil {
				return errwrap.WrapDatabaseError(cmd.Context(), err, "open response cache")
			}
			gwOpts.Cache = db
		}

		gateway := proxy.NewGateway(gwOpts)

		logger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", serverHost),
			zap.Int("port", serverPort),
			zap.Strings("allowed_origins", origins.List()),
			zap.Duration("rate_window", limiter.Window()),
			zap.Int("rate_max_requests", limiter.MaxRequests()),
			zap.Bool("cache_enabled", db != nil))

		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("rate_table", rateTableChecker{limiter: limiter, maxKeys: cfg.RateLimit.MaxKeys})
		hm.RegisterChecker("provider_credential", providerChecker{client: upstream})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		if db != nil {
			hm.RegisterChecker("store", handlers.CheckerFunc(db.Ping))
		}
		handlers.SetAppIdentity(identity)

		srv := server.New(server.Options{
			Host:         serverHost,
			Port:         serverPort,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			Gateway:      gateway,
			AdminToken:   os.Getenv(identity.EnvPrefix + "ADMIN_TOKEN"),
		})

		janitorCtx, stopJanitor := context.WithCancel(context.Background())
		limiter.StartJanitor(janitorCtx)
		go reportUptime(janitorCtx, startedAt)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: server, janitor, store, metrics, logger.
		signals.OnShutdown(func(ctx context.Context) error {
			logger := observability.ServerLogger
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.ShutdownMetrics(); err != nil {
				observability.ServerLogger.Warn("Metrics exporter stop failed", zap.Error(err))
			}
			return nil
		})

		if db != nil {
			signals.OnShutdown(func(ctx context.Context) error {
				if err := db.Close(); err != nil {
					return errwrap.WrapDatabaseError(ctx, err, "store close failed")
				}
				return nil
			})
		}

		signals.OnShutdown(func(ctx context.Context) error {
			stopJanitor()
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger := observability.ServerLogger
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			return reloadConfig(ctx, cfg, namespace)
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 2)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			err := signals.Listen(cmd.Context())
			if err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
			}
			errChan <- err
		}()

		if err := <-errChan; err != nil {
			stopJanitor()
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

// reloadConfig re-reads the config file on SIGHUP. The new settings are
// validated and published; only logging settings take effect without a restart.
func reloadConfig(ctx context.Context, running *config.Config, namespace string) error {
	logger := observability.ServerLogger
	logger.Info("Received SIGHUP: attempting config reload")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Error("Failed to reload config file",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Error(err))
			metrics.RecordOperationError("config_reload", errwrap.CodeConfigInvalid)
			metrics.RecordOperation("config_reload", false)
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		logger.Info("No config file found - using defaults and environment variables")
	}

	next, err := loadConfig()
	if err != nil {
		logger.Error("Reloaded config is invalid; keeping running config", zap.Error(err))
		metrics.RecordOperationError("config_reload", errwrap.CodeValidationFailed)
		metrics.RecordOperation("config_reload", false)
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	if next.Logging != running.Logging {
		observability.InitServerLogger(GetAppIdentity().BinaryName, observability.ServerLoggerOptions{
			Level:       next.Logging.Level,
			Environment: next.Logging.Environment,
			Namespace:   namespace,
		})
		logger = observability.ServerLogger
		logger.Info("Logger reconfigured", zap.String("level", next.Logging.Level))
		running.Logging = next.Logging
	}

	restartNeeded := next.Server != running.Server ||
		next.RateLimit != running.RateLimit ||
		next.Provider != running.Provider ||
		next.Cache != running.Cache ||
		!sameOrigins(next.AllowedOrigins(), running.AllowedOrigins())
	if restartNeeded {
		logger.Warn("Server, provider, rate limit, cache or CORS settings changed; restart to apply")
	}

	logger.Info("Configuration reloaded", zap.String("file", viper.ConfigFileUsed()))
	metrics.RecordOperation("config_reload", true)
	return nil
}

// reportUptime refreshes the uptime gauge until ctx is cancelled.
func reportUptime(ctx context.Context, startedAt time.Time) {
	ticker := time.NewTicker(uptimeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			metrics.SetServerUptime(int64(now.Sub(startedAt).Seconds()))
		}
	}
}

func sameOrigins(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
