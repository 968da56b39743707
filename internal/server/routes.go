package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/skystats/skystats/internal/appid"
	"github.com/skystats/skystats/internal/observability"
	"github.com/skystats/skystats/internal/server/handlers"
	servermw "github.com/skystats/skystats/internal/server/middleware"
)

// Admin endpoint rate limit (requests per minute, burst).
const (
	adminRateLimit = 10
	adminRateBurst = 5
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	s.router.Get("/metrics", MetricsHandler)

	s.registerProxyRoutes()
	s.registerAdminEndpoint()
}

// registerProxyRoutes mounts the gateway at the edge path and its /api alias.
func (s *Server) registerProxyRoutes() {
	gateway := s.opts.Gateway
	if gateway == nil {
		return
	}

	for _, path := range []string{servermw.ProxyPathPrefix, "/api" + servermw.ProxyPathPrefix} {
		s.router.Get(path, gateway.Handle)
		s.router.Options(path, gateway.HandlePreflight)
	}
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + appid.EnvPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: adminRateLimit,
		RateBurst: adminRateBurst,
		Manager:   nil,
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.Int("rate_limit_per_min", adminRateLimit),
			zap.Int("rate_burst", adminRateBurst))
		logger.Warn("Admin endpoint enabled - keep it off the public edge")
	}
}
