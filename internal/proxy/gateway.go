package proxy

import (
	"net/http"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/metrics"
	"github.com/skystats/skystats/internal/observability"
)

// Response header values.
const (
	CacheControlValue      = "public, max-age=300, s-maxage=300"
	PreflightMaxAgeSeconds = "86400"
)

// Client-facing rejection messages.
const (
	MsgRateLimited        = "Rate limit exceeded. Please try again later."
	MsgUnauthorizedOrigin = "Unauthorized origin"
)

// Options wires a Gateway.
type Options struct {
	Upstream *Client
	Origins  *AllowedOriginSet
	Limiter  *RateLimiter
	Cache    ResponseCache
	CacheTTL time.Duration
}

// Gateway is the trust boundary between browsers and the weather provider.
type Gateway struct {
	upstream *Client
	origins  *AllowedOriginSet
	limiter  *RateLimiter
	cache    ResponseCache
	cacheTTL time.Duration
}

// NewGateway builds a gateway, filling in a default limiter and origin set.
func NewGateway(opts Options) *Gateway {
	g := &Gateway{
		upstream: opts.Upstream,
		origins:  opts.Origins,
		limiter:  opts.Limiter,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
	}
	if g.upstream == nil {
		g.upstream = &Client{}
	}
	if g.origins == nil {
		g.origins = NewAllowedOriginSet()
	}
	if g.limiter == nil {
		g.limiter = NewRateLimiter()
	}
	if g.cacheTTL <= 0 {
		g.cacheTTL = DefaultCacheTTL
	}
	return g
}

// Limiter exposes the rate table (janitor, health checks).
func (g *Gateway) Limiter() *RateLimiter { return g.limiter }

// Origins exposes the allow-list.
func (g *Gateway) Origins() *AllowedOriginSet { return g.origins }

// Handle serves GET requests. Gates run in order and the first failure ends the
// request: credential configured, rate budget, origin, parameters, upstream.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	if !g.upstream.Configured() {
		envelope := apperrors.NewConfigInvalidError(MsgAPIKeyNotConfigured)
		envelope, _ = envelope.WithSeverity(gferrors.SeverityCritical)
		g.fail(w, r, "", envelope)
		return
	}

	client := ClientIdentityFromHeaders(r.Header)
	if !g.limiter.Allow(client.Key) {
		metrics.RecordRateLimitRejection()
		g.fail(w, r, "", apperrors.NewRateLimitedError(MsgRateLimited))
		return
	}

	origin := RequestOrigin(r.Header)
	if origin == "" || !g.origins.Contains(origin) {
		metrics.RecordOriginRejection()
		envelope := apperrors.NewForbiddenError(MsgUnauthorizedOrigin)
		envelope, _ = envelope.WithContext(map[string]interface{}{
			"origin": origin,
		})
		g.fail(w, r, "", envelope)
		return
	}

	req, err := ParseProxyRequest(r.URL.Query())
	if err != nil {
		g.fail(w, r, endpointLabel(r.URL.Query().Get("endpoint")), err)
		return
	}

	ctx := r.Context()
	cacheKey := req.CacheKey()
	if payload := g.cachedPayload(r, cacheKey); payload != nil {
		g.succeed(w, r, req, payload, true)
		return
	}

	payload, err := g.upstream.Fetch(ctx, req)
	if err != nil {
		g.fail(w, r, string(req.Endpoint), err)
		return
	}

	if g.cache != nil {
		if err := g.cache.SetCachedResponse(ctx, cacheKey, payload, g.cacheTTL); err != nil && observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Failed to store upstream response in cache",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		}
	}

	g.succeed(w, r, req, payload, false)
}

// HandlePreflight answers CORS preflight. It never rate limits and never
// rejects an origin.
func (g *Gateway) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", g.origins.CORSOrigin(r.Header.Get("Origin")))
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Max-Age", PreflightMaxAgeSeconds)
	h.Add("Vary", "Origin")
	w.WriteHeader(http.StatusOK)
}

func (g *Gateway) cachedPayload(r *http.Request, key string) []byte {
	if g.cache == nil {
		return nil
	}
	payload, err := g.cache.GetCachedResponse(r.Context(), key)
	if err != nil {
		metrics.RecordCacheLookup(false)
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Upstream cache lookup failed",
				zap.String("cache_key", key),
				zap.Error(err))
		}
		return nil
	}
	metrics.RecordCacheLookup(payload != nil)
	return payload
}

func (g *Gateway) succeed(w http.ResponseWriter, r *http.Request, req ProxyRequest, payload []byte, fromCache bool) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", CacheControlValue)
	h.Set("Access-Control-Allow-Origin", g.origins.CORSOrigin(r.Header.Get("Origin")))
	h.Set("Access-Control-Allow-Methods", "GET")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Add("Vary", "Origin")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)

	metrics.RecordProxyRequest(string(req.Endpoint), http.StatusOK)
	if observability.ServerLogger != nil {
		observability.ServerLogger.Debug("Proxied weather request",
			zap.String("endpoint", string(req.Endpoint)),
			zap.Bool("from_cache", fromCache),
			zap.Int("bytes", len(payload)))
	}
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	envelope := apperrors.EnsureEnvelope(err)
	status := apperrors.HTTPStatusFromEnvelope(envelope)
	if endpoint == "" {
		endpoint = endpointLabel("")
	}
	metrics.RecordProxyRequest(endpoint, status)
	apperrors.RespondWithClientError(w, r, envelope)
}

// endpointLabel bounds metric cardinality to the known endpoints.
func endpointLabel(raw string) string {
	for _, e := range Endpoints {
		if string(e) == raw {
			return raw
		}
	}
	if raw == "" {
		return "none"
	}
	return "invalid"
}
