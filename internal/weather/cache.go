package weather

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/observability"
	"github.com/skystats/skystats/internal/proxy"
)

// RawFetcher returns the undecoded provider payload. *proxy.Client satisfies it.
type RawFetcher interface {
	Fetch(ctx context.Context, req proxy.ProxyRequest) (json.RawMessage, error)
}

// CachedFetcher consults cache before the provider and stores fresh payloads
// under the same keys the proxy gateway uses. Cache failures fall through to
// the provider.
type CachedFetcher struct {
	Upstream RawFetcher
	Cache    proxy.ResponseCache
	TTL      time.Duration
}

func (c *CachedFetcher) FetchInto(ctx context.Context, req proxy.ProxyRequest, v any) error {
	key := req.CacheKey()

	payload, err := c.Cache.GetCachedResponse(ctx, key)
	if err != nil {
		logCacheError("Cache lookup failed", key, err)
		payload = nil
	}

	if payload == nil {
		payload, err = c.Upstream.Fetch(ctx, req)
		if err != nil {
			return err
		}
		ttl := c.TTL
		if ttl <= 0 {
			ttl = proxy.DefaultCacheTTL
		}
		if err := c.Cache.SetCachedResponse(ctx, key, payload, ttl); err != nil {
			logCacheError("Cache store failed", key, err)
		}
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return apperrors.WrapDataProcessing(ctx, err, "decode "+string(req.Endpoint)+" payload")
	}
	return nil
}

func logCacheError(msg, key string, err error) {
	if observability.CLILogger != nil {
		observability.CLILogger.Warn(msg, zap.String("cache_key", key), zap.Error(err))
	}
}
