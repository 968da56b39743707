package metrics

import (
	"strconv"
	"time"

	"github.com/skystats/skystats/internal/observability"
)

// Weather proxy metric names.
const (
	ProxyRequestsTotal       = "proxy_requests_total"
	UpstreamRequestsTotal    = "upstream_requests_total"
	UpstreamRequestDuration  = "upstream_request_duration_ms"
	RateLimitRejectionsTotal = "rate_limit_rejections_total"
	OriginRejectionsTotal    = "origin_rejections_total"
	RateLimitTrackedKeys     = "rate_limit_tracked_keys"
	CacheLookupsTotal        = "upstream_cache_lookups_total"
)

// RecordProxyRequest counts a finished /weather-proxy request. endpoint must
// already be bounded to the known set.
func RecordProxyRequest(endpoint string, status int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(ProxyRequestsTotal, 1, map[string]string{
			"endpoint": endpoint,
			"status":   strconv.Itoa(status),
		})
	}
}

// RecordUpstreamCall counts one provider round trip and its latency. status is
// the provider's HTTP status or "transport_error".
func RecordUpstreamCall(endpoint, status string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	labels := map[string]string{
		"endpoint": endpoint,
		"status":   status,
	}
	_ = observability.TelemetrySystem.Counter(UpstreamRequestsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(UpstreamRequestDuration, duration, map[string]string{
		"endpoint": endpoint,
	})
}

func RecordRateLimitRejection() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(RateLimitRejectionsTotal, 1, nil)
	}
}

func RecordOriginRejection() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(OriginRejectionsTotal, 1, nil)
	}
}

// SetRateLimitKeys reports how many clients the rate table is tracking.
func SetRateLimitKeys(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(RateLimitTrackedKeys, float64(count), nil)
	}
}

// RecordCacheLookup counts upstream cache hits and misses.
func RecordCacheLookup(hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	_ = observability.TelemetrySystem.Counter(CacheLookupsTotal, 1, map[string]string{
		"result": result,
	})
}
