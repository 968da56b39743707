package proxy

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultCacheTTL matches the Cache-Control max-age sent to browsers.
const DefaultCacheTTL = 5 * time.Minute

// ResponseCache stores successful upstream payloads by request key.
// GetCachedResponse returns nil, nil on a miss.
type ResponseCache interface {
	GetCachedResponse(ctx context.Context, key string) (json.RawMessage, error)
	SetCachedResponse(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error
}
