package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/metrics"
)

// Client-facing upstream failure messages.
const (
	MsgInvalidAPIKey       = "Invalid API key"
	MsgLocationNotFound    = "Location not found"
	MsgUpstreamFailure     = "Failed to fetch weather data"
	MsgAPIKeyNotConfigured = "Weather API key not configured"
)

const (
	defaultUpstreamTimeout = 10 * time.Second
	defaultMaxBodyBytes    = 4 << 20
)

// Client calls the upstream weather provider.
type Client struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	Timeout      time.Duration
	MaxBodyBytes int64
	Clock        func() time.Time
}

// Configured reports whether a provider credential is present.
func (c *Client) Configured() bool {
	return c != nil && c.APIKey != ""
}

// Fetch performs the upstream call for req under a deadline and returns the raw
// JSON payload. Failures are envelopes: UNAUTHORIZED for a rejected credential,
// NOT_FOUND for an unknown location, UPSTREAM_UNAVAILABLE for everything else.
// Upstream bodies never leave this function on failure.
func (c *Client) Fetch(ctx context.Context, req ProxyRequest) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, apperrors.NewConfigInvalidError(MsgAPIKeyNotConfigured)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := req.Target(c.BaseURL, c.APIKey)
	if err != nil {
		return nil, apperrors.WrapUpstreamUnavailable(ctx, err, MsgUpstreamFailure)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, apperrors.WrapUpstreamUnavailable(ctx, redactTransportError(err), MsgUpstreamFailure)
	}
	httpReq.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	start := c.now()
	resp, err := client.Do(httpReq)
	if err != nil {
		metrics.RecordUpstreamCall(string(req.Endpoint), "transport_error", c.now().Sub(start))
		return nil, upstreamFailure(ctx, req.Endpoint, 0, redactTransportError(err))
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	metrics.RecordUpstreamCall(string(req.Endpoint), strconv.Itoa(resp.StatusCode), c.now().Sub(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, withUpstreamContext(apperrors.NewUnauthorizedError(MsgInvalidAPIKey), req.Endpoint, resp.StatusCode, nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, withUpstreamContext(apperrors.NewNotFoundError(MsgLocationNotFound), req.Endpoint, resp.StatusCode, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, upstreamFailure(ctx, req.Endpoint, resp.StatusCode, fmt.Errorf("weather API error: %d", resp.StatusCode))
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, upstreamFailure(ctx, req.Endpoint, resp.StatusCode, redactTransportError(err))
	}
	if int64(len(body)) > limit {
		return nil, upstreamFailure(ctx, req.Endpoint, resp.StatusCode, fmt.Errorf("upstream body exceeds %d bytes", limit))
	}
	if !json.Valid(body) {
		return nil, upstreamFailure(ctx, req.Endpoint, resp.StatusCode, errors.New("upstream returned malformed JSON"))
	}

	return json.RawMessage(body), nil
}

// FetchInto fetches and decodes the payload into v.
func (c *Client) FetchInto(ctx context.Context, req ProxyRequest, v any) error {
	payload, err := c.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return apperrors.WrapDataProcessing(ctx, err, "decode "+string(req.Endpoint)+" payload")
	}
	return nil
}

func (c *Client) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func upstreamFailure(ctx context.Context, endpoint Endpoint, status int, cause error) *gferrors.ErrorEnvelope {
	envelope := apperrors.NewUpstreamUnavailableError(MsgUpstreamFailure).
		WithCorrelationID(apperrors.CorrelationID(ctx))
	if errors.Is(cause, context.DeadlineExceeded) {
		envelope, _ = envelope.WithSeverity(gferrors.SeverityMedium)
	} else {
		envelope, _ = envelope.WithSeverity(gferrors.SeverityHigh)
	}
	return withUpstreamContext(envelope, endpoint, status, cause)
}

func withUpstreamContext(envelope *gferrors.ErrorEnvelope, endpoint Endpoint, status int, cause error) *gferrors.ErrorEnvelope {
	contextData := map[string]interface{}{
		"endpoint": string(endpoint),
	}
	if status != 0 {
		contextData["upstream_status"] = status
	}
	if cause != nil {
		contextData["wrapped_error"] = cause.Error()
	}
	updated, err := envelope.WithContext(contextData)
	if err != nil {
		return envelope
	}
	return updated
}

// redactTransportError strips the request URL, which carries the credential,
// from net/http errors.
func redactTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s upstream: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
