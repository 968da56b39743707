package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/skystats/skystats/internal/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func requireEnvelope(t *testing.T, err error) *gferrors.ErrorEnvelope {
	t.Helper()
	require.Error(t, err)
	var envelope *gferrors.ErrorEnvelope
	require.ErrorAs(t, err, &envelope)
	return envelope
}

func TestClientFetch_Success(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Paris","main":{"temp":18.2}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "test-key"}
	payload, err := c.Fetch(context.Background(), ProxyRequest{Endpoint: EndpointWeather, City: "Paris"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Paris","main":{"temp":18.2}}`, string(payload))
	assert.Contains(t, gotQuery, "appid=test-key")
	assert.Contains(t, gotQuery, "units=metric")
}

func TestClientFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
		wantMsg  string
	}{
		{"unauthorized", http.StatusUnauthorized, apperrors.CodeUnauthorized, MsgInvalidAPIKey},
		{"not found", http.StatusNotFound, apperrors.CodeNotFound, MsgLocationNotFound},
		{"service unavailable", http.StatusServiceUnavailable, apperrors.CodeUpstreamUnavailable, MsgUpstreamFailure},
		{"too many requests", http.StatusTooManyRequests, apperrors.CodeUpstreamUnavailable, MsgUpstreamFailure},
		{"bad request", http.StatusBadRequest, apperrors.CodeUpstreamUnavailable, MsgUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"cod":"x","message":"upstream detail"}`))
			}))
			defer srv.Close()

			c := &Client{BaseURL: srv.URL, APIKey: "test-key"}
			_, err := c.Fetch(context.Background(), ProxyRequest{Endpoint: EndpointForecast, City: "Nowhere"})

			envelope := requireEnvelope(t, err)
			assert.Equal(t, tt.wantCode, envelope.Code)
			assert.Equal(t, tt.wantMsg, envelope.Message)
			assert.NotContains(t, envelope.Message, "upstream detail")
			assert.EqualValues(t, tt.status, envelope.Context["upstream_status"])
		})
	}
}

func TestClientFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "test-key"}
	_, err := c.Fetch(context.Background(), ProxyRequest{Endpoint: EndpointGeocoding, City: "Paris"})

	envelope := requireEnvelope(t, err)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, envelope.Code)
	assert.Equal(t, MsgUpstreamFailure, envelope.Message)
}

func TestClientFetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"padding":"` + strings.Repeat("x", 64) + `"}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "test-key", MaxBodyBytes: 16}
	_, err := c.Fetch(context.Background(), ProxyRequest{Endpoint: EndpointWeather, City: "Paris"})

	envelope := requireEnvelope(t, err)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, envelope.Code)
}

func TestClientFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := &Client{BaseURL: srv.URL, APIKey: "test-key", Timeout: 50 * time.Millisecond}

	start := time.Now()
	_, err := c.Fetch(context.Background(), ProxyRequest{Endpoint: EndpointWeather, City: "Paris"})
	elapsed := time.Since(start)

	envelope := requireEnvelope(t, err)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, envelope.Code)
	assert.Equal(t, MsgUpstreamFailure, envelope.Message)
	assert.Equal(t, gferrors.SeverityMedium, envelope.Severity)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestClientFetch_TransportErrorRedactsCredential(t *testing.T) {
	c := &Client{
		BaseURL: "http://weather.invalid",
		APIKey:  "super-secret-key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, assert.AnError
		})},
	}

	_, err := c.Fetch(context.Background(), ProxyRequest{Endpoint: EndpointWeather, City: "Paris"})

	envelope := requireEnvelope(t, err)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, envelope.Code)
	assert.Equal(t, gferrors.SeverityHigh, envelope.Severity)
	wrapped, _ := envelope.Context["wrapped_error"].(string)
	assert.NotEmpty(t, wrapped)
	assert.NotContains(t, wrapped, "super-secret-key")
	assert.NotContains(t, envelope.Error(), "super-secret-key")
}

func TestClientFetch_NotConfigured(t *testing.T) {
	c := &Client{}
	assert.False(t, c.Configured())

	_, err := c.Fetch(context.Background(), ProxyRequest{Endpoint: EndpointWeather, City: "Paris"})
	envelope := requireEnvelope(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, envelope.Code)
	assert.Equal(t, MsgAPIKeyNotConfigured, envelope.Message)
}

func TestClientFetchInto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Paris","lat":48.85,"lon":2.35}]`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "test-key"}

	var places []struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
	}
	require.NoError(t, c.FetchInto(context.Background(), ProxyRequest{Endpoint: EndpointGeocoding, City: "Paris"}, &places))
	require.Len(t, places, 1)
	assert.Equal(t, "Paris", places[0].Name)

	var wrongShape struct{ Name string }
	err := c.FetchInto(context.Background(), ProxyRequest{Endpoint: EndpointGeocoding, City: "Paris"}, &wrongShape)
	envelope := requireEnvelope(t, err)
	assert.Equal(t, apperrors.CodeDataProcessing, envelope.Code)
}
