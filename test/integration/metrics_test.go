package integration

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skystats/skystats/internal/observability"
	"github.com/skystats/skystats/internal/proxy"
	"github.com/skystats/skystats/internal/server"
	"github.com/skystats/skystats/internal/server/handlers"
)

const testOrigin = "https://sky-stats.vercel.app"

// cleanupMetrics tears down global telemetry state so each test starts clean.
// This matters in sandboxes where lingering exporters can block future binds.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// initMetricsOrSkip attempts to start the metrics exporter; if the environment
// forbids network binds we skip instead of failing the entire suite.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}

	cleanupMetrics(t)
}

func initLoggers() {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", observability.ServerLoggerOptions{Level: "info"})
}

func listenLoopback(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping loopback server setup: %v", err)
		}
		require.NoError(t, err)
	}
	return listener
}

// newUpstream fakes the weather provider. It answers every known path with a
// small payload and counts calls.
func newUpstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	calls := &atomic.Int64{}
	ts := &httptest.Server{
		Listener: listenLoopback(t),
		Config: &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/data/2.5/weather":
				if r.URL.Query().Get("q") == "Atlantis" {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
					return
				}
				_, _ = fmt.Fprintf(w, `{"name":%q,"main":{"temp":21.5}}`, r.URL.Query().Get("q"))
			case "/data/2.5/forecast":
				_, _ = w.Write([]byte(`{"list":[]}`))
			case "/geo/1.0/direct":
				_, _ = w.Write([]byte(`[{"name":"London","country":"GB","lat":51.5,"lon":-0.12}]`))
			case "/data/2.5/air_pollution":
				_, _ = w.Write([]byte(`{"list":[{"main":{"aqi":2}}]}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, calls
}

// newTestServer binds to IPv4 loopback explicitly (avoiding IPv6-only defaults)
// and skips when the sandbox refuses to open sockets.
func newTestServer(t *testing.T, gateway *proxy.Gateway, setup func(*chi.Mux)) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := server.New(server.Options{Host: "127.0.0.1", Gateway: gateway})
	if setup != nil {
		if mux, ok := srv.Handler().(*chi.Mux); ok {
			setup(mux)
		}
	}

	ts := &httptest.Server{
		Listener: listenLoopback(t),
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func newGateway(upstreamURL string, limiter *proxy.RateLimiter) *proxy.Gateway {
	return proxy.NewGateway(proxy.Options{
		Upstream: &proxy.Client{BaseURL: upstreamURL, APIKey: "integration-key", Timeout: 2 * time.Second},
		Origins:  proxy.NewAllowedOriginSet(testOrigin, "http://localhost:3000"),
		Limiter:  limiter,
	})
}

func proxyGet(t *testing.T, client *http.Client, url, clientIP string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("X-Forwarded-For", clientIP)
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func TestMetricsEndpoint_Integration(t *testing.T) {
	initLoggers()
	initMetricsOrSkip(t)
	handlers.InitHealthManager("test")

	upstream, _ := newUpstream(t)
	ts, client := newTestServer(t, newGateway(upstream.URL, nil), func(mux *chi.Mux) {
		mux.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(50 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		})
	})

	const numRequests = 50
	const numWorkers = 10

	requestChan := make(chan int, numRequests)
	for i := 0; i < numRequests; i++ {
		requestChan <- i
	}
	close(requestChan)

	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for reqNum := range requestChan {
				var path string
				switch reqNum % 4 {
				case 0:
					path = "/weather-proxy?endpoint=weather&city=London"
				case 1:
					path = "/slow"
				case 2:
					path = "/api/weather-proxy?endpoint=weather&city=Atlantis"
				default:
					path = "/health"
				}

				req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
				if err != nil {
					continue
				}
				req.Header.Set("Origin", testOrigin)
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", reqNum))
				resp, err := client.Do(req)
				if err == nil {
					_ = resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsContent := string(body)
	assert.Contains(t, metricsContent, "test_http_requests_total", "Should have HTTP request metrics")
	assert.Contains(t, metricsContent, "test_http_request_duration_ms", "Should have duration metrics")
	assert.Contains(t, metricsContent, "test_proxy_requests_total", "Should have proxy request metrics")
	assert.Contains(t, metricsContent, "test_upstream_requests_total", "Should have upstream call metrics")
	assert.True(t, elapsed < 5*time.Second, "Load test should complete in reasonable time")
	t.Logf("Load test completed: %d requests in %v (%.2f req/s)", numRequests, elapsed, float64(numRequests)/elapsed.Seconds())
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	initLoggers()
	initMetricsOrSkip(t)
	handlers.InitHealthManager("test")

	ts, client := newTestServer(t, nil, func(mux *chi.Mux) {
		mux.Get("/format-test", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"message": "format test"}`))
		})
	})

	resp, err := client.Get(ts.URL + "/format-test")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	contentType := resp.Header.Get("Content-Type")
	assert.True(t,
		contentType == "text/plain; version=0.0.4" ||
			contentType == "text/plain; version=0.0.4; charset=utf-8",
		"Expected Prometheus content type, got: %s", contentType)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	hasValidMetrics := false
	metricLines := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		metricLines++
		if strings.Contains(line, "{") && len(strings.Fields(line)) >= 2 {
			hasValidMetrics = true
		}
	}
	assert.True(t, hasValidMetrics, "Should have valid Prometheus metric lines")
	assert.Greater(t, metricLines, 0, "Should have actual metric values")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	initLoggers()

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	t.Setenv("SKYSTATS_METRICS_ENABLED", "false")

	handlers.InitHealthManager("test")

	ts, client := newTestServer(t, nil, func(mux *chi.Mux) {
		mux.Get("/test", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("test"))
		})
	})

	resp, err := client.Get(ts.URL + "/test")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
